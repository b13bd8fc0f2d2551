package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/shopspring/decimal"

	"github.com/christopherklint97/utilr/internal/capacity"
	"github.com/christopherklint97/utilr/internal/timesheet"
)

// Event is a parsed calendar event.
type Event struct {
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
}

// TimeOffOptions control how calendar events become Time Off entries.
type TimeOffOptions struct {
	HoursPerDay int
	// Keywords, when set, keep only events whose summary contains one of
	// them (case-insensitive).
	Keywords []string
}

// OpenSource opens an iCalendar source, either an http(s) URL or a file path.
func OpenSource(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("opening calendar file: %w", err)
	}
	return f, nil
}

// Events decodes r and returns events overlapping [from, to).
func Events(r io.Reader, from, to time.Time) ([]Event, error) {
	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(time.UTC)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(time.UTC)
			if err != nil {
				continue
			}
			allDay := false
			if p := event.Props.Get(ical.PropDateTimeStart); p != nil && p.ValueType() == ical.ValueDate {
				allDay = true
			}

			if start.Before(to) && end.After(from) {
				summary, _ := event.Props.Text(ical.PropSummary)
				events = append(events, Event{Summary: summary, Start: start, End: end, AllDay: allDay})
			}
		}
	}

	return events, nil
}

// TimeOff turns events into Time Off entries for person: one entry per
// business day covered. All-day events book a full day; timed events book
// their duration, capped at a full day. Days outside [from, to] are dropped.
func TimeOff(events []Event, person string, from, to time.Time, opts TimeOffOptions) []timesheet.TimeEntry {
	hoursPerDay := opts.HoursPerDay
	if hoursPerDay <= 0 {
		hoursPerDay = 8
	}
	fullDay := decimal.NewFromInt(int64(hoursPerDay))

	booked := map[time.Time]decimal.Decimal{}
	var order []time.Time
	for _, e := range events {
		if !matchesKeywords(e.Summary, opts.Keywords) {
			continue
		}

		first := dayOf(e.Start)
		last := dayOf(e.End)
		if e.AllDay || !e.End.After(last) {
			// DTEND is exclusive for all-day events and midnight ends.
			last = last.AddDate(0, 0, -1)
		}
		if last.Before(first) {
			last = first
		}

		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if d.Before(dayOf(from)) || d.After(dayOf(to)) || capacity.BusinessDays(d, d) == 0 {
				continue
			}
			h := fullDay
			if !e.AllDay && first.Equal(last) {
				h = decimal.NewFromFloat(e.End.Sub(e.Start).Hours()).Round(2)
			}
			if _, ok := booked[d]; !ok {
				order = append(order, d)
			}
			booked[d] = decimal.Min(booked[d].Add(h), fullDay)
		}
	}

	entries := make([]timesheet.TimeEntry, 0, len(order))
	for _, d := range order {
		entries = append(entries, timesheet.TimeEntry{
			Person:         person,
			Date:           d,
			Classification: timesheet.TimeOff,
			Project:        "Time Off",
			Task:           "Calendar",
			Hours:          booked[d],
		})
	}
	return entries
}

func matchesKeywords(summary string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	s := strings.ToLower(summary)
	for _, k := range keywords {
		if k != "" && strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package clockify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/christopherklint97/utilr/internal/clockify"
	"github.com/christopherklint97/utilr/internal/timesheet"
)

func newClient(t *testing.T, h http.Handler) *clockify.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return clockify.NewClient("key", srv.URL, time.Minute, nil, clockify.WithRetry(3, time.Millisecond))
}

func entry(project string, billable bool, start time.Time, d time.Duration) clockify.TimeEntry {
	var e clockify.TimeEntry
	e.ProjectID = project
	e.Billable = billable
	e.Description = "work"
	e.TimeInterval.Start = start
	if d > 0 {
		end := start.Add(d)
		e.TimeInterval.End = &end
	}
	return e
}

func TestGetTimeEntriesRetries(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Path != "/workspaces/ws/user/u1/time-entries" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
		json.NewEncoder(w).Encode([]clockify.TimeEntry{entry("p1", true, start, 3*time.Hour)})
	}))

	got, err := c.GetTimeEntries(context.Background(), "ws", "u1",
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetTimeEntries: %v", err)
	}
	if len(got) != 1 || calls.Load() != 2 {
		t.Errorf("entries = %d, calls = %d", len(got), calls.Load())
	}
}

func TestClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))

	if _, err := c.GetUser(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx retried: %d calls", calls.Load())
	}

	if _, err := c.GetProjects(context.Background(), ""); !errors.Is(err, clockify.ErrNoWorkspace) {
		t.Errorf("empty workspace: %v", err)
	}
}

func TestGetProjectsCached(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode([]clockify.Project{{ID: "p1", Name: "Acme"}, {ID: "p2", Name: "Internal"}})
	}))

	for i := 0; i < 2; i++ {
		projects, err := c.GetProjects(context.Background(), "ws")
		if err != nil {
			t.Fatal(err)
		}
		if projects["p1"].Name != "Acme" {
			t.Errorf("projects = %v", projects)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGetProjectsCachedPerWorkspace(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/workspaces/ws1/projects":
			json.NewEncoder(w).Encode([]clockify.Project{{ID: "p1", Name: "Acme"}})
		case "/workspaces/ws2/projects":
			json.NewEncoder(w).Encode([]clockify.Project{{ID: "p9", Name: "Lab"}})
		default:
			t.Errorf("path = %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	for _, ws := range []string{"ws1", "ws2", "ws1", "ws2"} {
		projects, err := c.GetProjects(ctx, ws)
		if err != nil {
			t.Fatal(err)
		}
		want := "p1"
		if ws == "ws2" {
			want = "p9"
		}
		if _, ok := projects[want]; !ok || len(projects) != 1 {
			t.Errorf("%s projects = %v, want only %s", ws, projects, want)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want one per workspace", calls.Load())
	}
}

func TestToTimeEntries(t *testing.T) {
	projects := map[string]clockify.Project{
		"p1": {ID: "p1", Name: "Acme"},
		"p2": {ID: "p2", Name: "Lab"},
		"p3": {ID: "p3", Name: "Admin"},
	}
	m := clockify.Mapping{
		Projects: map[string]timesheet.Classification{"Lab": timesheet.RnD},
		Default:  timesheet.GnA,
	}
	start := time.Date(2024, 6, 3, 22, 30, 0, 0, time.UTC)
	in := []clockify.TimeEntry{
		entry("p1", true, start, 90*time.Minute),
		entry("p2", true, start, time.Hour),
		entry("p3", false, start, 20*time.Minute),
		entry("p1", true, start, 0),
	}

	got := clockify.ToTimeEntries(in, projects, "Doe, Jane", m)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3 (running timer skipped)", len(got))
	}

	tests := []struct {
		class timesheet.Classification
		hours string
	}{
		{timesheet.Billable, "1.5"},
		{timesheet.RnD, "1"},
		{timesheet.GnA, "0.33"},
	}
	for i, tt := range tests {
		if got[i].Classification != tt.class || !got[i].Hours.Equal(decimal.RequireFromString(tt.hours)) {
			t.Errorf("entry %d = %s %s, want %s %s", i, got[i].Classification, got[i].Hours, tt.class, tt.hours)
		}
		if got[i].Date.Day() != 3 || got[i].Person != "Doe, Jane" {
			t.Errorf("entry %d date/person = %s %s", i, got[i].Date, got[i].Person)
		}
	}
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/christopherklint97/utilr/internal/timesheet"
)

const dateLayout = time.DateOnly

// EntryFilter narrows ListEntries. Zero fields do not filter.
type EntryFilter struct {
	Person  string
	Project string
	From    time.Time
	To      time.Time
	Source  string
}

// ReplaceEntries deletes source's entries dated within [from, to] and
// inserts entries in their place, so that re-importing a period is
// idempotent.
func (db *DB) ReplaceEntries(ctx context.Context, source string, from, to time.Time, entries []timesheet.TimeEntry) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		del := db.sq.Delete("time_entries").Where(sq.Eq{"source": source})
		if !from.IsZero() {
			del = del.Where(sq.GtOrEq{"entry_date": from.Format(dateLayout)})
		}
		if !to.IsZero() {
			del = del.Where(sq.LtOrEq{"entry_date": to.Format(dateLayout)})
		}
		res, err := del.RunWith(tx).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("deleting entries: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			db.logger.Debug("replaced entries", zap.String("source", source), zap.Int64("deleted", n))
		}
		return db.insertEntries(ctx, tx, source, entries)
	})
}

// InsertEntries appends entries tagged with source.
func (db *DB) InsertEntries(ctx context.Context, source string, entries []timesheet.TimeEntry) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return db.insertEntries(ctx, tx, source, entries)
	})
}

func (db *DB) insertEntries(ctx context.Context, tx *sql.Tx, source string, entries []timesheet.TimeEntry) error {
	const batch = 200
	for start := 0; start < len(entries); start += batch {
		end := min(start+batch, len(entries))
		ins := db.sq.Insert("time_entries").Columns(
			"source", "person", "entry_date", "classification", "code",
			"project", "task", "hours", "comments", "schedule",
		)
		for _, e := range entries[start:end] {
			ins = ins.Values(
				source, e.Person, e.Date.Format(dateLayout), string(e.Classification), e.Code,
				e.Project, e.Task, e.Hours.String(), e.Comments, e.Schedule,
			)
		}
		if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("inserting entries: %w", err)
		}
	}
	return nil
}

func (db *DB) ListEntries(ctx context.Context, f EntryFilter) ([]timesheet.TimeEntry, error) {
	q := db.sq.Select(
		"person", "entry_date", "classification", "code",
		"project", "task", "hours", "comments", "schedule",
	).From("time_entries").OrderBy("person", "entry_date", "id")

	if f.Person != "" {
		q = q.Where(sq.Eq{"person": f.Person})
	}
	if f.Project != "" {
		q = q.Where(sq.Eq{"project": f.Project})
	}
	if f.Source != "" {
		q = q.Where(sq.Eq{"source": f.Source})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"entry_date": f.From.Format(dateLayout)})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.LtOrEq{"entry_date": f.To.Format(dateLayout)})
	}

	rows, err := q.RunWith(db.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []timesheet.TimeEntry
	for rows.Next() {
		var e timesheet.TimeEntry
		var dateStr, class, hours string

		if err := rows.Scan(
			&e.Person, &dateStr, &class, &e.Code,
			&e.Project, &e.Task, &hours, &e.Comments, &e.Schedule,
		); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		if e.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("parsing entry date %q: %w", dateStr, err)
		}
		if e.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("parsing entry hours %q: %w", hours, err)
		}
		e.Classification = timesheet.Classification(class)

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// People lists every person with at least one entry.
func (db *DB) People(ctx context.Context) ([]string, error) {
	rows, err := db.sq.Select("DISTINCT person").From("time_entries").OrderBy("person").
		RunWith(db.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying people: %w", err)
	}
	defer rows.Close()

	var people []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/christopherklint97/utilr/internal/allocation"
	"github.com/christopherklint97/utilr/internal/fiscal"
)

// AllocationScope selects the planned hours a saved grid replaces: the
// grid's fixed person or project over the grid's months.
type AllocationScope struct {
	Person  string
	Project string
	Months  []fiscal.Month
}

// ScopeOf derives the replacement scope of a grid.
func ScopeOf(g *allocation.Grid) AllocationScope {
	return AllocationScope{Person: g.Filter.Person, Project: g.Filter.Project, Months: g.Months}
}

func (s AllocationScope) where() sq.And {
	and := sq.And{}
	if s.Person != "" {
		and = append(and, sq.Eq{"person": s.Person})
	}
	if s.Project != "" {
		and = append(and, sq.Eq{"project": s.Project})
	}
	months := sq.Or{}
	for _, m := range s.Months {
		months = append(months, sq.Eq{"entry_year": m.Year, "entry_month": m.Abbrev()})
	}
	if len(months) > 0 {
		and = append(and, months)
	}
	return and
}

// ReplaceAllocations atomically swaps every planned-hours row in scope for
// records. Records outside the scope's months are rejected.
func (db *DB) ReplaceAllocations(ctx context.Context, scope AllocationScope, records []allocation.Record) error {
	inScope := make(map[fiscal.Month]bool, len(scope.Months))
	for _, m := range scope.Months {
		inScope[m] = true
	}
	for _, r := range records {
		if len(inScope) > 0 && !inScope[r.Month] {
			return fmt.Errorf("record for %s is outside the saved period", r.Month)
		}
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := db.sq.Delete("planned_hours").Where(scope.where()).RunWith(tx).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("clearing planned hours: %w", err)
		}
		deleted, _ := res.RowsAffected()

		if err := db.insertAllocations(ctx, tx, records); err != nil {
			return err
		}

		db.logger.Debug("saved planned hours",
			zap.Int64("deleted", deleted), zap.Int("inserted", len(records)))
		return nil
	})
}

// InsertAllocations appends records without clearing anything.
func (db *DB) InsertAllocations(ctx context.Context, records []allocation.Record) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return db.insertAllocations(ctx, tx, records)
	})
}

func (db *DB) insertAllocations(ctx context.Context, tx *sql.Tx, records []allocation.Record) error {
	if len(records) == 0 {
		return nil
	}
	ins := db.sq.Insert("planned_hours").Columns("id", "person", "project", "entry_month", "entry_year", "hours")
	for _, r := range records {
		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ins = ins.Values(id.String(), r.Person, r.Project, r.Month.Abbrev(), r.Month.Year, r.Hours.String())
	}
	if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("inserting planned hours: %w", err)
	}
	return nil
}

// ListAllocations returns planned hours in scope. An empty scope lists all.
func (db *DB) ListAllocations(ctx context.Context, scope AllocationScope) ([]allocation.Record, error) {
	q := db.sq.Select("id", "person", "project", "entry_month", "entry_year", "hours").
		From("planned_hours").OrderBy("entry_year", "person", "project")
	if w := scope.where(); len(w) > 0 {
		q = q.Where(w)
	}

	rows, err := q.RunWith(db.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying planned hours: %w", err)
	}
	defer rows.Close()

	var out []allocation.Record
	for rows.Next() {
		var r allocation.Record
		var id, month, hours string
		var year int
		if err := rows.Scan(&id, &r.Person, &r.Project, &month, &year, &hours); err != nil {
			return nil, fmt.Errorf("scanning planned hours: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing planned hours id %q: %w", id, err)
		}
		if r.Month, err = fiscal.ParseMonth(month, year); err != nil {
			return nil, fmt.Errorf("parsing planned hours month: %w", err)
		}
		if r.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("parsing planned hours %q: %w", hours, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

package allocation

import (
	"fmt"
	"strings"

	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TotalLabel is the row key of the synthesized totals row.
const TotalLabel = "Total"

// Record is one planned-hours entry.
type Record struct {
	ID      uuid.UUID
	Person  string
	Project string
	Month   fiscal.Month
	Hours   decimal.Decimal
}

// Axis selects what a grid's rows are keyed by. Columns are always months.
type Axis int

const (
	ByPerson Axis = iota
	ByProject
)

func (a Axis) String() string {
	if a == ByProject {
		return "project"
	}
	return "person"
}

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "person", "people", "user":
		return ByPerson, nil
	case "project", "projects":
		return ByProject, nil
	}
	return 0, fmt.Errorf("unknown axis %q (want person or project)", s)
}

// key returns the row key of r on axis a.
func (a Axis) key(r Record) string {
	if a == ByProject {
		return r.Project
	}
	return r.Person
}

// Filter narrows records to a window and optionally to one person or
// project. The filtered dimension is the grid's fixed other axis.
type Filter struct {
	Window  fiscal.Window
	Person  string
	Project string
}

// EditableAxis returns the row axis a grid built from f must use for its
// edits to flatten back into records: rows run along whichever dimension
// the filter leaves open. With both fixed, requested is kept.
func (f Filter) EditableAxis(requested Axis) (Axis, error) {
	switch {
	case f.Person == "" && f.Project == "":
		return requested, ErrNoFixedAxis
	case f.Project == "":
		return ByProject, nil
	case f.Person == "":
		return ByPerson, nil
	}
	return requested, nil
}

func (f Filter) match(r Record) bool {
	return (f.Person == "" || r.Person == f.Person) &&
		(f.Project == "" || r.Project == f.Project)
}

package timesheet

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

type UnbillablePolicy string

const (
	// UnbillableKeep keeps matched entries in a distinct Unbillable bucket.
	UnbillableKeep UnbillablePolicy = "keep"
	// UnbillableReclass moves matched entries to Rules.ReclassTo.
	UnbillableReclass UnbillablePolicy = "reclass"
)

// Rules normalize raw entries before aggregation.
type Rules struct {
	// Codes maps source codes (e.g. "IRD") to classifications.
	Codes map[string]Classification
	// Unbillable decides what happens to entries whose project or task
	// contains UnbillableMatch.
	Unbillable      UnbillablePolicy
	UnbillableMatch string
	ReclassTo       Classification
	// ProjectAliases rewrites any project containing the key
	// (case-insensitive) to the value, e.g. "B&P" proposals.
	ProjectAliases map[string]string
	Colors         map[Classification]string
}

func DefaultRules() Rules {
	return Rules{
		Codes: map[string]Classification{
			"BIL": Billable,
			"IRD": RnD,
			"GA":  GnA,
			"MKT": MarketingNBD,
			"NBD": MarketingNBD,
			"OH":  Overhead,
			"PTO": TimeOff,
		},
		Unbillable:      UnbillableReclass,
		UnbillableMatch: "Unbillable",
		ReclassTo:       RnD,
		ProjectAliases:  map[string]string{"B&P": "B&P"},
		Colors: map[Classification]string{
			Billable:     "#2ca02c",
			RnD:          "#1f77b4",
			GnA:          "#9467bd",
			MarketingNBD: "#ff7f0e",
			Overhead:     "#8c564b",
			TimeOff:      "#7f7f7f",
			Unbillable:   "#d62728",
			None:         "#bcbd22",
		},
	}
}

func (r Rules) Validate() error {
	var errs []error
	switch r.Unbillable {
	case UnbillableKeep:
	case UnbillableReclass:
		if _, ok := ParseClassification(string(r.ReclassTo)); !ok {
			errs = append(errs, fmt.Errorf("reclass target %q is not a classification", r.ReclassTo))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown unbillable policy %q", r.Unbillable))
	}
	for code, c := range r.Codes {
		if _, ok := ParseClassification(string(c)); !ok {
			errs = append(errs, fmt.Errorf("code %q maps to unknown classification %q", code, c))
		}
	}
	if r.Unbillable != "" && strings.TrimSpace(r.UnbillableMatch) == "" {
		errs = append(errs, errors.New("unbillable match must not be empty"))
	}
	return errors.Join(errs...)
}

// Normalize returns a copy of e with its classification resolved, the
// unbillable policy applied, project aliases substituted and Time Off
// comments cleared. The bool reports whether the entry fell back to None.
func (r Rules) Normalize(e TimeEntry) (TimeEntry, bool) {
	unclassified := false

	c, ok := ParseClassification(string(e.Classification))
	if !ok {
		c, ok = r.lookupCode(e.Code)
		if !ok {
			c, ok = r.lookupCode(string(e.Classification))
		}
	}
	if !ok {
		c = None
		unclassified = true
	}

	if r.isUnbillable(e) || c == Unbillable {
		switch r.Unbillable {
		case UnbillableReclass:
			c = r.ReclassTo
		case UnbillableKeep:
			c = Unbillable
		}
	}
	e.Classification = c

	matches := lo.Keys(r.ProjectAliases)
	slices.Sort(matches)
	for _, match := range matches {
		if match != "" && strings.Contains(strings.ToLower(e.Project), strings.ToLower(match)) {
			e.Project = r.ProjectAliases[match]
			break
		}
	}

	if c == TimeOff {
		e.Comments = ""
	}
	return e, unclassified
}

func (r Rules) lookupCode(code string) (Classification, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	if c, ok := r.Codes[code]; ok {
		return c, true
	}
	for k, c := range r.Codes {
		if strings.EqualFold(k, code) {
			return c, true
		}
	}
	return "", false
}

func (r Rules) isUnbillable(e TimeEntry) bool {
	if r.UnbillableMatch == "" {
		return false
	}
	m := strings.ToLower(r.UnbillableMatch)
	return strings.Contains(strings.ToLower(e.Project), m) ||
		strings.Contains(strings.ToLower(e.Task), m)
}

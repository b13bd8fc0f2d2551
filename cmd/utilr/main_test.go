package main

import (
	"errors"
	"testing"
	"time"

	"github.com/christopherklint97/utilr/internal/allocation"
)

func TestParseDay(t *testing.T) {
	now := time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC) // a Wednesday

	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Time{}},
		{"2024-03-31", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseDay(tt.in, now)
		if err != nil {
			t.Errorf("parseDay(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDay(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestResolvePerson(t *testing.T) {
	people := []string{"Doe, Jane", "Roe, Rick"}

	if got, err := resolvePerson("doe, jane", people); err != nil || got != "Doe, Jane" {
		t.Errorf("case-insensitive match = %q, %v", got, err)
	}
	if _, err := resolvePerson("", people); err == nil {
		t.Error("ambiguous person should be an error")
	}
	if got, _ := resolvePerson("", people[:1]); got != "Doe, Jane" {
		t.Errorf("single person = %q", got)
	}
	if _, err := resolvePerson("", nil); err == nil {
		t.Error("empty database should be an error")
	}
	if _, err := resolvePerson("Nobody", people); err == nil {
		t.Error("unknown person should be an error")
	}
}

func TestPlanAxis(t *testing.T) {
	tests := []struct {
		name     string
		filter   allocation.Filter
		by       allocation.Axis
		explicit bool
		want     allocation.Axis
		wantErr  bool
	}{
		{"project from config default", allocation.Filter{Project: "P1"}, allocation.ByProject, false, allocation.ByPerson, false},
		{"person from config default", allocation.Filter{Person: "X"}, allocation.ByPerson, false, allocation.ByProject, false},
		{"both fixed keeps requested", allocation.Filter{Person: "X", Project: "P1"}, allocation.ByPerson, true, allocation.ByPerson, false},
		{"explicit mismatch", allocation.Filter{Person: "X"}, allocation.ByPerson, true, allocation.ByProject, true},
		{"explicit match", allocation.Filter{Project: "P1"}, allocation.ByPerson, true, allocation.ByPerson, false},
		{"nothing fixed", allocation.Filter{}, allocation.ByProject, false, allocation.ByProject, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planAxis(gridRequest{filter: tt.filter, axis: tt.by}, tt.explicit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("axis = %s, want %s", got, tt.want)
			}
		})
	}

	_, err := planAxis(gridRequest{}, false)
	if !errors.Is(err, allocation.ErrNoFixedAxis) {
		t.Errorf("err = %v, want ErrNoFixedAxis", err)
	}
}

package notify_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/notify"
	"github.com/christopherklint97/utilr/internal/projection"
)

func result(util float64) projection.Result {
	m := fiscal.NewMonth(2024, time.June)
	return projection.Result{
		Person:  "Doe, Jane",
		AsOf:    &m,
		Rows:    []projection.Row{{Month: m, StrategyYear: fiscal.StrategyYear{Start: 2024}}},
		YearEnd: projection.YearEnd{Utilization: util},
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		res  projection.Result
		want bool
	}{
		{"below threshold", result(0.55), true},
		{"at threshold", result(0.70), false},
		{"above threshold", result(0.92), false},
		{"empty result", projection.Result{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent []string
			n := notify.New(70, func(title, msg string) error {
				sent = append(sent, msg)
				return nil
			}, nil)

			got, err := n.Check(tt.res)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want || len(sent) != map[bool]int{true: 1, false: 0}[tt.want] {
				t.Errorf("Check = %v with %d sent, want %v", got, len(sent), tt.want)
			}
			if got {
				t.Logf("message: %s", sent[0])
				if !strings.Contains(sent[0], "2024-2025") || !strings.Contains(sent[0], "55.0%") {
					t.Errorf("message = %q", sent[0])
				}
			}
		})
	}
}

func TestCheckSendError(t *testing.T) {
	n := notify.New(70, func(string, string) error { return errors.New("no dbus") }, nil)
	if ok, err := n.Check(result(0.1)); err == nil || ok {
		t.Errorf("Check = %v, %v; want error", ok, err)
	}
}

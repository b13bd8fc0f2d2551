// Package notify raises desktop alerts when a person's projected year-end
// utilization falls below a threshold.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/christopherklint97/utilr/internal/projection"
)

const appName = "utilr"

// Sender delivers one notification.
type Sender func(title, message string) error

// Desktop sends through the OS notification center.
func Desktop(title, message string) error {
	return beeep.Notify(title, message, "")
}

type Notifier struct {
	// minimum year-end utilization, in percent
	min    float64
	send   Sender
	logger *zap.Logger
}

func New(minUtilization float64, send Sender, logger *zap.Logger) *Notifier {
	if send == nil {
		send = Desktop
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{min: minUtilization, send: send, logger: logger}
}

// Check alerts when res projects a year-end utilization under the
// threshold. It reports whether an alert was sent. Empty results never
// alert.
func (n *Notifier) Check(res projection.Result) (bool, error) {
	if res.Empty() || len(res.Rows) == 0 {
		return false, nil
	}
	util := res.YearEnd.Utilization * 100
	if util >= n.min {
		n.logger.Debug("utilization on track",
			zap.String("person", res.Person), zap.Float64("year_end", util))
		return false, nil
	}

	last := res.Rows[len(res.Rows)-1]
	title := fmt.Sprintf("%s: utilization below target", appName)
	msg := fmt.Sprintf("%s is projected to end %s at %.1f%% (target %.0f%%)",
		res.Person, last.StrategyYear, util, n.min)

	if err := n.send(title, msg); err != nil {
		n.logger.Warn("notification failed", zap.Error(err))
		return false, fmt.Errorf("sending notification: %w", err)
	}
	n.logger.Info("sent utilization alert", zap.String("person", res.Person), zap.Float64("year_end", util))
	return true, nil
}

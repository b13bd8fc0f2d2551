package logging_test

import (
	"testing"

	"github.com/christopherklint97/utilr/internal/logging"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	quiet, err := logging.New(false)
	if err != nil {
		t.Fatal(err)
	}
	if quiet.Core().Enabled(zapcore.InfoLevel) {
		t.Error("production logger should drop info")
	}

	debug, err := logging.New(true)
	if err != nil {
		t.Fatal(err)
	}
	if !debug.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug logger should emit debug")
	}
}

func TestOrNop(t *testing.T) {
	if logging.OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}

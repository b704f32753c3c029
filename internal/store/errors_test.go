package store

import (
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core).Sugar().Named("socialstore"))

	sink.Record(fmt.Errorf("insert twitter/1: %w", ErrDuplicate))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "socialstore.store" {
		t.Errorf("logger name = %q, want socialstore.store", e.LoggerName)
	}
	if e.Level != zapcore.ErrorLevel {
		t.Errorf("level = %s, want error", e.Level)
	}
	if dup, ok := e.ContextMap()["duplicate"].(bool); !ok || !dup {
		t.Errorf("duplicate field = %v", e.ContextMap()["duplicate"])
	}
}

func TestFaultUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := fault("insert media", cause)

	var f *Fault
	if !errors.As(err, &f) || f.Op != "insert media" {
		t.Fatalf("errors.As(%v) failed", err)
	}
	if !errors.Is(err, cause) {
		t.Error("fault does not unwrap to its cause")
	}
	if err.Error() != "insert media: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}

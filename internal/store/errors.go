package store

import (
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrDuplicate marks an item rejected by a uniqueness or other
	// integrity constraint.
	ErrDuplicate = errors.New("duplicate or constraint violation")

	// ErrNotFound is returned when an operation targets an unknown media id.
	ErrNotFound = errors.New("media not found")
)

// Fault is a storage-level failure: the backend was unreachable, rejected
// the statement, or the transport broke. It is never recovered by the store.
type Fault struct {
	Op  string
	Err error
}

func (f *Fault) Error() string { return f.Op + ": " + f.Err.Error() }

func (f *Fault) Unwrap() error { return f.Err }

func fault(op string, err error) error {
	return &Fault{Op: op, Err: err}
}

// ErrorSink receives failures the store recovers from locally.
type ErrorSink interface {
	Record(err error)
}

// SinkFunc adapts a function to ErrorSink.
type SinkFunc func(err error)

func (f SinkFunc) Record(err error) { f(err) }

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Record(error) {}

// ZapSink reports failures through a zap logger.
type ZapSink struct {
	log *zap.SugaredLogger
}

// NewZapSink creates a sink that logs at error level.
func NewZapSink(log *zap.SugaredLogger) *ZapSink {
	return &ZapSink{log: log.Named("store")}
}

func (z *ZapSink) Record(err error) {
	z.log.Errorw("store failure",
		"error", err,
		"duplicate", errors.Is(err, ErrDuplicate),
	)
}

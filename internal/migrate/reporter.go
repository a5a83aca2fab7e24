package migrate

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Reporter receives cumulative progress observations. Fire-and-forget: a
// reporter must never fail the migration, so implementations swallow their
// own errors.
type Reporter interface {
	Report(count, bytes uint64)
}

// NopReporter discards observations.
type NopReporter struct{}

func (NopReporter) Report(uint64, uint64) {}

// WriterReporter prints one progress line per observation.
type WriterReporter struct {
	W io.Writer
}

func (r WriterReporter) Report(count, bytes uint64) {
	fmt.Fprintf(r.W, "%d - %dbytes\n", count, bytes)
}

// LogReporter emits observations on a zerolog logger.
type LogReporter struct {
	Log zerolog.Logger
}

func (r LogReporter) Report(count, bytes uint64) {
	r.Log.Info().
		Uint64("count", count).
		Uint64("bytes", bytes).
		Msg("migration progress")
}

// Package telemetry wraps zerolog with one logger per compilation unit,
// level controlled by the TMLC_LOG environment variable.
package telemetry

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Phase names a compile stage for structured phase-timing logs.
type Phase string

const (
	PhaseLex    Phase = "lex"
	PhaseParse  Phase = "parse"
	PhaseCheck  Phase = "check"
	PhaseBorrow Phase = "borrow"
	PhaseMono   Phase = "mono"
	PhaseEmit   Phase = "emit"
)

func levelFromEnv() zerolog.Level {
	switch strings.ToLower(os.Getenv("TMLC_LOG")) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "silent", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Unit is the logger for a single compilation unit (one source file).
type Unit struct {
	log zerolog.Logger
}

// NewUnit creates a logger scoped to one source file, writing to stderr in
// zerolog's console-writer format.
func NewUnit(filename string) *Unit {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(out).Level(levelFromEnv()).With().Timestamp().Str("unit", filename).Logger()
	return &Unit{log: logger}
}

// PhaseTiming logs how long a compile phase took, at debug level.
func (u *Unit) PhaseTiming(p Phase, d time.Duration) {
	u.log.Debug().Str("phase", string(p)).Dur("elapsed", d).Msg("phase complete")
}

// Error logs a diagnostic-bearing failure at error level with its code as
// a structured field.
func (u *Unit) Error(code, msg string) {
	u.log.Error().Str("code", code).Msg(msg)
}

// Info logs a plain informational message.
func (u *Unit) Info(msg string) { u.log.Info().Msg(msg) }

// Debug logs a plain debug message.
func (u *Unit) Debug(msg string) { u.log.Debug().Msg(msg) }

// Time runs fn, logging its elapsed time under phase p.
func (u *Unit) Time(p Phase, fn func() error) error {
	start := time.Now()
	err := fn()
	u.PhaseTiming(p, time.Since(start))
	return err
}

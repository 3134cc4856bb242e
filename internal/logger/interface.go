package logger

import (
	"io"

	"codeberg.org/mutker/cyclectl/internal/errors"
	"github.com/rs/zerolog"
)

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
	With(component string) Logger
}

// instance is a Logger bound to a zerolog.Logger. A nil zl means the
// package logger, so Init after Get still takes effect.
type instance struct {
	zl        *zerolog.Logger
	component string
}

func (l *instance) base() *zerolog.Logger {
	if l.zl != nil {
		return l.zl
	}

	return &log
}

func (l *instance) event(e *zerolog.Event) *LogEvent {
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return &LogEvent{e}
}

func (l *instance) Debug() *LogEvent { return l.event(l.base().Debug()) }
func (l *instance) Info() *LogEvent  { return l.event(l.base().Info()) }
func (l *instance) Warn() *LogEvent  { return l.event(l.base().Warn()) }
func (l *instance) Error() *LogEvent { return l.event(l.base().Error()) }

func (l *instance) ErrorWithCode(err errors.Error) *LogEvent {
	return l.event(l.base().Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap()))
}

func (l *instance) With(component string) Logger {
	return &instance{zl: l.zl, component: component}
}

// Get returns a Logger backed by the package logger.
func Get() Logger {
	return &instance{}
}

// New returns a Logger writing JSON lines to w, independent of Init.
func New(w io.Writer) Logger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return &instance{zl: &zl}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	zl := zerolog.Nop()
	return &instance{zl: &zl}
}

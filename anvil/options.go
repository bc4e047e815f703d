package anvil

import (
	"log/slog"
	"time"
)

// Options configures an Engine. The zero value is not valid; use
// NewEngine with Option values, an explicit-dependency constructor style
// rather than package-level globals.
type Options struct {
	log              *slog.Logger
	clock            func() time.Time
	updateTimestamps bool
}

// Option configures an Engine constructed by NewEngine.
type Option func(*Options)

// WithLogger attaches a structured logger. Successful loads and overwrites
// are logged at Debug; a refused overwrite is logged at Warn, since
// InsufficientSpace is a documented, expected outcome and not a bug. If
// unset or nil, slog.Default() is used.
func WithLogger(log *slog.Logger) Option {
	return func(o *Options) {
		if log == nil {
			log = slog.Default()
		}
		o.log = log
	}
}

// WithClock overrides the time source used to stamp the timestamp table on
// overwrite, letting tests inject a fixed clock instead of time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) { o.clock = clock }
}

// WithUpdateTimestamps controls whether OverwriteChunk updates the sector-1
// timestamp table. Defaults to true, with an escape hatch for callers that
// manage timestamps themselves.
func WithUpdateTimestamps(update bool) Option {
	return func(o *Options) { o.updateTimestamps = update }
}

func defaultOptions() Options {
	return Options{
		log:              slog.Default(),
		clock:            time.Now,
		updateTimestamps: true,
	}
}

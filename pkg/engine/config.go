package engine

import "time"

// DefaultTickInterval paces the processing loop at roughly 60 Hz. The loop
// consumes at most one frame per tick, so the stream can never outrun it.
const DefaultTickInterval = 16 * time.Millisecond

// Config holds the processor settings fixed at construction. Display
// settings that may change at runtime live in Options.
type Config struct {
	TickInterval time.Duration
	Options      Options
}

// DefaultConfig returns the standard processor configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval: DefaultTickInterval,
		Options:      DefaultOptions(),
	}
}

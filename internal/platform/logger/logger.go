// Package logger provides a configured zerolog logger for the host layers.
// The core orchestrator itself never logs.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger tagged with the component name.
func New(component string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Str("component", component).
		Timestamp().
		Logger()
}

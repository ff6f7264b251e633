package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component derives a logger from the global logger tagged with the
// component name, matching the key constructors use.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

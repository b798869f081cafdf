package logging

import (
	"github.com/rs/zerolog"
)

// ComponentKey is the field that names the part of daybook an event came
// from.
const ComponentKey = "component"

// Component returns a sub-logger of l tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(ComponentKey, name).Logger()
}

package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Migrate adapts slog to golang-migrate's Logger interface.
type Migrate struct {
	log     *slog.Logger
	verbose bool
}

// New returns a migrate logger tagged with the given component.
func New(log *slog.Logger, component string, verbose bool) *Migrate {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Migrate{log: log.With("component", component), verbose: verbose}
}

// Printf logs a migrate progress line at info level.
func (m *Migrate) Printf(format string, v ...interface{}) {
	m.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Verbose reports whether migrate should emit verbose output.
func (m *Migrate) Verbose() bool {
	return m.verbose
}

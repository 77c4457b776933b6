// Package logging builds the hclog loggers shared by the CLI and the core.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options configures New.
type Options struct {
	Name   string
	Level  string // trace, debug, info, warn, error, off; unknown values fall back to info
	Output io.Writer
	JSON   bool
}

// New returns a logger writing to Output (stderr when nil).
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	name := opts.Name
	if name == "" {
		name = "curenest"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      ParseLevel(opts.Level),
		Output:     out,
		JSONFormat: opts.JSON,
	})
}

// ParseLevel maps a level name to an hclog level, defaulting to info.
func ParseLevel(s string) hclog.Level {
	l := hclog.LevelFromString(s)
	if l == hclog.NoLevel {
		return hclog.Info
	}
	return l
}

// Package logging builds the zerolog logger shared by every service.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to out at the given level. Unknown levels
// are an error; an empty level means warn.
func New(out io.Writer, level string, format string) (zerolog.Logger, error) {
	lvl := zerolog.WarnLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}

	writer := out
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole:
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	return zerolog.New(writer).Level(lvl).With().Timestamp().Str("app", "stockroom").Logger(), nil
}

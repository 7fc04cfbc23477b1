package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Options configures the global logger
type Options struct {
	Level  string    // trace|debug|info|warn|error, default info
	Format string    // auto|console|json, default auto
	Out    io.Writer // default os.Stderr
}

// Setup configures the global zerolog logger. The auto format writes
// human-readable console output when Out is a terminal and JSON lines
// otherwise.
func Setup(opts Options) error {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return fmt.Errorf("failed to parse log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	case "", "auto":
		if IsTerminal(out) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
		} else {
			log.Logger = zerolog.New(out).With().Timestamp().Logger()
		}
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}

	return nil
}

// IsTerminal reports whether w is a file attached to a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Package logging builds the zerolog loggers used by the command line tools.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// New creates a logger from cfg. Defaults are applied to a copy, and an
// invalid configuration is reported instead of silently replaced.
func New(cfg Config) (zerolog.Logger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), err
	}
	return NewWithWriter(cfg, outputWriter(cfg.Output))
}

// NewWithWriter is New with an explicit destination, ignoring cfg.Output.
func NewWithWriter(cfg Config, w io.Writer) (zerolog.Logger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), err
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(consoleWriter(w, cfg.NoColor))
	} else {
		zl = zerolog.New(w)
	}

	zl = zl.Level(level)
	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	return zl, nil
}

func outputWriter(output string) *os.File {
	if output == "stdout" {
		return os.Stdout
	}
	return os.Stderr
}

var levelColors = map[string]*color.Color{
	"TRACE": color.New(color.FgHiBlack),
	"DEBUG": color.New(color.FgCyan),
	"INFO":  color.New(color.FgGreen),
	"WARN":  color.New(color.FgYellow),
	"ERROR": color.New(color.FgRed),
	"FATAL": color.New(color.FgMagenta),
	"PANIC": color.New(color.FgMagenta, color.Bold),
}

func consoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i any) string {
			lvl, _ := i.(string)
			lvl = strings.ToUpper(lvl)
			tag := "[" + abbreviate(lvl) + "]"
			if noColor {
				return tag
			}
			if c, ok := levelColors[lvl]; ok {
				return c.Sprint(tag)
			}
			return tag
		},
	}
}

func abbreviate(lvl string) string {
	switch lvl {
	case "TRACE":
		return "TRC"
	case "DEBUG":
		return "DBG"
	case "INFO":
		return "INF"
	case "WARN":
		return "WRN"
	case "ERROR":
		return "ERR"
	case "FATAL":
		return "FTL"
	case "PANIC":
		return "PNC"
	default:
		return "???"
	}
}

package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mxcd/go-config/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

type LoggerOptions struct {
	LogLevel string
	IsDevEnv bool
	// Output defaults to stdout for the console writer and stderr otherwise.
	Output io.Writer
}

func NewLoggerOptionsFromEnv() *LoggerOptions {
	return &LoggerOptions{
		LogLevel: config.Get().String("LOG_LEVEL"),
		IsDevEnv: config.Get().Bool("DEV"),
	}
}

func InitLogger(options *LoggerOptions) error {
	level, err := ParseLogLevel(options.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	setLogOutput(options)
	return nil
}

// ParseLogLevel maps a configured level name to a zerolog level. An empty
// name means info; "warning" and "err" are accepted as aliases.
func ParseLogLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "err":
		return zerolog.ErrorLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

func setLogOutput(options *LoggerOptions) {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z"
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	if options.IsDevEnv {
		out := options.Output
		if out == nil {
			out = os.Stdout
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    false,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
		return
	}

	out := options.Output
	if out == nil {
		out = os.Stderr
	}
	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
}

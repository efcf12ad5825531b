package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/smithy-go/logging"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// AwsLogger routes AWS SDK log output into the default slog logger.
func AwsLogger() logging.Logger {
	return logging.LoggerFunc(func(classification logging.Classification, format string, v ...interface{}) {
		msg := fmt.Sprintf(format, v...)
		switch classification {
		case logging.Warn:
			slog.Warn(msg, "source", "aws-sdk")
		default:
			slog.Debug(msg, "source", "aws-sdk")
		}
	})
}

// ConsoleLogger writes coloured logs to stderr and sets itself as the
// default logger. Colour is off when stderr is not a terminal.
func ConsoleLogger(level slog.Level, noColor bool) *slog.Logger {
	logger := slog.New(consoleHandler(os.Stderr, level, noColor || !isatty.IsTerminal(os.Stderr.Fd())))
	slog.SetDefault(logger)
	return logger
}

func consoleHandler(w io.Writer, level slog.Level, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})
}

// FileLogger appends JSON logs to path and sets itself as the default
// logger. The returned closer releases the file.
func FileLogger(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	opts := &slog.HandlerOptions{
		AddSource: level == slog.LevelDebug,
		Level:     level,
	}
	logger := slog.New(slog.NewJSONHandler(f, opts))
	slog.SetDefault(logger)
	return logger, f, nil
}

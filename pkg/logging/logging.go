// Package logging builds the zerolog logger shared by every command.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

// Rotation settings of the log file.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// Options selects the level and outputs.
type Options struct {
	// Level is a zerolog level name; Verbose and Quiet override it.
	Level   string
	Verbose bool
	Quiet   bool
	// File, when set, receives a rotated JSON copy of every entry.
	File string
	// Out replaces stderr as the console output.
	Out io.Writer
}

// Logger is a configured logger and the file it may hold open.
type Logger struct {
	zerolog.Logger
	file io.Closer
}

// Close releases the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// New builds a logger: a console writer on a terminal unless NO_COLOR is set,
// JSON otherwise, plus the optional rotating file.
func New(opts Options) (*Logger, error) {
	level, err := selectLevel(opts)
	if err != nil {
		return nil, err
	}

	writer := selectOutput(opts.Out)
	var file io.WriteCloser
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		writer = zerolog.MultiLevelWriter(writer, file)
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return &Logger{Logger: logger, file: file}, nil
}

func selectLevel(opts Options) (zerolog.Level, error) {
	switch {
	case opts.Verbose:
		return zerolog.DebugLevel, nil
	case opts.Quiet:
		return zerolog.WarnLevel, nil
	case opts.Level == "":
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(errors.ErrConfigInvalid, "log level %q", opts.Level)
	}
	return level, nil
}

func selectOutput(out io.Writer) io.Writer {
	if out != nil {
		return out
	}
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}

// Package logging builds the per-component loggers.
//
// Every component logs through a standard *log.Logger with a bracketed
// prefix ("[db] ", "[live] ", ...). All loggers from one Factory share a
// single destination: stderr, a size-rotated file, or nothing.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log destination.
type Options struct {
	// File, when set, receives the logs instead of stderr. It is rotated
	// once it reaches MaxSizeMB.
	File      string
	MaxSizeMB int

	// Quiet discards all component logs.
	Quiet bool
}

// Factory hands out prefixed loggers sharing one writer.
type Factory struct {
	out    io.Writer
	closer io.Closer
}

// NewFactory creates a Factory for opts.
func NewFactory(opts Options) *Factory {
	switch {
	case opts.Quiet:
		return &Factory{out: io.Discard}
	case opts.File != "":
		_ = os.MkdirAll(filepath.Dir(opts.File), 0755)
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize(opts.MaxSizeMB),
			MaxBackups: 3,
			MaxAge:     28,
		}
		return &Factory{out: lj, closer: lj}
	default:
		return &Factory{out: os.Stderr}
	}
}

func maxSize(mb int) int {
	if mb <= 0 {
		return 10
	}
	return mb
}

// Logger returns a logger for the named component.
func (f *Factory) Logger(component string) *log.Logger {
	return log.New(f.out, "["+component+"] ", log.LstdFlags)
}

// Writer returns the shared destination.
func (f *Factory) Writer() io.Writer {
	return f.out
}

// Close releases the log file, if any.
func (f *Factory) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Package logging builds the updater's logger: timestamped lines on the
// console, mirrored into an append-only log file on a best-effort basis.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// TimeFormat is the timestamp layout used on every line.
const TimeFormat = "2006-01-02 15:04:05"

// Options configures New.
type Options struct {
	// Console receives every line. Defaults to os.Stderr.
	Console io.Writer
	// File is the log file path. Empty disables the file sink.
	File string
	// Level is a charmbracelet/log level name. Defaults to info.
	Level string
	// Prefix is printed before each message.
	Prefix string
}

// New returns a logger and the closer for its file sink.
func New(opts Options) (*log.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	sink := &FileSink{path: opts.File}
	var w io.Writer = console
	if opts.File != "" {
		w = io.MultiWriter(console, sink)
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
	})

	level := log.InfoLevel
	if opts.Level != "" {
		if lvl, err := log.ParseLevel(opts.Level); err == nil {
			level = lvl
		}
	}
	logger.SetLevel(level)

	return logger, sink
}

// Discard returns a logger that writes nowhere.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// FileSink appends to a file, creating it and its directory on first write.
// Every failure is swallowed: Write always reports success so a broken log
// file never interrupts the console or the caller.
type FileSink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	broken bool
}

// NewFileSink returns a sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Write implements io.Writer.
func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" || s.broken {
		return len(p), nil
	}

	if s.file == nil {
		if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
			s.broken = true
			return len(p), nil
		}
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			s.broken = true
			return len(p), nil
		}
		s.file = f
	}

	_, _ = s.file.Write(p)
	return len(p), nil
}

// Close closes the underlying file, if one was opened.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

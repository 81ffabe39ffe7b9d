// Package sink implements the Streaming Sink (spec.md §4.12): the output
// destinations a rendered document can be written to.
package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// Sink is a byte destination for rendered output.
type Sink interface {
	Write(p []byte) (int, error)
	Close() error
}

// FileSink writes to a named file, truncating it first.
type FileSink struct {
	f *os.File
}

// NewFileSink opens path for writing, creating it if necessary.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening output file %s: %w", path, err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *FileSink) Close() error                 { return s.f.Close() }

// StdoutSink writes to an arbitrary io.Writer, typically os.Stdout, without
// ever closing it.
type StdoutSink struct {
	w io.Writer
}

// NewStdoutSink wraps w as a Sink that Close never actually closes.
func NewStdoutSink(w io.Writer) *StdoutSink {
	return &StdoutSink{w: w}
}

func (s *StdoutSink) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *StdoutSink) Close() error                 { return nil }

// ClipboardSink buffers the full output and copies it to the system
// clipboard on Close, since the clipboard API has no streaming write.
type ClipboardSink struct {
	buf []byte
}

// NewClipboardSink creates a ClipboardSink.
func NewClipboardSink() *ClipboardSink {
	return &ClipboardSink{}
}

func (s *ClipboardSink) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *ClipboardSink) Close() error {
	return clipboard.WriteAll(string(s.buf))
}

// TeeSink mirrors every write to a primary sink and a secondary diagnostics
// sink, per spec.md §4.12's tee requirement. Close closes both; the first
// error encountered is returned.
type TeeSink struct {
	primary   Sink
	secondary Sink
}

// NewTeeSink creates a TeeSink writing to both primary and secondary.
func NewTeeSink(primary, secondary Sink) *TeeSink {
	return &TeeSink{primary: primary, secondary: secondary}
}

func (t *TeeSink) Write(p []byte) (int, error) {
	n, err := t.primary.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := t.secondary.Write(p); err != nil {
		return n, err
	}
	return n, nil
}

func (t *TeeSink) Close() error {
	err1 := t.primary.Close()
	err2 := t.secondary.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

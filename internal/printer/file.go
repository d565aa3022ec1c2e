package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// WriterSink writes documents to an io.Writer. It is meant for development
// and for stores that print through a device file.
type WriterSink struct {
	mu      sync.Mutex
	w       io.Writer
	charset string
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer, charset string) *WriterSink {
	return &WriterSink{w: w, charset: charset}
}

// Submit implements Printer.
func (s *WriterSink) Submit(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(doc, s.charset)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// FileSink appends each document to a file, opening it per submission so a
// device node or rotated log is picked up again. Device nodes and pipes are
// opened non-blocking, so a stalled printer gives up when ctx is done.
type FileSink struct {
	path    string
	charset string
}

// NewFileSink returns a sink appending to path.
func NewFileSink(path, charset string) *FileSink {
	return &FileSink{path: path, charset: charset}
}

// Submit implements Printer.
func (s *FileSink) Submit(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(doc, s.charset)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|nonBlockFlag, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if err := writeContext(ctx, f, data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return f.Close()
}

// writeContext writes data, cutting the write short through a deadline when
// ctx is done. Files the poller cannot watch are written directly.
func writeContext(ctx context.Context, f *os.File, data []byte) error {
	if err := f.SetWriteDeadline(time.Time{}); err != nil {
		_, err := f.Write(data)
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = f.SetWriteDeadline(time.Now())
	})
	defer stop()
	if _, err := f.Write(data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

package logging

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// StreamHandler writes formatted records to an io.Writer. The formatter head
// is written before the first record and the tail when the output is closed.
// Format, write and flush for one record run under the handler mutex.
type StreamHandler struct {
	BaseHandler

	mu         sync.Mutex
	closer     io.Closer
	buf        *bufio.Writer
	w          io.Writer
	doneHeader bool
	closed     bool
}

// NewStreamHandler writes to out with level Info and a SimpleFormatter.
// Close closes out when it implements io.Closer, unless it is stdout or stderr.
// An unknown encoding is reported to the error manager and ignored.
func NewStreamHandler(out io.Writer, opts ...HandlerOption) *StreamHandler {
	h := &StreamHandler{}
	s := buildSettings(Info, NewSimpleFormatter(), opts)
	if err := s.apply(&h.BaseHandler); err != nil {
		h.ReportError("unsupported encoding", err, GenericFailure)
	}

	var closer io.Closer
	if c, ok := out.(io.Closer); ok && out != os.Stdout && out != os.Stderr {
		closer = c
	}
	h.mu.Lock()
	h.setOutputLocked(out, closer)
	h.mu.Unlock()
	return h
}

// SetOutput flushes and closes the current output, then switches to out.
func (h *StreamHandler) SetOutput(out io.Writer, closer io.Closer) {
	h.mu.Lock()
	fails := h.setOutputLocked(out, closer)
	h.mu.Unlock()
	h.report(fails)
}

// SetEncoding switches the output charset. Pending output is flushed first.
func (h *StreamHandler) SetEncoding(name string) error {
	if _, err := lookupEncoding(name); err != nil {
		return &HandlerError{Op: "encoding", Message: name, Err: err}
	}
	h.mu.Lock()
	fails := h.flushLocked()
	h.setEncodingName(name)
	h.buildWriterLocked()
	h.mu.Unlock()
	h.report(fails)
	return nil
}

func (h *StreamHandler) Publish(r *Record) {
	h.mu.Lock()
	fails := h.publishLocked(r)
	h.mu.Unlock()
	h.report(fails)
}

func (h *StreamHandler) Flush() {
	h.mu.Lock()
	fails := h.flushLocked()
	h.mu.Unlock()
	h.report(fails)
}

// Close writes the tail, flushes and releases the output. Calling it again is a no-op.
func (h *StreamHandler) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	fails := h.flushAndCloseLocked()
	h.closed = true
	h.mu.Unlock()
	h.report(fails)
	return joinFailures(fails)
}

func (h *StreamHandler) setOutputLocked(out io.Writer, closer io.Closer) []failure {
	fails := h.flushAndCloseLocked()
	if out == nil {
		return fails
	}
	h.closer = closer
	h.buf = bufio.NewWriter(out)
	h.doneHeader = false
	h.buildWriterLocked()
	return fails
}

func (h *StreamHandler) buildWriterLocked() {
	if h.buf == nil {
		h.w = nil
		return
	}
	enc, err := lookupEncoding(h.Encoding())
	if err != nil || enc == nil {
		h.w = h.buf
		return
	}
	h.w = enc.NewEncoder().Writer(h.buf)
}

func (h *StreamHandler) publishLocked(r *Record) []failure {
	if h.closed || h.w == nil || !h.IsLoggable(r) {
		return nil
	}

	formatter := h.Formatter()
	msg, err := formatSafely(formatter, r)
	if err != nil {
		return []failure{{msg: "formatting failed", err: err, kind: FormatFailure}}
	}

	if !h.doneHeader {
		if _, err := io.WriteString(h.w, formatter.Head(h)); err != nil {
			return []failure{{msg: "writing head failed", err: err, kind: WriteFailure}}
		}
		h.doneHeader = true
	}
	if _, err := io.WriteString(h.w, msg); err != nil {
		return []failure{{msg: "writing record failed", err: err, kind: WriteFailure}}
	}
	return nil
}

func (h *StreamHandler) flushLocked() []failure {
	if h.buf == nil {
		return nil
	}
	if err := h.buf.Flush(); err != nil {
		return []failure{{msg: "flush failed", err: err, kind: FlushFailure}}
	}
	return nil
}

func (h *StreamHandler) flushAndCloseLocked() []failure {
	if h.buf == nil {
		return nil
	}

	var fails []failure
	formatter := h.Formatter()
	if !h.doneHeader {
		if _, err := io.WriteString(h.w, formatter.Head(h)); err != nil {
			fails = append(fails, failure{msg: "writing head failed", err: err, kind: CloseFailure})
		}
		h.doneHeader = true
	}
	if _, err := io.WriteString(h.w, formatter.Tail(h)); err != nil {
		fails = append(fails, failure{msg: "writing tail failed", err: err, kind: CloseFailure})
	}
	if err := h.buf.Flush(); err != nil {
		fails = append(fails, failure{msg: "flush on close failed", err: err, kind: CloseFailure})
	}
	if h.closer != nil {
		if err := h.closer.Close(); err != nil {
			fails = append(fails, failure{msg: "close failed", err: err, kind: CloseFailure})
		}
	}

	h.buf, h.w, h.closer = nil, nil, nil
	return fails
}

func formatSafely(f Formatter, r *Record) (s string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("formatter panic: %v", p)
		}
	}()
	return f.Format(r), nil
}

func joinFailures(fails []failure) error {
	if len(fails) == 0 {
		return nil
	}
	errs := make([]error, 0, len(fails))
	for _, f := range fails {
		errs = append(errs, &HandlerError{Op: f.kind.String(), Message: f.msg, Err: f.err})
	}
	return errors.Join(errs...)
}

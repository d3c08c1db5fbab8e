package logging

import (
	"io"
	"os"
)

// ConsoleHandler writes to stderr and flushes after every record. Closing it
// flushes and stops publishing but never closes stderr.
type ConsoleHandler struct {
	StreamHandler
}

func NewConsoleHandler(opts ...HandlerOption) *ConsoleHandler {
	return newConsoleHandler(os.Stderr, opts...)
}

func newConsoleHandler(out io.Writer, opts ...HandlerOption) *ConsoleHandler {
	h := &ConsoleHandler{}
	s := buildSettings(Info, NewSimpleFormatter(), opts)
	if err := s.apply(&h.BaseHandler); err != nil {
		h.ReportError("unsupported encoding", err, GenericFailure)
	}
	h.mu.Lock()
	h.setOutputLocked(out, nil)
	h.mu.Unlock()
	return h
}

func (h *ConsoleHandler) Publish(r *Record) {
	h.mu.Lock()
	fails := h.publishLocked(r)
	fails = append(fails, h.flushLocked()...)
	h.mu.Unlock()
	h.report(fails)
}

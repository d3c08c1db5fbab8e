package logging

import (
	"sync"
)

// callLog records handler invocations across handlers, in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, id)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type captureHandler struct {
	BaseHandler

	id    string
	order *callLog

	mu      sync.Mutex
	records []*Record
	flushes int
	closed  bool
}

func newCaptureHandler(id string, order *callLog) *captureHandler {
	return &captureHandler{id: id, order: order}
}

func (h *captureHandler) Publish(r *Record) {
	if !h.IsLoggable(r) {
		return
	}
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
	if h.order != nil {
		h.order.add(h.id)
	}
}

func (h *captureHandler) Flush() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushes++
}

func (h *captureHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *captureHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.records))
	for _, r := range h.records {
		out = append(out, FormatMessage(r))
	}
	return out
}

func (h *captureHandler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type panicHandler struct{}

func (panicHandler) Publish(*Record) { panic("sink exploded") }
func (panicHandler) Flush()          {}
func (panicHandler) Close() error    { return nil }

// captureFactory registers "Capture" on m and collects every handler it builds.
type captureFactory struct {
	mu       sync.Mutex
	handlers []*captureHandler
}

func registerCapture(m *Manager) *captureFactory {
	f := &captureFactory{}
	m.RegisterHandlerFactory("Capture", func(m *Manager, name string) (Handler, error) {
		h := newCaptureHandler(name, nil)
		if l := m.levelPropertyValue(name + ".level"); l != nil {
			h.SetLevel(l)
		}
		f.mu.Lock()
		f.handlers = append(f.handlers, h)
		f.mu.Unlock()
		return h, nil
	})
	return f
}

func (f *captureFactory) built() []*captureHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*captureHandler(nil), f.handlers...)
}

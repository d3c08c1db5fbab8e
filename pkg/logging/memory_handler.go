package logging

import (
	"errors"
	"sync"
	"sync/atomic"
)

const DefaultMemorySize = 1000

// MemoryConfig configures a MemoryHandler.
type MemoryConfig struct {
	Size      int
	PushLevel *Level
}

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{Size: DefaultMemorySize, PushLevel: Severe}
}

func (c MemoryConfig) Validate() error {
	if c.Size <= 0 {
		return errors.New("logging: memory handler size must be positive")
	}
	return nil
}

// MemoryHandler keeps the most recent records in a circular buffer and
// publishes them to a target handler when a record at or above the push
// level arrives or Push is called.
type MemoryHandler struct {
	BaseHandler

	target    Handler
	pushLevel atomic.Pointer[Level]

	mu     sync.Mutex
	buffer []*Record
	start  int
	count  int
}

func NewMemoryHandler(target Handler, cfg MemoryConfig, opts ...HandlerOption) (*MemoryHandler, error) {
	if target == nil {
		return nil, errors.New("logging: memory handler target is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &MemoryHandler{target: target, buffer: make([]*Record, cfg.Size)}
	s := buildSettings(All, nil, opts)
	if err := s.apply(&h.BaseHandler); err != nil {
		return nil, err
	}
	if cfg.PushLevel == nil {
		cfg.PushLevel = Severe
	}
	h.pushLevel.Store(cfg.PushLevel)
	return h, nil
}

// Target returns the handler records are pushed to.
func (h *MemoryHandler) Target() Handler { return h.target }

func (h *MemoryHandler) PushLevel() *Level { return h.pushLevel.Load() }

// SetPushLevel changes the push threshold. A nil level is ignored.
func (h *MemoryHandler) SetPushLevel(l *Level) {
	if l != nil {
		h.pushLevel.Store(l)
	}
}

// Publish buffers the record, overwriting the oldest one when full, and
// pushes the buffer when the record reaches the push level. The target is
// called without the buffer lock held.
func (h *MemoryHandler) Publish(r *Record) {
	if !h.IsLoggable(r) {
		return
	}

	h.mu.Lock()
	size := len(h.buffer)
	h.buffer[(h.start+h.count)%size] = r
	if h.count < size {
		h.count++
	} else {
		h.start = (h.start + 1) % size
	}

	var pending []*Record
	if r.Level().Value() >= h.PushLevel().Value() {
		pending = h.drainLocked()
	}
	h.mu.Unlock()

	h.publishAll(pending)
}

// Push publishes every buffered record to the target, oldest first, and
// empties the buffer.
func (h *MemoryHandler) Push() {
	h.mu.Lock()
	pending := h.drainLocked()
	h.mu.Unlock()

	h.publishAll(pending)
}

// drainLocked returns the buffered records oldest first and empties the ring.
func (h *MemoryHandler) drainLocked() []*Record {
	if h.count == 0 {
		return nil
	}
	size := len(h.buffer)
	pending := make([]*Record, 0, h.count)
	for i := 0; i < h.count; i++ {
		idx := (h.start + i) % size
		pending = append(pending, h.buffer[idx])
		h.buffer[idx] = nil
	}
	h.start, h.count = 0, 0
	return pending
}

func (h *MemoryHandler) publishAll(records []*Record) {
	for _, r := range records {
		h.target.Publish(r)
	}
}

// Buffered returns the number of records waiting to be pushed.
func (h *MemoryHandler) Buffered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Flush flushes the target without pushing the buffer.
func (h *MemoryHandler) Flush() {
	h.target.Flush()
}

// Close closes the target and stops accepting records.
func (h *MemoryHandler) Close() error {
	err := h.target.Close()
	h.SetLevel(Off)
	return err
}

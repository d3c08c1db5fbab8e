package logging

import (
	"strings"
	"sync/atomic"
	"weak"
)

// staleSweepLimit bounds how many collected loggers one registration purges.
const staleSweepLimit = 400

// loggerRef is the registry's non-owning handle on a logger. The same value
// is kept in the name map, in the logger's tree node and in its parent's
// child list.
type loggerRef struct {
	name     string
	ptr      weak.Pointer[Logger]
	node     *logNode
	parent   weak.Pointer[Logger]
	disposed atomic.Bool
}

func newLoggerRef(l *Logger) *loggerRef {
	return &loggerRef{name: l.name, ptr: weak.Make(l)}
}

func (r *loggerRef) value() *Logger {
	if r == nil {
		return nil
	}
	return r.ptr.Value()
}

// logNode is one segment of the dotted namespace. Nodes exist for every
// prefix of a registered name, whether or not a logger lives there.
type logNode struct {
	children map[string]*logNode
	parent   *logNode
	ref      *loggerRef
}

// nodeLocked returns the node for name, creating missing segments.
// Caller holds m.mu.
func (m *Manager) nodeLocked(name string) *logNode {
	n := m.tree
	if name == "" {
		return n
	}
	for _, seg := range strings.Split(name, ".") {
		child, ok := n.children[seg]
		if !ok {
			child = &logNode{parent: n}
			if n.children == nil {
				n.children = make(map[string]*logNode)
			}
			n.children[seg] = child
		}
		n = child
	}
	return n
}

// walkAndSetParent re-parents the nearest live loggers below n to parent,
// looking through gap nodes. Caller holds m.treeMu.
func (n *logNode) walkAndSetParent(parent *Logger) {
	for _, child := range n.children {
		if l := child.ref.value(); l != nil {
			l.setParentLocked(parent)
			continue
		}
		child.walkAndSetParent(parent)
	}
}

// enqueueStale runs as a cleanup once a registered logger is collected.
func (m *Manager) enqueueStale(ref *loggerRef) {
	m.staleMu.Lock()
	m.stale = append(m.stale, ref)
	m.staleMu.Unlock()
}

// drainStaleLocked disposes at most limit queued refs. Caller holds m.mu.
func (m *Manager) drainStaleLocked(limit int) int {
	m.staleMu.Lock()
	n := min(limit, len(m.stale))
	batch := make([]*loggerRef, n)
	copy(batch, m.stale[:n])
	m.stale = m.stale[n:]
	if len(m.stale) == 0 {
		m.stale = nil
	}
	m.staleMu.Unlock()

	for _, ref := range batch {
		m.disposeLocked(ref)
	}
	return n
}

// disposeLocked removes every trace of a collected logger: the name mapping,
// the node back-pointer and the entry in the parent's child list.
// Caller holds m.mu.
func (m *Manager) disposeLocked(ref *loggerRef) {
	if !ref.disposed.CompareAndSwap(false, true) {
		return
	}
	if cur, ok := m.loggers[ref.name]; ok && cur == ref {
		delete(m.loggers, ref.name)
	}
	if ref.node != nil && ref.node.ref == ref {
		ref.node.ref = nil
	}
	ref.node = nil

	if p := ref.parent.Value(); p != nil {
		m.treeMu.Lock()
		p.removeKidLocked(ref)
		m.treeMu.Unlock()
	}
}

// pendingStale reports the number of queued refs awaiting disposal.
func (m *Manager) pendingStale() int {
	m.staleMu.Lock()
	defer m.staleMu.Unlock()
	return len(m.stale)
}

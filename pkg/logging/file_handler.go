package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/observability"
)

const (
	DefaultFilePattern  = "%h/logkit%u.log"
	DefaultFileMaxLocks = 100
)

// FileConfig configures a FileHandler.
type FileConfig struct {
	// Pattern names the files, see ExpandPattern.
	Pattern string
	// Limit is the approximate maximum number of bytes per file; 0 disables rotation.
	Limit int64
	// Count is the number of generations kept.
	Count int
	// Append reopens generation 0 instead of rotating at startup.
	Append bool
	// MaxLocks bounds the unique numbers tried before giving up.
	MaxLocks int
	// Restricted refuses %h in the pattern.
	Restricted bool
}

func DefaultFileConfig() FileConfig {
	return FileConfig{
		Pattern:  DefaultFilePattern,
		Count:    1,
		MaxLocks: DefaultFileMaxLocks,
	}
}

func (c FileConfig) Validate() error {
	if c.Pattern == "" {
		return ErrInvalidPattern
	}
	if c.Limit < 0 {
		return ErrInvalidLimit
	}
	if c.Count < 1 {
		return ErrInvalidCount
	}
	if c.MaxLocks < 1 {
		return ErrInvalidMaxLocks
	}
	return nil
}

// heldLocks tracks lock files owned by handlers of this process. flock does
// not stop a second descriptor of the same process everywhere, so this set
// is checked first.
var heldLocks = struct {
	sync.Mutex
	names map[string]struct{}
}{names: make(map[string]struct{})}

type meteredWriter struct {
	w       io.Writer
	written int64
}

func (m *meteredWriter) Write(p []byte) (int, error) {
	n, err := m.w.Write(p)
	m.written += int64(n)
	return n, err
}

// FileHandler writes to a set of numbered files and rotates them when the
// active one reaches the limit. Ownership of the file set is claimed with a
// "<generation 0 path>.lck" lock file held until Close.
type FileHandler struct {
	StreamHandler

	cfg       FileConfig
	files     []string
	lockPath  string
	lockFile  *os.File
	meter     *meteredWriter
	rotations observability.Counter
}

// NewFileHandler claims a lock file and opens generation 0. Defaults are
// level All and an XMLFormatter.
func NewFileHandler(cfg FileConfig, opts ...HandlerOption) (*FileHandler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &FileHandler{cfg: cfg}
	s := buildSettings(All, NewXMLFormatter(), opts)
	if err := s.apply(&h.BaseHandler); err != nil {
		return nil, err
	}
	h.rotations = s.metrics.Counter("logkit_file_rotations_total", "Log file rotations", "1")

	if err := h.openFiles(); err != nil {
		return nil, err
	}
	return h, nil
}

// Files returns the generation paths, newest first.
func (h *FileHandler) Files() []string {
	out := make([]string, len(h.files))
	copy(out, h.files)
	return out
}

// LockPath returns the lock file path, empty after Close.
func (h *FileHandler) LockPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lockPath
}

func (h *FileHandler) openFiles() error {
	for unique := 0; ; unique++ {
		if unique > h.cfg.MaxLocks {
			return fmt.Errorf("%w: pattern %q, max locks %d", ErrLockUnavailable, h.cfg.Pattern, h.cfg.MaxLocks)
		}

		base, err := ExpandPattern(h.cfg.Pattern, 0, unique, h.cfg.Count, h.cfg.Restricted)
		if err != nil {
			return err
		}
		ok, err := h.acquireLock(base + ".lck")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		h.files = make([]string, h.cfg.Count)
		for i := range h.files {
			if h.files[i], err = ExpandPattern(h.cfg.Pattern, i, unique, h.cfg.Count, h.cfg.Restricted); err != nil {
				_ = h.releaseLock()
				return err
			}
		}
		break
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg.Append {
		if err := h.openLocked(h.files[0], true); err != nil {
			_ = h.releaseLock()
			return &HandlerError{Op: "open", Message: h.files[0], Err: err}
		}
		return nil
	}

	for _, f := range h.rotateLocked() {
		if f.kind == OpenFailure {
			_ = h.releaseLock()
			return &HandlerError{Op: "open", Message: f.msg, Err: f.err}
		}
	}
	return nil
}

func (h *FileHandler) acquireLock(path string) (bool, error) {
	heldLocks.Lock()
	defer heldLocks.Unlock()

	if _, held := heldLocks.names[path]; held {
		return false, nil
	}

	var (
		f       *os.File
		created bool
	)
	for attempt := 0; attempt < 2 && f == nil; attempt++ {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		switch {
		case err == nil:
			f, created = file, true
		case errors.Is(err, fs.ErrPermission):
			// A lock file still pending deletion; retry, then move on to the next name.
			if isRegularFile(path) && dirWritable(filepath.Dir(path)) {
				continue
			}
			return false, err
		case errors.Is(err, fs.ErrExist):
			// Left over by an earlier run. Reuse it if its directory is ours.
			if !isRegularFile(path) || !dirWritable(filepath.Dir(path)) {
				return false, nil
			}
			file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return false, nil
			}
			f = file
		default:
			return false, err
		}
	}
	if f == nil {
		return false, nil
	}

	available, err := tryLockFile(f)
	if err != nil {
		available = created
	}
	if !available {
		_ = f.Close()
		return false, nil
	}

	heldLocks.names[path] = struct{}{}
	h.lockPath, h.lockFile = path, f
	return true, nil
}

func (h *FileHandler) releaseLock() error {
	heldLocks.Lock()
	defer heldLocks.Unlock()

	if h.lockFile == nil {
		return nil
	}
	var errs []error
	if err := unlockFile(h.lockFile); err != nil && !errors.Is(err, errors.ErrUnsupported) {
		errs = append(errs, err)
	}
	if err := h.lockFile.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(h.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}
	delete(heldLocks.names, h.lockPath)
	h.lockFile, h.lockPath = nil, ""
	return errors.Join(errs...)
}

func (h *FileHandler) openLocked(path string, appendMode bool) error {
	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}

	var size int64
	if appendMode {
		if info, err := file.Stat(); err == nil {
			size = info.Size()
		}
	}
	h.meter = &meteredWriter{w: file, written: size}
	h.setOutputLocked(h.meter, file)
	return nil
}

// rotateLocked shifts generation i to i+1 and opens a fresh generation 0.
// Publishers wait on h.mu for the duration; the level is left untouched so
// a concurrent SetLevel is never lost.
func (h *FileHandler) rotateLocked() []failure {
	fails := h.flushAndCloseLocked()
	h.meter = nil

	for i := h.cfg.Count - 2; i >= 0; i-- {
		from, to := h.files[i], h.files[i+1]
		if fileExists(from) {
			if fileExists(to) {
				_ = os.Remove(to)
			}
			_ = os.Rename(from, to)
		}
	}

	if err := h.openLocked(h.files[0], false); err != nil {
		fails = append(fails, failure{msg: h.files[0], err: err, kind: OpenFailure})
	}
	h.rotations.Increment(context.Background(), observability.String("pattern", h.cfg.Pattern))
	return fails
}

// Publish writes and flushes the record, then rotates once the limit is reached.
func (h *FileHandler) Publish(r *Record) {
	h.mu.Lock()
	if h.w == nil || !h.IsLoggable(r) {
		h.mu.Unlock()
		return
	}
	fails := h.publishLocked(r)
	fails = append(fails, h.flushLocked()...)
	if h.cfg.Limit > 0 && h.meter != nil && (h.meter.written >= h.cfg.Limit || h.meter.written < 0) {
		fails = append(fails, h.rotateLocked()...)
	}
	h.mu.Unlock()
	h.report(fails)
}

// Close closes the active file, then releases and deletes the lock file.
func (h *FileHandler) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	fails := h.flushAndCloseLocked()
	h.closed = true
	h.meter = nil
	lockErr := h.releaseLock()
	h.mu.Unlock()

	h.report(fails)
	return errors.Join(joinFailures(fails), lockErr)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isRegularFile(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

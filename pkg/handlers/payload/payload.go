// Package payload defines the JSON document the broker handlers publish for
// each record, and a formatter that renders it.
package payload

import (
	"encoding/json"

	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/oklog/ulid/v2"
)

const (
	// FormatterName is the configuration name of the JSON formatter.
	FormatterName = "JSONFormatter"

	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Document is the wire form of a record.
type Document struct {
	ID           string `json:"id"`
	Sequence     int64  `json:"sequence"`
	Time         string `json:"time"`
	Logger       string `json:"logger"`
	Level        string `json:"level"`
	LevelValue   int32  `json:"level_value"`
	Message      string `json:"message"`
	SourceClass  string `json:"source_class,omitempty"`
	SourceMethod string `json:"source_method,omitempty"`
	Goroutine    int64  `json:"goroutine"`
	Error        string `json:"error,omitempty"`
}

// NewID returns a monotonic ULID, sortable by creation time.
func NewID() ulid.ULID {
	return ulid.Make()
}

// FromRecord builds the document for r, with the message parameters applied.
func FromRecord(r *logging.Record, id ulid.ULID) Document {
	doc := Document{
		ID:           id.String(),
		Sequence:     r.Sequence(),
		Time:         r.Time().UTC().Format(timeLayout),
		Logger:       r.LoggerName(),
		Level:        r.Level().Name(),
		LevelValue:   r.Level().Value(),
		Message:      logging.FormatMessage(r),
		SourceClass:  r.SourceClass(),
		SourceMethod: r.SourceMethod(),
		Goroutine:    r.GoroutineID(),
	}
	if err := r.Err(); err != nil {
		doc.Error = err.Error()
	}
	return doc
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Formatter renders records as one JSON document per line.
type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

// Format encodes r under a fresh id. Encoding a Document cannot fail.
func (f *Formatter) Format(r *logging.Record) string {
	b, _ := f.Encode(r, NewID())
	return string(b) + "\n"
}

func (f *Formatter) Head(logging.Handler) string { return "" }
func (f *Formatter) Tail(logging.Handler) string { return "" }

// Encode returns the document for r without a trailing newline.
func (f *Formatter) Encode(r *logging.Record, id ulid.ULID) ([]byte, error) {
	return json.Marshal(FromRecord(r, id))
}

// Body renders r with formatter: the JSON document when formatter is a
// *Formatter, the formatter's text otherwise. It returns the matching
// content type.
func Body(formatter logging.Formatter, r *logging.Record, id ulid.ULID) ([]byte, string, error) {
	if f, ok := formatter.(*Formatter); ok {
		b, err := f.Encode(r, id)
		return b, ContentTypeJSON, err
	}
	return []byte(formatter.Format(r)), ContentTypeText, nil
}

// Register makes JSONFormatter usable in ".formatter" properties.
func Register(m *logging.Manager) {
	m.RegisterFormatterFactory(FormatterName, func(*logging.Manager, string) (logging.Formatter, error) {
		return NewFormatter(), nil
	})
}

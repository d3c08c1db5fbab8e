// Package sqlhandler stores log records as rows through database/sql.
package sqlhandler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/handlers/payload"
	"github.com/JailtonJunior94/logkit/pkg/logging"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Name is the handler name used in ".handlers" properties.
const Name = "SQLHandler"

// DefaultDriver is the pgx database/sql driver.
const DefaultDriver = "pgx"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// DBTX is the part of *sql.DB and *sql.Tx the handler uses.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Config selects the table and the placeholder style. Driver only decides
// the placeholders ("pgx" and "postgres" use $n, anything else ?) unless
// Open is used.
type Config struct {
	Driver       string
	DSN          string
	Table        string
	CreateTable  bool
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Driver:       DefaultDriver,
		Table:        "log_records",
		CreateTable:  true,
		WriteTimeout: 5 * time.Second,
	}
}

func (c Config) Validate() error {
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("sqlhandler: invalid table name %q", c.Table)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("sqlhandler: write timeout must be positive, got %v", c.WriteTimeout)
	}
	return nil
}

func (c Config) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if c.Driver == "pgx" || c.Driver == "postgres" {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

// Handler inserts one row per record. Formatter settings are ignored; the
// columns carry the payload document fields.
type Handler struct {
	logging.BaseHandler

	db           DBTX
	owned        *sql.DB
	insert       string
	writeTimeout time.Duration
	closed       atomic.Bool
}

// New writes to db, which stays owned by the caller.
func New(ctx context.Context, db DBTX, cfg Config, opts ...logging.HandlerOption) (*Handler, error) {
	if db == nil {
		return nil, errors.New("sqlhandler: database is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.CreateTable {
		if _, err := db.ExecContext(ctx, createTableSQL(cfg.Table)); err != nil {
			return nil, &logging.HandlerError{Op: "open", Message: "create table " + cfg.Table, Err: err}
		}
	}

	h := &Handler{
		db:           db,
		insert:       insertSQL(cfg),
		writeTimeout: cfg.WriteTimeout,
	}
	if err := h.Init(logging.All, nil, opts...); err != nil {
		return nil, err
	}
	return h, nil
}

// Open connects with cfg.Driver and cfg.DSN; the handler closes the
// connection pool on Close.
func Open(ctx context.Context, cfg Config, opts ...logging.HandlerOption) (*Handler, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sqlhandler: dsn is required")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, &logging.HandlerError{Op: "open", Message: cfg.Driver, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &logging.HandlerError{Op: "open", Message: "ping " + cfg.Driver, Err: err}
	}

	h, err := New(ctx, db, cfg, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	h.owned = db
	return h, nil
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	id VARCHAR(26) PRIMARY KEY,
	sequence BIGINT NOT NULL,
	logged_at TIMESTAMP NOT NULL,
	logger TEXT NOT NULL,
	level TEXT NOT NULL,
	level_value INTEGER NOT NULL,
	message TEXT NOT NULL,
	source_class TEXT,
	source_method TEXT,
	goroutine BIGINT NOT NULL,
	error TEXT
)`
}

func insertSQL(cfg Config) string {
	return `INSERT INTO ` + cfg.Table + ` (id, sequence, logged_at, logger, level, level_value, message, source_class, source_method, goroutine, error) VALUES (` +
		cfg.placeholders(11) + `)`
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (h *Handler) Publish(r *logging.Record) {
	if h.closed.Load() || !h.IsLoggable(r) {
		return
	}

	doc := payload.FromRecord(r, payload.NewID())

	ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
	defer cancel()

	_, err := h.db.ExecContext(ctx, h.insert,
		doc.ID, doc.Sequence, r.Time().UTC(), doc.Logger, doc.Level, doc.LevelValue, doc.Message,
		nullable(doc.SourceClass), nullable(doc.SourceMethod), doc.Goroutine, nullable(doc.Error),
	)
	if err != nil {
		h.ReportError("cannot insert record", err, logging.WriteFailure)
	}
}

func (h *Handler) Flush() {}

func (h *Handler) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.SetLevel(logging.Off)
	if h.owned == nil {
		return nil
	}
	if err := h.owned.Close(); err != nil {
		h.ReportError("cannot close database", err, logging.CloseFailure)
		return &logging.HandlerError{Op: "close", Message: "database", Err: err}
	}
	return nil
}

// Register makes SQLHandler usable in configuration. Properties:
// <name>.driver (default pgx), .dsn, .table, .createTable,
// .writeTimeoutMillis. The handler opens its own connection pool.
func Register(m *logging.Manager) {
	m.RegisterHandlerFactory(Name, func(m *logging.Manager, name string) (logging.Handler, error) {
		def := DefaultConfig()
		cfg := Config{
			Driver:       m.StringProperty(name+".driver", def.Driver),
			DSN:          m.StringProperty(name+".dsn", ""),
			Table:        m.StringProperty(name+".table", def.Table),
			CreateTable:  m.BoolProperty(name+".createTable", def.CreateTable),
			WriteTimeout: time.Duration(m.Int64Property(name+".writeTimeoutMillis", def.WriteTimeout.Milliseconds())) * time.Millisecond,
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
		defer cancel()
		return Open(ctx, cfg, m.HandlerOptions(name)...)
	})
}

// Package requestlog persists a record of every proxied API request to
// SQLite or Postgres. It is optional: with no driver configured the gateway
// records nothing.
package requestlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry represents one proxied request.
type Entry struct {
	TraceID      string    `json:"trace_id,omitempty"`
	Route        string    `json:"route"`
	Provider     string    `json:"provider,omitempty"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	Status       int       `json:"status"`
	CacheHit     bool      `json:"cache_hit"`
	Bytes        int64     `json:"bytes"`
	DurationMS   int64     `json:"duration_ms"`
	ClientID     string    `json:"client_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Query filters List results.
type Query struct {
	Provider string
	Limit    int
	Offset   int
}

// ListResult is a page of entries, newest first.
type ListResult struct {
	Total int     `json:"total"`
	Data  []Entry `json:"data"`
}

// Writer persists request log entries.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// Maintainer removes old entries.
type Maintainer interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLWriter persists entries to SQLite/Postgres.
type SQLWriter struct {
	db      *sql.DB
	dialect string
}

// Open returns a writer for driver ("sqlite" or "postgres").
func Open(driver, dsn string) (*SQLWriter, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteWriter(dsn)
	case "postgres":
		return NewPostgresWriter(dsn)
	default:
		return nil, fmt.Errorf("unknown request log driver %q", driver)
	}
}

func NewSQLiteWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "mediagw-requests.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite request log writer: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	w := &SQLWriter{db: db, dialect: "sqlite"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres request log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "postgres"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLWriter) init() error {
	if err := w.db.Ping(); err != nil {
		return fmt.Errorf("ping %s request log writer: %w", w.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS proxy_requests (
	id INTEGER PRIMARY KEY,
	trace_id TEXT,
	route TEXT NOT NULL,
	provider TEXT,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	status INTEGER NOT NULL,
	cache_hit BOOLEAN NOT NULL,
	bytes INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	client_id TEXT,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL
);`

	if w.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS proxy_requests (
	id BIGSERIAL PRIMARY KEY,
	trace_id TEXT,
	route TEXT NOT NULL,
	provider TEXT,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	status INTEGER NOT NULL,
	cache_hit BOOLEAN NOT NULL,
	bytes BIGINT NOT NULL,
	duration_ms BIGINT NOT NULL,
	client_id TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := w.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize request log schema: %w", err)
	}
	return nil
}

// rebind converts "?" placeholders to "$n" for postgres.
func (w *SQLWriter) rebind(query string) string {
	if w.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (w *SQLWriter) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := w.rebind(`INSERT INTO proxy_requests(trace_id, route, provider, method, path, status, cache_hit, bytes, duration_ms, client_id, error_message, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := w.db.ExecContext(ctx, query,
		entry.TraceID,
		entry.Route,
		entry.Provider,
		entry.Method,
		entry.Path,
		entry.Status,
		entry.CacheHit,
		entry.Bytes,
		entry.DurationMS,
		entry.ClientID,
		entry.ErrorMessage,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("write request log: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (w *SQLWriter) List(ctx context.Context, q Query) (ListResult, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where := ""
	var args []interface{}
	if q.Provider != "" {
		where = " WHERE provider = ?"
		args = append(args, q.Provider)
	}

	var result ListResult
	countQuery := w.rebind("SELECT COUNT(*) FROM proxy_requests" + where)
	if err := w.db.QueryRowContext(ctx, countQuery, args...).Scan(&result.Total); err != nil {
		return ListResult{}, fmt.Errorf("count request logs: %w", err)
	}

	listQuery := w.rebind(`SELECT trace_id, route, provider, method, path, status, cache_hit, bytes, duration_ms, client_id, error_message, created_at
	FROM proxy_requests` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	rows, err := w.db.QueryContext(ctx, listQuery, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list request logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var e Entry
		var traceID, provider, client, errMsg sql.NullString
		if err := rows.Scan(&traceID, &e.Route, &provider, &e.Method, &e.Path, &e.Status, &e.CacheHit,
			&e.Bytes, &e.DurationMS, &client, &errMsg, &e.CreatedAt); err != nil {
			return ListResult{}, fmt.Errorf("scan request log: %w", err)
		}
		e.TraceID = traceID.String
		e.Provider = provider.String
		e.ClientID = client.String
		e.ErrorMessage = errMsg.String
		result.Data = append(result.Data, e)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate request logs: %w", err)
	}
	return result, nil
}

// Prune deletes entries created before the given time.
func (w *SQLWriter) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := w.db.ExecContext(ctx, w.rebind("DELETE FROM proxy_requests WHERE created_at < ?"), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune request logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune request logs: %w", err)
	}
	return n, nil
}

func (w *SQLWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

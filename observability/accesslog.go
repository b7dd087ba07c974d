// Package observability persists the gateway access log in SQLite.
//
// Entries are buffered in memory and written in batches by a background
// goroutine, either when the buffer fills up or on a ticker. Record only
// appends to the buffer: it never waits on the database. A batch that fails
// to write is put back in front of the buffer and retried on the next flush;
// past WithMaxPending entries the oldest are dropped and logged.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/plantilla/dbopen"
)

// Request is one proxied (or rejected) request.
type Request struct {
	ID           string
	RoutePrefix  string // "" when no rule matched
	Method       string
	Path         string
	UpstreamPath string
	Status       int
	Duration     time.Duration
	TraceID      string
	IP           string
	UserAgent    string
	At           time.Time
}

// AccessLog buffers Requests and flushes them to http_request_logs.
type AccessLog struct {
	db            *sql.DB
	bufferSize    int
	maxPending    int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	buffer  []*Request
	dropped int

	// flushMu serialises database writes; mu only guards the buffer.
	flushMu sync.Mutex

	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures an AccessLog.
type Option func(*AccessLog)

// WithBufferSize sets the number of entries that triggers an early flush.
// Default: 100.
func WithBufferSize(n int) Option { return func(a *AccessLog) { a.bufferSize = n } }

// WithMaxPending caps the entries kept in memory while the database is
// failing. Default: 100 × buffer size.
func WithMaxPending(n int) Option { return func(a *AccessLog) { a.maxPending = n } }

// WithFlushInterval sets the periodic flush interval. Default: 5s.
func WithFlushInterval(d time.Duration) Option { return func(a *AccessLog) { a.flushInterval = d } }

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option { return func(a *AccessLog) { a.logger = l } }

// NewAccessLog starts the background flusher. The caller must Close it.
func NewAccessLog(db *sql.DB, opts ...Option) *AccessLog {
	a := &AccessLog{
		db:            db,
		bufferSize:    100,
		flushInterval: 5 * time.Second,
		logger:        slog.Default(),
		kick:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	if a.bufferSize <= 0 {
		a.bufferSize = 1
	}
	if a.maxPending <= 0 {
		a.maxPending = 100 * a.bufferSize
	}
	a.buffer = make([]*Request, 0, a.bufferSize)
	go a.flushLoop()
	return a
}

// Record queues r for persistence. ID and At are filled in when empty.
// A full buffer wakes the flusher; Record itself does no I/O.
func (a *AccessLog) Record(r *Request) {
	if r.ID == "" {
		r.ID = "hrl_" + uuid.Must(uuid.NewV7()).String()
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}

	a.mu.Lock()
	a.buffer = append(a.buffer, r)
	full := len(a.buffer) >= a.bufferSize
	a.mu.Unlock()

	if full {
		select {
		case a.kick <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of entries not yet written.
func (a *AccessLog) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffer)
}

// Flush writes all buffered entries now and returns the write error, if any.
// On error the entries stay queued.
func (a *AccessLog) Flush() error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	batch := a.buffer
	a.buffer = make([]*Request, 0, a.bufferSize)
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	err := a.write(batch)
	if err != nil {
		a.requeue(batch)
		a.logger.Error("observability: access log flush failed", "error", err, "requeued", len(batch))
	}
	return err
}

// Close flushes remaining entries and stops the flusher. It is safe to call
// more than once.
func (a *AccessLog) Close() error {
	a.closeOnce.Do(func() { close(a.stop) })
	<-a.done
	return nil
}

func (a *AccessLog) flushLoop() {
	defer close(a.done)
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			a.Flush()
			return
		case <-a.kick:
			a.Flush()
		case <-ticker.C:
			a.Flush()
		}
	}
}

// requeue puts a failed batch back ahead of entries recorded since, keeping
// at most maxPending of the newest.
func (a *AccessLog) requeue(batch []*Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	merged := append(batch, a.buffer...)
	if over := len(merged) - a.maxPending; over > 0 {
		merged = merged[over:]
		a.dropped += over
		a.logger.Warn("observability: access log backlog full, oldest entries dropped",
			"dropped", over, "dropped_total", a.dropped)
	}
	a.buffer = merged
}

func (a *AccessLog) write(batch []*Request) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return dbopen.RunTx(ctx, a.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO http_request_logs (
				log_id, route_prefix, method, path, upstream_path, status_code,
				duration_ms, trace_id, ip_address, user_agent, created_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for _, r := range batch {
			if _, err := stmt.ExecContext(ctx, r.ID, r.RoutePrefix, r.Method, r.Path, r.UpstreamPath,
				r.Status, r.Duration.Milliseconds(), r.TraceID, r.IP, r.UserAgent, r.At.Unix()); err != nil {
				return fmt.Errorf("insert %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// Filter narrows Query results. Zero values mean "any".
type Filter struct {
	RoutePrefix string
	MinStatus   int
	Since       time.Time
	Limit       int
}

// Query returns logged requests, newest first.
func (a *AccessLog) Query(ctx context.Context, f Filter) ([]*Request, error) {
	q := `SELECT log_id, route_prefix, method, path, upstream_path, status_code,
		duration_ms, COALESCE(trace_id, ''), COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM http_request_logs WHERE 1=1`
	var args []any

	if f.RoutePrefix != "" {
		q += " AND route_prefix = ?"
		args = append(args, f.RoutePrefix)
	}
	if f.MinStatus > 0 {
		q += " AND status_code >= ?"
		args = append(args, f.MinStatus)
	}
	if !f.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, f.Since.Unix())
	}
	q += " ORDER BY created_at DESC, log_id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: query access log: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		var r Request
		var durMs, at int64
		if err := rows.Scan(&r.ID, &r.RoutePrefix, &r.Method, &r.Path, &r.UpstreamPath, &r.Status,
			&durMs, &r.TraceID, &r.IP, &r.UserAgent, &at); err != nil {
			return nil, fmt.Errorf("observability: scan access log: %w", err)
		}
		r.Duration = time.Duration(durMs) * time.Millisecond
		r.At = time.Unix(at, 0)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Cleanup deletes entries older than retentionDays and returns how many were
// removed. retentionDays <= 0 is a no-op.
func (a *AccessLog) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	threshold := time.Now().AddDate(0, 0, -retentionDays).Unix()
	res, err := a.db.ExecContext(ctx, `DELETE FROM http_request_logs WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("observability: cleanup access log: %w", err)
	}
	return res.RowsAffected()
}

// StartRetention runs Cleanup every interval until ctx is cancelled.
func (a *AccessLog) StartRetention(ctx context.Context, retentionDays int, interval time.Duration) {
	if retentionDays <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := a.Cleanup(ctx, retentionDays)
				if err != nil {
					a.logger.Warn("observability: retention cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					a.logger.Info("observability: access log pruned", "rows", n)
				}
			}
		}
	}()
}

package observability

import "database/sql"

// Schema is the DDL for the gateway access log. Apply it with Init or pass it
// to dbopen.WithSchema. All statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS http_request_logs (
    log_id        TEXT PRIMARY KEY,
    route_prefix  TEXT NOT NULL DEFAULT '',
    method        TEXT NOT NULL,
    path          TEXT NOT NULL,
    upstream_path TEXT NOT NULL DEFAULT '',
    status_code   INTEGER NOT NULL,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    trace_id      TEXT,
    ip_address    TEXT,
    user_agent    TEXT,
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_http_logs_time ON http_request_logs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_http_logs_route ON http_request_logs(route_prefix, created_at DESC);
`

// Init applies Schema to db.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

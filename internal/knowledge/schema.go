package knowledge

// schema contains the DDL for the execution log. Records are append-only;
// rankings and statistics are derived by aggregate queries, never stored.
const schema = `
CREATE TABLE IF NOT EXISTS executions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    domain       TEXT NOT NULL,
    task         TEXT NOT NULL,
    algorithm    TEXT NOT NULL,
    selector     TEXT NOT NULL DEFAULT '',
    fields       TEXT NOT NULL DEFAULT '{}',
    success      INTEGER NOT NULL,
    items        INTEGER NOT NULL DEFAULT 0,
    elapsed_ms   INTEGER NOT NULL DEFAULT 0,
    failure_kind TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_group ON executions(domain, task, algorithm);
CREATE INDEX IF NOT EXISTS idx_executions_task ON executions(task, algorithm);
CREATE INDEX IF NOT EXISTS idx_executions_time ON executions(created_at DESC);
`

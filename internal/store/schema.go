package store

const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	input_ref TEXT NOT NULL,
	output_ref TEXT,
	progress REAL NOT NULL DEFAULT 0,
	error_summary TEXT,
	params TEXT NOT NULL DEFAULT '{}',
	archived INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);

-- Execution messages. One row per undelivered or in-flight message; a row
-- becomes claimable again once visible_after has passed (at-least-once).
CREATE TABLE IF NOT EXISTS queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id INTEGER NOT NULL UNIQUE,
	payload TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	visible_after DATETIME NOT NULL,
	claim_token TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queue_visible_after ON queue(visible_after);
`

// Package store provides SQLite-backed persistence for Autopiloot's
// orchestration state: video lifecycle rows, job dispatch records, the
// dead-letter queue, checkpoints, daily cost totals, and the audit log.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup by key finds no row.
var ErrNotFound = fmt.Errorf("store: not found")

// ErrStaleState is returned by a compare-and-swap status transition when
// the row's current status no longer matches the expected value —
// another goroutine (or a previous crashed run) already moved it on.
var ErrStaleState = fmt.Errorf("store: stale state")

// Store provides SQLite-backed persistence for Autopiloot state.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	video_id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	channel_handle TEXT NOT NULL DEFAULT '',
	duration_sec INTEGER NOT NULL DEFAULT 0,
	published_at DATETIME,
	status TEXT NOT NULL DEFAULT 'discovered',
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS transcripts (
	video_id TEXT PRIMARY KEY REFERENCES videos(video_id),
	text_path TEXT NOT NULL DEFAULT '',
	json_path TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS summaries (
	video_id TEXT PRIMARY KEY REFERENCES videos(video_id),
	short_path TEXT NOT NULL DEFAULT '',
	zep_doc_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	job_id TEXT PRIMARY KEY,
	agent TEXT NOT NULL,
	job_type TEXT NOT NULL,
	video_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'dispatched',
	attempt INTEGER NOT NULL DEFAULT 0,
	dispatched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs_deadletter (
	dlq_id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL DEFAULT '',
	agent TEXT NOT NULL,
	job_type TEXT NOT NULL,
	video_id TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL,
	severity TEXT NOT NULL DEFAULT 'low',
	recovery_priority TEXT NOT NULL DEFAULT 'low',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS checkpoints (
	scope TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS costs_daily (
	day TEXT PRIMARY KEY,
	transcription_usd REAL NOT NULL DEFAULT 0,
	llm_usd REAL NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	entity_id TEXT NOT NULL DEFAULT '',
	details TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_videos_status ON videos(status);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_video ON jobs(video_id);
CREATE INDEX IF NOT EXISTS idx_deadletter_created ON jobs_deadletter(created_at);
CREATE INDEX IF NOT EXISTS idx_deadletter_video ON jobs_deadletter(video_id);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_logs(entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_logs(created_at);
`

// Open creates or opens a SQLite database at dbPath and ensures the
// schema exists.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sql.DB for advanced queries (e.g. the
// observability package's aggregate reports).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Video is the persisted lifecycle row for one discovered YouTube video.
type Video struct {
	VideoID       string
	URL           string
	Title         string
	ChannelHandle string
	DurationSec   int
	PublishedAt   sql.NullTime
	Status        string
	RetryCount    int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const videoCols = `video_id, url, title, channel_handle, duration_sec, published_at, status, retry_count, last_error, created_at, updated_at`

// UpsertVideo inserts a newly discovered video, or updates title/duration
// metadata on an existing one while preserving its status, retry count,
// and created_at. The first write sets created_at; later writes never
// move it.
func (s *Store) UpsertVideo(v Video) error {
	_, err := s.db.Exec(
		`INSERT INTO videos (video_id, url, title, channel_handle, duration_sec, published_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, 'discovered')
		 ON CONFLICT(video_id) DO UPDATE SET
		   title=excluded.title,
		   channel_handle=excluded.channel_handle,
		   duration_sec=excluded.duration_sec,
		   published_at=excluded.published_at,
		   updated_at=datetime('now')`,
		v.VideoID, v.URL, v.Title, v.ChannelHandle, v.DurationSec, v.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upsert video %s: %w", v.VideoID, err)
	}
	return nil
}

// GetVideo loads a video by ID.
func (s *Store) GetVideo(videoID string) (*Video, error) {
	row := s.db.QueryRow(`SELECT `+videoCols+` FROM videos WHERE video_id = ?`, videoID)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get video %s: %w", videoID, err)
	}
	return v, nil
}

func scanVideo(row *sql.Row) (*Video, error) {
	var v Video
	if err := row.Scan(
		&v.VideoID, &v.URL, &v.Title, &v.ChannelHandle, &v.DurationSec, &v.PublishedAt,
		&v.Status, &v.RetryCount, &v.LastError, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

// TransitionVideoStatus performs a compare-and-swap status update: the
// row is only updated if its current status equals expectedCurrent. It
// returns ErrStaleState if another writer already moved the row past
// expectedCurrent, and ErrNotFound if the video doesn't exist at all.
// lastError, when non-empty, is recorded and retry_count is incremented;
// an empty lastError leaves retry_count untouched.
func (s *Store) TransitionVideoStatus(videoID, expectedCurrent, newStatus, lastError string) error {
	if _, err := s.GetVideo(videoID); err != nil {
		return err
	}

	var res sql.Result
	var err error
	if lastError != "" {
		res, err = s.db.Exec(
			`UPDATE videos SET status = ?, last_error = ?, retry_count = retry_count + 1, updated_at = datetime('now')
			 WHERE video_id = ? AND status = ?`,
			newStatus, lastError, videoID, expectedCurrent,
		)
	} else {
		res, err = s.db.Exec(
			`UPDATE videos SET status = ?, updated_at = datetime('now')
			 WHERE video_id = ? AND status = ?`,
			newStatus, videoID, expectedCurrent,
		)
	}
	if err != nil {
		return fmt.Errorf("store: transition video %s: %w", videoID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: transition video %s: %w", videoID, err)
	}
	if affected == 0 {
		return ErrStaleState
	}
	return nil
}

// QueryVideosByStatus returns videos in the given status, most recently
// updated first, capped at limit rows.
func (s *Store) QueryVideosByStatus(status string, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+videoCols+` FROM videos WHERE status = ? ORDER BY updated_at DESC LIMIT ?`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query videos by status %s: %w", status, err)
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		var v Video
		if err := rows.Scan(
			&v.VideoID, &v.URL, &v.Title, &v.ChannelHandle, &v.DurationSec, &v.PublishedAt,
			&v.Status, &v.RetryCount, &v.LastError, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan video: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RecordTranscriptAndAdvance transactionally writes the transcript row
// and moves the video from "transcribing" to "transcribed" in one
// commit, so a crash between the two writes can never leave a transcript
// orphaned from its video's lifecycle state.
func (s *Store) RecordTranscriptAndAdvance(videoID, textPath, jsonPath string, wordCount int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transcript tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO transcripts (video_id, text_path, json_path, word_count) VALUES (?, ?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET text_path=excluded.text_path, json_path=excluded.json_path, word_count=excluded.word_count`,
		videoID, textPath, jsonPath, wordCount,
	); err != nil {
		return fmt.Errorf("store: insert transcript: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE videos SET status = 'transcribed', updated_at = datetime('now') WHERE video_id = ? AND status = 'transcribing'`,
		videoID,
	)
	if err != nil {
		return fmt.Errorf("store: advance video after transcript: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: advance video after transcript: %w", err)
	}
	if affected == 0 {
		return ErrStaleState
	}

	return tx.Commit()
}

// RecordSummaryAndAdvance transactionally writes the summary row and
// moves the video from "summarizing" to "summarized".
func (s *Store) RecordSummaryAndAdvance(videoID, shortPath, zepDocID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin summary tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO summaries (video_id, short_path, zep_doc_id) VALUES (?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET short_path=excluded.short_path, zep_doc_id=excluded.zep_doc_id`,
		videoID, shortPath, zepDocID,
	); err != nil {
		return fmt.Errorf("store: insert summary: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE videos SET status = 'summarized', updated_at = datetime('now') WHERE video_id = ? AND status = 'summarizing'`,
		videoID,
	)
	if err != nil {
		return fmt.Errorf("store: advance video after summary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: advance video after summary: %w", err)
	}
	if affected == 0 {
		return ErrStaleState
	}

	return tx.Commit()
}

// Job is an in-flight dispatch record for one agent invocation.
type Job struct {
	JobID        string
	Agent        string
	JobType      string
	VideoID      string
	Payload      string
	Status       string
	Attempt      int
	DispatchedAt time.Time
	UpdatedAt    time.Time
}

const jobCols = `job_id, agent, job_type, video_id, payload, status, attempt, dispatched_at, updated_at`

// InsertJobIfAbsent inserts a job row keyed by the idempotent job_id,
// returning (false, nil) without error if a job with that ID already
// exists — the orchestrator's dispatch path relies on this to collapse
// duplicate dispatches of the same logical unit of work.
func (s *Store) InsertJobIfAbsent(j Job) (inserted bool, err error) {
	res, err := s.db.Exec(
		`INSERT INTO jobs (job_id, agent, job_type, video_id, payload, status, attempt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO NOTHING`,
		j.JobID, j.Agent, j.JobType, j.VideoID, j.Payload, j.Status, j.Attempt,
	)
	if err != nil {
		return false, fmt.Errorf("store: insert job %s: %w", j.JobID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: insert job %s: %w", j.JobID, err)
	}
	return affected > 0, nil
}

// GetJob loads a job by ID.
func (s *Store) GetJob(jobID string) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobCols+` FROM jobs WHERE job_id = ?`, jobID)
	var j Job
	if err := row.Scan(&j.JobID, &j.Agent, &j.JobType, &j.VideoID, &j.Payload, &j.Status, &j.Attempt, &j.DispatchedAt, &j.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get job %s: %w", jobID, err)
	}
	return &j, nil
}

// UpdateJobStatus updates a job's status (e.g. "running", "completed",
// "failed").
func (s *Store) UpdateJobStatus(jobID, status string) error {
	_, err := s.db.Exec(`UPDATE jobs SET status = ?, updated_at = datetime('now') WHERE job_id = ?`, status, jobID)
	if err != nil {
		return fmt.Errorf("store: update job status %s: %w", jobID, err)
	}
	return nil
}

// DeleteJob removes a job's active record. Dead-letter routing does not
// call it; RouteToDeadLetterAndClearJob deletes the row in its own
// transaction.
func (s *Store) DeleteJob(jobID string) error {
	_, err := s.db.Exec(`DELETE FROM jobs WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("store: delete job %s: %w", jobID, err)
	}
	return nil
}

// GetActiveJobsForVideo returns non-terminal jobs for a video ID.
func (s *Store) GetActiveJobsForVideo(videoID string) ([]Job, error) {
	rows, err := s.db.Query(`SELECT `+jobCols+` FROM jobs WHERE video_id = ? AND status NOT IN ('completed', 'failed') ORDER BY dispatched_at DESC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("store: query active jobs for video %s: %w", videoID, err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.JobID, &j.Agent, &j.JobType, &j.VideoID, &j.Payload, &j.Status, &j.Attempt, &j.DispatchedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// DeadLetterEntry is a routed-to-DLQ job record.
type DeadLetterEntry struct {
	DLQID            string
	JobID            string
	Agent            string
	JobType          string
	VideoID          string
	Reason           string
	Severity         string
	RecoveryPriority string
	CreatedAt        time.Time
}

const dlqCols = `dlq_id, job_id, agent, job_type, video_id, reason, severity, recovery_priority, created_at`

// RouteToDeadLetterAndClearJob transactionally inserts the DLQ entry and
// deletes the job's active record, so a job is never visible both as
// "still active" and "dead-lettered" at once. Idempotent on dlqID: a
// duplicate route is a no-op, not an error.
func (s *Store) RouteToDeadLetterAndClearJob(entry DeadLetterEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin dlq tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO jobs_deadletter (dlq_id, job_id, agent, job_type, video_id, reason, severity, recovery_priority)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(dlq_id) DO NOTHING`,
		entry.DLQID, entry.JobID, entry.Agent, entry.JobType, entry.VideoID, entry.Reason, entry.Severity, entry.RecoveryPriority,
	); err != nil {
		return fmt.Errorf("store: insert dlq entry %s: %w", entry.DLQID, err)
	}

	if entry.JobID != "" {
		if _, err := tx.Exec(`DELETE FROM jobs WHERE job_id = ?`, entry.JobID); err != nil {
			return fmt.Errorf("store: clear job %s after dlq route: %w", entry.JobID, err)
		}
	}

	return tx.Commit()
}

// GetDeadLetterByJobID returns the most recent DLQ entry routed for the
// given job ID, or ErrNotFound if the job has never been dead-lettered.
// Callers use this to make HandleDLQ idempotent even when the job's
// active record has already been cleared by a prior routing.
func (s *Store) GetDeadLetterByJobID(jobID string) (*DeadLetterEntry, error) {
	row := s.db.QueryRow(`SELECT `+dlqCols+` FROM jobs_deadletter WHERE job_id = ? ORDER BY created_at DESC LIMIT 1`, jobID)
	var e DeadLetterEntry
	if err := row.Scan(&e.DLQID, &e.JobID, &e.Agent, &e.JobType, &e.VideoID, &e.Reason, &e.Severity, &e.RecoveryPriority, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get dlq entry for job %s: %w", jobID, err)
	}
	return &e, nil
}

// QueryDeadLetterWindow returns DLQ entries created within the last
// window, optionally filtered by agent and/or video ID, newest first,
// capped at limit rows.
func (s *Store) QueryDeadLetterWindow(window time.Duration, agent, videoID string, limit int) ([]DeadLetterEntry, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().Add(-window).UTC().Format(time.DateTime)

	query := `SELECT ` + dlqCols + ` FROM jobs_deadletter WHERE created_at >= ?`
	args := []any{cutoff}
	if agent != "" {
		query += ` AND agent = ?`
		args = append(args, agent)
	}
	if videoID != "" {
		query += ` AND video_id = ?`
		args = append(args, videoID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query dlq window: %w", err)
	}
	defer rows.Close()

	var out []DeadLetterEntry
	for rows.Next() {
		var e DeadLetterEntry
		if err := rows.Scan(&e.DLQID, &e.JobID, &e.Agent, &e.JobType, &e.VideoID, &e.Reason, &e.Severity, &e.RecoveryPriority, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan dlq entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetCheckpoint upserts a named checkpoint value (e.g. the last
// processed sheet row, or a per-service resume cursor).
func (s *Store) SetCheckpoint(scope, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO checkpoints (scope, value) VALUES (?, ?)
		 ON CONFLICT(scope) DO UPDATE SET value=excluded.value, updated_at=datetime('now')`,
		scope, value,
	)
	if err != nil {
		return fmt.Errorf("store: set checkpoint %s: %w", scope, err)
	}
	return nil
}

// GetCheckpoint reads a named checkpoint value, returning ErrNotFound if
// it has never been set.
func (s *Store) GetCheckpoint(scope string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM checkpoints WHERE scope = ?`, scope).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get checkpoint %s: %w", scope, err)
	}
	return value, nil
}

// AddDailyCost accumulates spend onto the row for day (format
// "yyyy-mm-dd"), creating it if absent.
func (s *Store) AddDailyCost(day string, transcriptionUSD, llmUSD float64) error {
	_, err := s.db.Exec(
		`INSERT INTO costs_daily (day, transcription_usd, llm_usd) VALUES (?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET
		   transcription_usd = transcription_usd + excluded.transcription_usd,
		   llm_usd = llm_usd + excluded.llm_usd,
		   updated_at = datetime('now')`,
		day, transcriptionUSD, llmUSD,
	)
	if err != nil {
		return fmt.Errorf("store: add daily cost %s: %w", day, err)
	}
	return nil
}

// DailyCost is the accumulated spend for one calendar day.
type DailyCost struct {
	Day              string
	TranscriptionUSD float64
	LLMUSD           float64
}

// GetDailyCost reads the accumulated spend for day, returning a zeroed
// DailyCost (not an error) if nothing has been recorded yet.
func (s *Store) GetDailyCost(day string) (DailyCost, error) {
	var c DailyCost
	c.Day = day
	err := s.db.QueryRow(`SELECT transcription_usd, llm_usd FROM costs_daily WHERE day = ?`, day).Scan(&c.TranscriptionUSD, &c.LLMUSD)
	if err == sql.ErrNoRows {
		return c, nil
	}
	if err != nil {
		return DailyCost{}, fmt.Errorf("store: get daily cost %s: %w", day, err)
	}
	return c, nil
}

// AppendAudit writes an immutable, server-timestamped audit entry. It is
// the single write path every other package in this module uses to
// record what happened — the audit log is never updated or deleted, only
// appended to.
func (s *Store) AppendAudit(eventType, entityID, detailsJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_logs (event_type, entity_id, details) VALUES (?, ?, ?)`,
		eventType, entityID, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("store: append audit %s: %w", eventType, err)
	}
	return nil
}

// AuditEntry is one immutable audit-log row.
type AuditEntry struct {
	ID        int64
	EventType string
	EntityID  string
	Details   string
	CreatedAt time.Time
}

// QueryAuditByEntity returns audit entries for entityID, oldest first,
// for replaying an entity's full history.
func (s *Store) QueryAuditByEntity(entityID string) ([]AuditEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, event_type, entity_id, details, created_at FROM audit_logs WHERE entity_id = ? ORDER BY id ASC`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query audit for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

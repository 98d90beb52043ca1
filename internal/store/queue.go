package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voskhod/whisperd/internal/domain"
)

// Message is the execution payload published for each submitted job. It
// carries references and the frozen parameter snapshot, never bulk data;
// workers resolve input/output against the artifact store directly.
type Message struct {
	JobID    int64            `json:"job_id"`
	Type     domain.JobType   `json:"job_type"`
	InputRef string           `json:"input_ref"`
	Params   domain.JobParams `json:"params"`
}

// Claimed is a message held by exactly one worker until the visibility
// timeout elapses or the worker acks it.
type Claimed struct {
	Message
	Token    string
	Attempts int
}

// Enqueue publishes an execution message. Publishing twice for the same job
// is a no-op, which makes the reconciliation sweep idempotent.
func (db *DB) Enqueue(msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	now := time.Now()
	_, err = db.Exec(`INSERT OR IGNORE INTO queue (job_id, payload, visible_after, created_at) VALUES (?, ?, ?, ?)`,
		msg.JobID, string(payload), now, now)
	return err
}

// Claim takes exclusive ownership of the oldest visible message, hiding it
// from other consumers for the visibility window. Returns nil when the
// queue is empty. The single-statement compare-and-set stands in for the
// broker's competing-consumers delivery: concurrent claimers are serialized
// by the database, so each message goes to exactly one worker at a time.
func (db *DB) Claim(visibility time.Duration) (*Claimed, error) {
	token := uuid.New().String()
	now := time.Now()

	res, err := db.Exec(`UPDATE queue SET claim_token = ?, attempts = attempts + 1, visible_after = ?
		WHERE id = (SELECT id FROM queue WHERE visible_after <= ? ORDER BY id ASC LIMIT 1)`,
		token, now.Add(visibility), now)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	var row struct {
		Payload  string `db:"payload"`
		Attempts int    `db:"attempts"`
	}
	err = db.Get(&row, `SELECT payload, attempts FROM queue WHERE claim_token = ?`, token)
	if err == sql.ErrNoRows {
		// Claimed row was deleted underneath us (job delete); nothing to do.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	claimed := &Claimed{Token: token, Attempts: row.Attempts}
	if err := json.Unmarshal([]byte(row.Payload), &claimed.Message); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return claimed, nil
}

// ExtendClaim pushes the visibility horizon out for a long-running
// execution (heartbeat). A stale token extends nothing.
func (db *DB) ExtendClaim(token string, visibility time.Duration) error {
	_, err := db.Exec(`UPDATE queue SET visible_after = ? WHERE claim_token = ?`,
		time.Now().Add(visibility), token)
	return err
}

// Ack removes a delivered message once its job reached a terminal status.
func (db *DB) Ack(token string) error {
	_, err := db.Exec(`DELETE FROM queue WHERE claim_token = ?`, token)
	return err
}

// QueueDepth reports the number of undelivered or in-flight messages.
func (db *DB) QueueDepth() (int, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM queue`)
	return n, err
}

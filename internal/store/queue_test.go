package store

import (
	"testing"
	"time"

	"github.com/voskhod/whisperd/internal/domain"
)

func enqueueTestJob(t *testing.T, db *DB) *domain.Job {
	t.Helper()
	job := createTestJob(t, db, domain.JobTypeTranscribe)
	msg := &Message{JobID: job.ID, Type: job.Type, InputRef: job.InputRef, Params: job.Params}
	if err := db.Enqueue(msg); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return job
}

func TestEnqueueIsIdempotent(t *testing.T) {
	db := testDB(t)
	job := enqueueTestJob(t, db)

	// A second publish for the same job must not create a duplicate.
	if err := db.Enqueue(&Message{JobID: job.ID, Type: job.Type, InputRef: job.InputRef}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	depth, err := db.QueueDepth()
	if err != nil {
		t.Fatalf("QueueDepth failed: %v", err)
	}
	if depth != 1 {
		t.Errorf("Expected depth 1, got %d", depth)
	}
}

func TestClaim(t *testing.T) {
	db := testDB(t)
	job := enqueueTestJob(t, db)

	claimed, err := db.Claim(time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed == nil {
		t.Fatal("Expected a claimed message")
	}
	if claimed.JobID != job.ID {
		t.Errorf("Expected job %d, got %d", job.ID, claimed.JobID)
	}
	if claimed.Attempts != 1 {
		t.Errorf("Expected attempt 1, got %d", claimed.Attempts)
	}
	if claimed.Token == "" {
		t.Error("Expected a claim token")
	}
	if !claimed.Params.EnableTimestamp {
		t.Error("Expected params to round-trip through the payload")
	}

	// The message is invisible while claimed.
	second, err := db.Claim(time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if second != nil {
		t.Errorf("Expected no visible message, got job %d", second.JobID)
	}
}

func TestClaim_EmptyQueue(t *testing.T) {
	db := testDB(t)

	claimed, err := db.Claim(time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed != nil {
		t.Errorf("Expected nil from empty queue, got %+v", claimed)
	}
}

func TestClaim_OldestFirst(t *testing.T) {
	db := testDB(t)
	first := enqueueTestJob(t, db)
	enqueueTestJob(t, db)

	claimed, err := db.Claim(time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed == nil || claimed.JobID != first.ID {
		t.Errorf("Expected oldest message (job %d) first, got %+v", first.ID, claimed)
	}
}

func TestClaim_RedeliveryAfterVisibilityTimeout(t *testing.T) {
	db := testDB(t)
	job := enqueueTestJob(t, db)

	claimed, err := db.Claim(20 * time.Millisecond)
	if err != nil || claimed == nil {
		t.Fatalf("Claim failed: %v %v", claimed, err)
	}

	time.Sleep(50 * time.Millisecond)

	redelivered, err := db.Claim(time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if redelivered == nil {
		t.Fatal("Expected redelivery after visibility timeout")
	}
	if redelivered.JobID != job.ID {
		t.Errorf("Expected job %d, got %d", job.ID, redelivered.JobID)
	}
	if redelivered.Attempts != 2 {
		t.Errorf("Expected attempt 2, got %d", redelivered.Attempts)
	}
	if redelivered.Token == claimed.Token {
		t.Error("Expected a fresh claim token on redelivery")
	}
}

func TestExtendClaim(t *testing.T) {
	db := testDB(t)
	enqueueTestJob(t, db)

	claimed, err := db.Claim(30 * time.Millisecond)
	if err != nil || claimed == nil {
		t.Fatalf("Claim failed: %v %v", claimed, err)
	}

	if err := db.ExtendClaim(claimed.Token, time.Minute); err != nil {
		t.Fatalf("ExtendClaim failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	second, err := db.Claim(time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if second != nil {
		t.Error("Expected extended claim to stay invisible")
	}
}

func TestAck(t *testing.T) {
	db := testDB(t)
	enqueueTestJob(t, db)

	claimed, err := db.Claim(time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("Claim failed: %v %v", claimed, err)
	}

	if err := db.Ack(claimed.Token); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	depth, _ := db.QueueDepth()
	if depth != 0 {
		t.Errorf("Expected empty queue after ack, depth %d", depth)
	}

	// Acking a stale token is harmless.
	if err := db.Ack(claimed.Token); err != nil {
		t.Errorf("Second ack failed: %v", err)
	}
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/voskhod/whisperd/internal/domain"
)

func TestNewSQLiteDB_AppliesSchema(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('jobs', 'queue')`)
	if err != nil {
		t.Fatalf("Failed to inspect schema: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected jobs and queue tables, found %d", count)
	}
}

func TestMigrate_AddsArchivedColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Seed a database from before the archived flag existed.
	legacy, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open legacy db: %v", err)
	}
	_, err = legacy.Exec(`CREATE TABLE jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		input_ref TEXT NOT NULL,
		output_ref TEXT,
		progress REAL NOT NULL DEFAULT 0,
		error_summary TEXT,
		params TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME
	)`)
	if err != nil {
		t.Fatalf("Failed to create legacy schema: %v", err)
	}
	if err := legacy.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("Failed to reopen db: %v", err)
	}
	defer db.Close()

	job := NewJob(domain.JobTypeTranscribe, "a.mp3", domain.JobParams{})
	if err := db.CreateJob(job); err != nil {
		t.Fatalf("CreateJob on migrated db failed: %v", err)
	}

	fetched, err := db.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fetched.Archived {
		t.Error("Expected migrated column to default to false")
	}
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validRecord = `{
	"id": "g1",
	"created_at": "2026-01-02T15:04:05Z",
	"updated_at": "2026-01-02T15:04:05Z",
	"game": {
		"session_id": "g1",
		"player1": {"id": "alice", "left": 1, "right": 2},
		"player2": {"id": "bob", "left": 0, "right": 3},
		"state": {"status": "in_progress"},
		"current_turn": "player2"
	}
}`

func writeRecord(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write record: %v", err)
	}
}

func TestValidateDir_ValidRecord(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "g1.json", validRecord)

	results, err := validateDir(context.Background(), dir, 10000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	result := results[0]
	if !result.Valid {
		t.Errorf("Expected valid record, got errors: %v", result.Errors)
	}
	if result.File != "g1.json" {
		t.Errorf("Expected file g1.json, got %s", result.File)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "bob to move") {
		t.Errorf("Expected a summary naming bob, got %v", result.Errors)
	}
}

func TestValidateDir_CorruptGame(t *testing.T) {
	dir := t.TempDir()
	corrupt := strings.Replace(validRecord, `"right": 3`, `"right": 7`, 1)
	writeRecord(t, dir, "g1.json", corrupt)

	results, err := validateDir(context.Background(), dir, 10000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if results[0].Valid {
		t.Fatal("Expected record with an out of range hand to be invalid")
	}
	if !strings.HasPrefix(results[0].Errors[0], "Corrupt game") {
		t.Errorf("Expected corrupt game error, got %v", results[0].Errors)
	}
}

func TestValidateDir_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "broken.json", `{"id": "broken", `)

	results, err := validateDir(context.Background(), dir, 10000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if results[0].Valid {
		t.Fatal("Expected invalid JSON to fail")
	}
	if !strings.HasPrefix(results[0].Errors[0], "Unreadable record") {
		t.Errorf("Expected unreadable record error, got %v", results[0].Errors)
	}
}

func TestValidateDir_MismatchedFileName(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "other.json", validRecord)

	results, err := validateDir(context.Background(), dir, 10000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if results[0].Valid {
		t.Error("Expected a record stored under the wrong name to be invalid")
	}
}

func TestValidateDir_TooLarge(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "g1.json", validRecord)

	results, err := validateDir(context.Background(), dir, 64)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if results[0].Valid {
		t.Fatal("Expected oversized record to be invalid")
	}
	if !strings.Contains(results[0].Errors[0], "limit is 64") {
		t.Errorf("Expected size error, got %v", results[0].Errors)
	}
}

func TestValidateDir_SkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "g1.json", validRecord)
	writeRecord(t, dir, "notes.txt", "not a session")
	writeRecord(t, dir, ".g2.json.tmp", "{}")

	results, err := validateDir(context.Background(), dir, 10000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected only the session record to be checked, got %d", len(results))
	}
}

func TestValidateDir_MissingDir(t *testing.T) {
	_, err := validateDir(context.Background(), filepath.Join(t.TempDir(), "missing"), 10000)
	if err == nil {
		t.Error("Expected error for a missing directory")
	}
}

func TestDescribe_Waiting(t *testing.T) {
	dir := t.TempDir()
	waiting := `{"id":"w1","created_at":"2026-01-02T15:04:05Z","updated_at":"2026-01-02T15:04:05Z",
		"game":{"session_id":"w1","player1":{"id":"carol","left":1,"right":1},
		"state":{"status":"waiting_for_player"},"current_turn":"player1"}}`
	writeRecord(t, dir, "w1.json", waiting)

	results, err := validateDir(context.Background(), dir, 10000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !results[0].Valid || !strings.Contains(results[0].Errors[0], "created by carol") {
		t.Errorf("Expected waiting summary, got %+v", results[0])
	}
}

// Command validate checks the session records a file store has written.
// For every *.json file in the sessions directory (./sessions unless a path
// is given) it checks:
//   - The record fits the store's size limit
//   - JSON structure and the presence of a game
//   - The file name, record id and game session id agree
//   - The game invariants: hand counts, status, turn and winner
//
// It exits non-zero when any record is invalid.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wricardo/chopsticks/game/engine"
	"github.com/wricardo/chopsticks/game/session"
)

// ValidationResult captures the outcome of validating a single record.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the problems that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateSession loads one record through the file store and reports what
// is wrong with it.
func validateSession(ctx context.Context, store *session.FilePersistence, dir, id string, maxSize int) ValidationResult {
	path := filepath.Join(dir, id+".json")
	result := ValidationResult{
		File:   filepath.Base(path),
		Valid:  true,
		Errors: []string{},
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to stat file: %v", err))
		return result
	}
	if info.Size() > int64(maxSize) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Record is %d bytes, limit is %d", info.Size(), maxSize))
	}

	sess, err := store.Load(ctx, id)
	if err != nil {
		result.Valid = false
		if errors.Is(err, engine.ErrCorruptGame) {
			result.Errors = append(result.Errors, fmt.Sprintf("Corrupt game: %v", err))
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("Unreadable record: %v", err))
		}
		return result
	}

	if result.Valid {
		result.Errors = append(result.Errors, describe(sess))
	}
	return result
}

// describe summarizes a valid session for the report
func describe(sess *session.Session) string {
	g := sess.Game
	switch g.State.Status {
	case engine.StatusFinished:
		return fmt.Sprintf("finished, won by %s", g.State.Winner)
	case engine.StatusInProgress:
		msg := fmt.Sprintf("in progress, %s to move", g.ActivePlayer().ID)
		if g.ActivePlayer().Dead() {
			msg += " (player to move has no live hand)"
		}
		return msg
	default:
		return fmt.Sprintf("waiting for a second player, created by %s", g.Player1.ID)
	}
}

// validateDir validates every session record in dir
func validateDir(ctx context.Context, dir string, maxSize int) ([]ValidationResult, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("sessions directory: %w", err)
	}

	store, err := session.NewFilePersistence(dir, maxSize)
	if err != nil {
		return nil, err
	}

	ids, err := store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]ValidationResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, validateSession(ctx, store, dir, id, maxSize))
	}
	return results, nil
}

func main() {
	dir := "sessions"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	results, err := validateDir(context.Background(), dir, session.DefaultMaxRecordSize)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Validating session records in %s\n", dir)
	fmt.Println("=====================================")

	allValid := true
	for _, result := range results {
		if result.Valid {
			fmt.Printf("✅ %s: VALID\n", result.File)
			for _, info := range result.Errors {
				fmt.Printf("   ℹ️  %s\n", info)
			}
		} else {
			allValid = false
			fmt.Printf("❌ %s: INVALID\n", result.File)
			for _, e := range result.Errors {
				fmt.Printf("   - %s\n", e)
			}
		}
	}

	fmt.Println("=====================================")
	fmt.Printf("%d record(s) checked\n", len(results))
	if allValid {
		fmt.Println("✅ All session records are valid!")
	} else {
		fmt.Println("❌ Some session records have errors")
		os.Exit(1)
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilePersistence implements Store with one JSON file per session
type FilePersistence struct {
	sessionsDir   string
	maxRecordSize int
}

// NewFilePersistence creates a file-based store rooted at sessionsDir.
// A maxRecordSize of zero selects DefaultMaxRecordSize.
func NewFilePersistence(sessionsDir string, maxRecordSize int) (*FilePersistence, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	if maxRecordSize <= 0 {
		maxRecordSize = DefaultMaxRecordSize
	}

	return &FilePersistence{
		sessionsDir:   sessionsDir,
		maxRecordSize: maxRecordSize,
	}, nil
}

// Save writes the session atomically: the record goes to a temp file in the
// same directory which is then renamed over the previous one.
func (fp *FilePersistence) Save(ctx context.Context, session *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if err := validID(session.ID); err != nil {
		return err
	}

	data, err := encodeSession(session, fp.maxRecordSize)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(fp.sessionsDir, "."+session.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, fp.getFilePath(session.ID)); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

// Load reads and validates a session file
func (fp *FilePersistence) Load(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fp.getFilePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	session, err := decodeSession(data)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if session.ID != id {
		return nil, fmt.Errorf("session file %s holds session %s", id, session.ID)
	}
	return session, nil
}

// ListAll returns all persisted session IDs in lexical order
func (fp *FilePersistence) ListAll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		sessionIDs = append(sessionIDs, strings.TrimSuffix(name, ".json"))
	}

	sort.Strings(sessionIDs)
	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validID(id); err != nil {
		return false, err
	}

	_, err := os.Stat(fp.getFilePath(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat session file: %w", err)
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, id+".json")
}

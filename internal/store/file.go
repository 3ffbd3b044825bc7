package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"truck-inspection-backend/internal/model"
)

const maxAppendAttempts = 3

// fileDocument is the on-disk shape of the list. Version increases by one on
// every successful append.
type fileDocument struct {
	Version     int64                    `json:"version"`
	Inspections []model.InspectionRecord `json:"inspections"`
}

// FileStore keeps the whole Persisted List in a single JSON file, replaced
// atomically on every append. A bare JSON array (the browser storage format)
// is accepted as version 0.
type FileStore struct {
	path   string
	logger *zap.SugaredLogger

	mu sync.Mutex
	// beforeCommit runs between reading and committing an append; tests use
	// it to simulate another writer.
	beforeCommit func()
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string, logger *zap.SugaredLogger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) read() (fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fileDocument{}, nil
	}
	if err != nil {
		return fileDocument{}, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fileDocument{}, nil
	}

	var doc fileDocument
	if trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &doc.Inspections)
	} else {
		err = json.Unmarshal(trimmed, &doc)
	}
	if err != nil {
		return fileDocument{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, nil
}

// ListAll implements Repository. A missing or unreadable file yields an empty list.
func (s *FileStore) ListAll(_ context.Context) ([]model.InspectionRecord, error) {
	doc, err := s.read()
	if err != nil {
		s.logger.Warnw("treating unreadable inspection file as empty", "path", s.path, "err", err)
		return []model.InspectionRecord{}, nil
	}
	if doc.Inspections == nil {
		return []model.InspectionRecord{}, nil
	}
	return doc.Inspections, nil
}

// Append implements Repository with optimistic versioning: the document is
// read, extended, and committed only if its version has not moved in the
// meantime. Appends within one process are serialized; the version check
// catches other processes writing the same file. It retries a few times
// before giving up with ErrConflict. A corrupt file is never overwritten.
func (s *FileStore) Append(ctx context.Context, rec model.InspectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := s.read()
		if err != nil {
			return err
		}
		doc.Inspections = append(doc.Inspections, rec)
		expected := doc.Version
		doc.Version++

		if s.beforeCommit != nil {
			s.beforeCommit()
		}

		err = s.commit(doc, expected)
		if errors.Is(err, ErrConflict) {
			s.logger.Debugw("inspection file changed during append, retrying", "attempt", attempt)
			continue
		}
		return err
	}
	return fmt.Errorf("%w: gave up after %d attempts", ErrConflict, maxAppendAttempts)
}

func (s *FileStore) commit(doc fileDocument, expected int64) error {
	current, err := s.read()
	if err != nil {
		return err
	}
	if current.Version != expected {
		return ErrConflict
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode inspections: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

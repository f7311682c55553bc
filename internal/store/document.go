// Package store implements the two durable substrates behind the app:
// a synchronous JSON document file and an asynchronous bbolt blob database.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/model"
)

// Store owns the persisted application document. Every mutation goes through
// Update, which runs the mutation and the persist as one critical section, so
// a check-then-mutate sequence can never be interleaved or left unsaved.
type Store struct {
	path string
	log  *zap.Logger

	mu  sync.Mutex
	doc *model.Document
}

// Open loads the document at path. A missing or corrupt file falls back to
// the default document and is logged, never surfaced as an error. Legacy
// (untagged) documents are migrated to the current schema version.
func Open(path string, log *zap.Logger) *Store {
	s := &Store{path: path, log: log}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("document unreadable, using defaults", zap.String("path", path), zap.Error(err))
		}
		s.doc = model.DefaultDocument()
		return s
	}

	doc, err := decodeDocument(b)
	if err != nil {
		log.Warn("document corrupt, using defaults", zap.String("path", path), zap.Error(err))
		s.doc = model.DefaultDocument()
		return s
	}
	s.doc = doc
	return s
}

// Snapshot returns a deep copy of the current document for read paths.
func (s *Store) Snapshot() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *clone(s.doc)
}

// Update applies fn to a working copy of the document and persists the
// result atomically. If fn fails nothing changes; if the write fails the
// in-memory document is rolled back and ErrPersistence is returned.
func (s *Store) Update(fn func(doc *model.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := clone(s.doc)
	if err := fn(work); err != nil {
		return err
	}
	if err := s.persist(work); err != nil {
		return err
	}
	s.doc = work
	return nil
}

// Reset replaces the document with defaults and persists them. Used by the
// double-confirmed clear-all-data command.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := model.DefaultDocument()
	if err := s.persist(def); err != nil {
		return err
	}
	s.doc = def
	return nil
}

// persist writes doc to a temp file and renames it into place so a crash
// mid-write can never leave a truncated document behind.
func (s *Store) persist(doc *model.Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", errs.ErrPersistence, err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(dir, ".document-*")
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

func clone(doc *model.Document) *model.Document {
	b, err := json.Marshal(doc)
	if err != nil {
		// Document is a closed set of JSON-serializable types; this cannot
		// fail for any value constructed through the model package.
		panic(fmt.Sprintf("store: clone: %v", err))
	}
	var cp model.Document
	if err := json.Unmarshal(b, &cp); err != nil {
		panic(fmt.Sprintf("store: clone: %v", err))
	}
	return &cp
}

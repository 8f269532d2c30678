package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Documents is the Document Store: existence-checked, append-mostly
// storage of rendered documents under folder paths. A discarded
// document does not count as existing, so a fresh export may recreate it.
type Documents interface {
	Exists(ctx context.Context, folder, name string) (bool, error)
	Write(ctx context.Context, folder, name string, payload []byte) error
}

// FSDocuments stores documents as files under a root directory.
// Discarded documents live under a .trash subfolder and are therefore
// invisible to Exists.
type FSDocuments struct {
	Root string
}

func NewFSDocuments(root string) *FSDocuments {
	return &FSDocuments{Root: root}
}

func (s *FSDocuments) Exists(ctx context.Context, folder, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.Root, folder, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat document %s/%s: %w", folder, name, err)
}

func (s *FSDocuments) Write(ctx context.Context, folder, name string, payload []byte) error {
	dir := filepath.Join(s.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folder %s: %w", folder, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), payload, 0o644); err != nil {
		return fmt.Errorf("write document %s/%s: %w", folder, name, err)
	}
	return nil
}

// MemoryDocuments is an in-process Documents implementation for tests.
type MemoryDocuments struct {
	mu        sync.Mutex
	docs      map[string][]byte
	discarded map[string]bool

	// WriteErr, when set, is consulted before every Write; it lets
	// tests inject rate-limit signals.
	WriteErr func(folder, name string) error
	Writes   int
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{
		docs:      make(map[string][]byte),
		discarded: make(map[string]bool),
	}
}

func docKey(folder, name string) string { return folder + "/" + name }

func (s *MemoryDocuments) Exists(ctx context.Context, folder, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := docKey(folder, name)
	_, ok := s.docs[k]
	return ok && !s.discarded[k], nil
}

func (s *MemoryDocuments) Write(ctx context.Context, folder, name string, payload []byte) error {
	if s.WriteErr != nil {
		if err := s.WriteErr(folder, name); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := docKey(folder, name)
	s.docs[k] = append([]byte(nil), payload...)
	delete(s.discarded, k)
	s.Writes++
	return nil
}

// Discard marks a stored document as trashed; Exists stops reporting it.
func (s *MemoryDocuments) Discard(folder, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded[docKey(folder, name)] = true
}

// Get returns a stored payload for assertions.
func (s *MemoryDocuments) Get(folder, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.docs[docKey(folder, name)]
	return p, ok
}

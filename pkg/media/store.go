// Package media tracks opaque attachment references. The classifier and
// dispatch core treat refs as opaque strings; only capabilities that
// consume an attachment resolve it back to a local file.
package media

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Meta holds metadata about a stored media file.
type Meta struct {
	Filename    string
	ContentType string
	Source      string // "gateway", "tool:image-gen", etc.
}

// Store manages the lifecycle of media files attached to submissions.
type Store interface {
	// Register records an existing local file and returns its opaque
	// ref (e.g. "media://ab12cd34"). The file is not moved or copied.
	Register(localPath string, meta Meta) (ref string, err error)

	// Resolve returns the local file path for a ref.
	Resolve(ref string) (localPath string, err error)

	// Release removes the mapping and deletes the file. File-not-exist
	// errors are ignored.
	Release(ref string) error
}

// FileStore is the in-memory Store over files already on disk.
type FileStore struct {
	mu        sync.RWMutex
	refToPath map[string]string
}

// NewFileStore creates an empty FileStore.
func NewFileStore() *FileStore {
	return &FileStore{refToPath: make(map[string]string)}
}

func (s *FileStore) Register(localPath string, meta Meta) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("media store: file does not exist: %s", localPath)
	}

	ref := "media://" + uuid.New().String()[:8]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refToPath[ref] = localPath
	return ref, nil
}

func (s *FileStore) Resolve(ref string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, ok := s.refToPath[ref]
	if !ok {
		return "", fmt.Errorf("media store: unknown ref: %s", ref)
	}
	return path, nil
}

func (s *FileStore) Release(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.refToPath[ref]
	if !ok {
		return nil
	}
	delete(s.refToPath, ref)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

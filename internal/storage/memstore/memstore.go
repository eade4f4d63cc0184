// Package memstore provides a local in-memory implementation of the remote
// storage capability, used by tests and by local development without
// provider credentials. Failures can be injected per operation.
package memstore

import (
	"context"
	"io"
	"sync"

	"invoicedrop/internal/storage"
	"invoicedrop/pkg/faults"
)

type Store struct {
	mu      sync.Mutex
	folders map[string]bool
	objects map[string][]byte

	// FailWith, when set for an operation name ("exists", "create_folder",
	// "upload_bytes", "download_bytes", "delete_object", "ping"), makes that
	// operation return the given error.
	failWith map[string]error

	// CreateFolderCalls and UploadCalls count remote mutations for assertions.
	CreateFolderCalls int
	UploadCalls       int
}

var _ storage.RemoteStore = (*Store)(nil)

func New() *Store {
	return &Store{
		folders:  make(map[string]bool),
		objects:  make(map[string][]byte),
		failWith: make(map[string]error),
	}
}

// FailNext injects err for every subsequent call of op until cleared with a
// nil err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failWith, op)
		return
	}
	s.failWith[op] = err
}

func (s *Store) injected(op string) error {
	return s.failWith[op]
}

func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("exists"); err != nil {
		return false, err
	}
	return s.folders[path], nil
}

func (s *Store) CreateFolder(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateFolderCalls++
	if err := s.injected("create_folder"); err != nil {
		return err
	}
	if s.folders[path] {
		return faults.ErrAlreadyExists
	}
	s.folders[path] = true
	return nil
}

func (s *Store) UploadBytes(_ context.Context, path string, r io.Reader, size int64, overwrite bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return faults.New(faults.KindLocalIO, "upload_bytes", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.UploadCalls++
	if err := s.injected("upload_bytes"); err != nil {
		return err
	}
	if _, exists := s.objects[path]; exists && !overwrite {
		return faults.ErrAlreadyExists
	}
	s.objects[path] = data
	return nil
}

func (s *Store) DownloadBytes(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("download_bytes"); err != nil {
		return nil, err
	}
	data, ok := s.objects[path]
	if !ok {
		return nil, faults.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) DeleteObject(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("delete_object"); err != nil {
		return err
	}
	delete(s.objects, path)
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injected("ping")
}

// Object returns the stored bytes at path, for assertions.
func (s *Store) Object(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	return data, ok
}

// HasFolder reports whether a folder was created at path.
func (s *Store) HasFolder(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folders[path]
}

// ObjectCount reports how many objects the store holds.
func (s *Store) ObjectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

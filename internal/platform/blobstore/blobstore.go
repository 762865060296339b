// Package blobstore stores raw file content for the records platform.
// Blobs are content-addressed: the key is the hex SHA-256 of the bytes, so
// identical uploads share storage and stored content can always be verified
// against its key. Metadata lives with the owning domain; this package only
// moves bytes.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrTooLarge = errors.New("blob exceeds maximum allowed size")
)

// DefaultMaxSize caps a single blob at 100 MB.
const DefaultMaxSize = 100 * 1024 * 1024

// PutResult describes where a blob landed. Key is the hex SHA-256 of the
// content; Path is the backend-relative location.
type PutResult struct {
	Key  string
	Path string
	Size int64
}

// Store is the contract for blob backends.
type Store interface {
	Put(ctx context.Context, content io.Reader) (*PutResult, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

func readAll(content io.Reader, maxSize int64) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(content, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", ErrTooLarge
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}

// keyOK guards backends against malformed keys; every valid key is a hex
// SHA-256 digest.
func keyOK(key string) bool {
	if len(key) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(key)
	return err == nil
}

// -- In-memory store --

// MemoryStore is a thread-safe in-memory Store for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, content io.Reader) (*PutResult, error) {
	data, key, err := readAll(content, DefaultMaxSize)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return &PutResult{Key: key, Path: key, Size: int64(len(data))}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

// -- Filesystem store --

// FSStore keeps blobs under dir with a two-level fanout (ab/abcdef...), so
// no single directory grows unbounded.
type FSStore struct {
	dir     string
	maxSize int64
}

func NewFSStore(dir string, maxSize int64) (*FSStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSStore{dir: dir, maxSize: maxSize}, nil
}

func (s *FSStore) relPath(key string) string {
	return filepath.Join(key[:2], key[2:])
}

func (s *FSStore) Put(_ context.Context, content io.Reader) (*PutResult, error) {
	data, key, err := readAll(content, s.maxSize)
	if err != nil {
		return nil, err
	}
	rel := s.relPath(key)
	full := filepath.Join(s.dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("create fanout dir: %w", err)
	}
	// Same key means same bytes; rewriting is harmless but skippable.
	if _, err := os.Stat(full); err != nil {
		if err := os.WriteFile(full, data, 0o644); err != nil {
			return nil, fmt.Errorf("write blob: %w", err)
		}
	}
	return &PutResult{Key: key, Path: rel, Size: int64(len(data))}, nil
}

func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if !keyOK(key) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, s.relPath(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	if !keyOK(key) {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, s.relPath(key)))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Package memory is an in-process screenshot store for development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"coipond/internal/domain"
)

// Object is a stored blob
type Object struct {
	ContentType string
	Data        []byte
}

// BlobStore keeps screenshots in a map keyed by object key
type BlobStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

// New creates an empty store whose URLs start with baseURL
func New(baseURL string) *BlobStore {
	return &BlobStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

// Put stores data under key and returns its URL
func (s *BlobStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	key = strings.TrimLeft(key, "/")
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key] = Object{ContentType: contentType, Data: buf}
	s.mu.Unlock()

	return s.baseURL + "/" + key, nil
}

// Delete removes the object behind url
func (s *BlobStore) Delete(ctx context.Context, url string) error {
	key := strings.TrimPrefix(url, s.baseURL+"/")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("object %q: %w", key, domain.ErrNotFound)
	}
	delete(s.objects, key)
	return nil
}

// Get returns a stored object by URL
func (s *BlobStore) Get(url string) (Object, bool) {
	key := strings.TrimPrefix(url, s.baseURL+"/")
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored objects
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

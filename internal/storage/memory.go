package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

const memoryURLPrefix = "memory://"

// MemoryStore keeps images in memory. Used by tests and throwaway environments.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Upload implements ImageStore.
func (s *MemoryStore) Upload(ctx context.Context, r io.Reader, filename, owner string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	url := memoryURLPrefix + ObjectName(owner, filename)

	s.mu.Lock()
	s.objects[url] = data
	s.mu.Unlock()

	return url, nil
}

// Delete implements ImageStore.
func (s *MemoryStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(url, memoryURLPrefix) {
		return nil
	}

	s.mu.Lock()
	delete(s.objects, url)
	s.mu.Unlock()
	return nil
}

// Get returns the stored bytes for url.
func (s *MemoryStore) Get(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[url]
	return data, ok
}

// URLs lists every stored image in sorted order.
func (s *MemoryStore) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.objects))
	for u := range s.objects {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

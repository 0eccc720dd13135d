package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/gophermarket/gophermarket/internal/model"
	"github.com/gophermarket/gophermarket/internal/repository"
	"github.com/gophermarket/gophermarket/internal/storage"
)

// fakeListingStore is an in-memory ListingStore.
type fakeListingStore struct {
	mu        sync.Mutex
	listings  map[int64]*model.Listing
	nextID    int64
	createErr error
	updateErr error
	writes    int
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{listings: make(map[int64]*model.Listing)}
}

func (f *fakeListingStore) CreateListing(ctx context.Context, l *model.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	l.ID = f.nextID
	f.listings[l.ID] = l.Clone()
	f.writes++
	return nil
}

func (f *fakeListingStore) GetListingByID(ctx context.Context, id int64) (*model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	return l.Clone(), nil
}

func (f *fakeListingStore) ListListings(ctx context.Context, filter repository.ListingFilter) ([]*model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Listing
	for _, l := range f.listings {
		if filter.OwnerID != "" && !strings.EqualFold(l.OwnerID, filter.OwnerID) {
			continue
		}
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeListingStore) CountListings(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.listings)), nil
}

func (f *fakeListingStore) UpdateListing(ctx context.Context, l *model.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.listings[l.ID]; !ok {
		return repository.ErrListingNotFound
	}
	f.listings[l.ID] = l.Clone()
	f.writes++
	return nil
}

func (f *fakeListingStore) DeleteListing(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listings[id]; !ok {
		return repository.ErrListingNotFound
	}
	delete(f.listings, id)
	f.writes++
	return nil
}

func (f *fakeListingStore) put(l *model.Listing) *model.Listing {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l.ID = f.nextID
	f.listings[l.ID] = l.Clone()
	return l
}

// fakeImageStore wraps a MemoryStore and injects failures by filename or URL.
type fakeImageStore struct {
	*storage.MemoryStore

	mu        sync.Mutex
	failOn    map[string]error
	failDel   map[string]error
	uploads   []string
	deletions []string
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{
		MemoryStore: storage.NewMemoryStore(),
		failOn:      make(map[string]error),
		failDel:     make(map[string]error),
	}
}

func (f *fakeImageStore) Upload(ctx context.Context, r io.Reader, filename, owner string) (string, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, filename)
	err := f.failOn[filename]
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.MemoryStore.Upload(ctx, r, filename, owner)
}

func (f *fakeImageStore) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	f.deletions = append(f.deletions, url)
	err := f.failDel[url]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Delete(ctx, url)
}

func pending(name string) PendingImage {
	return PendingImage{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("img:" + name)), nil
		},
	}
}

func pendingN(names ...string) []PendingImage {
	out := make([]PendingImage, len(names))
	for i, n := range names {
		out[i] = pending(n)
	}
	return out
}

var errBucketDown = errors.New("bucket unavailable")

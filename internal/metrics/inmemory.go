package metrics

import (
	"sync"
	"sync/atomic"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ListingsCreated    uint64
	ListingsUpdated    uint64
	ListingsDeleted    uint64
	ImagesUploaded     uint64
	ImageUploadsFailed uint64
	ImagesDeleted      uint64
	ImageDeletesFailed uint64
	RateLimited        map[string]uint64
	AuthOutcomes       map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	listingsCreated    uint64
	listingsUpdated    uint64
	listingsDeleted    uint64
	imagesUploaded     uint64
	imageUploadsFailed uint64
	imagesDeleted      uint64
	imageDeletesFailed uint64

	mu           sync.Mutex
	rateLimited  map[string]uint64
	authOutcomes map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		rateLimited:  make(map[string]uint64),
		authOutcomes: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rateLimited := make(map[string]uint64, len(m.rateLimited))
	for k, v := range m.rateLimited {
		rateLimited[k] = v
	}
	authOutcomes := make(map[string]uint64, len(m.authOutcomes))
	for k, v := range m.authOutcomes {
		authOutcomes[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		ListingsCreated:    atomic.LoadUint64(&m.listingsCreated),
		ListingsUpdated:    atomic.LoadUint64(&m.listingsUpdated),
		ListingsDeleted:    atomic.LoadUint64(&m.listingsDeleted),
		ImagesUploaded:     atomic.LoadUint64(&m.imagesUploaded),
		ImageUploadsFailed: atomic.LoadUint64(&m.imageUploadsFailed),
		ImagesDeleted:      atomic.LoadUint64(&m.imagesDeleted),
		ImageDeletesFailed: atomic.LoadUint64(&m.imageDeletesFailed),
		RateLimited:        rateLimited,
		AuthOutcomes:       authOutcomes,
	}
}

// IncListingCreated increments listing created counter.
func (m *InMemoryRecorder) IncListingCreated() {
	atomic.AddUint64(&m.listingsCreated, 1)
}

// IncListingUpdated increments listing updated counter.
func (m *InMemoryRecorder) IncListingUpdated() {
	atomic.AddUint64(&m.listingsUpdated, 1)
}

// IncListingDeleted increments listing deleted counter.
func (m *InMemoryRecorder) IncListingDeleted() {
	atomic.AddUint64(&m.listingsDeleted, 1)
}

// IncImageUploaded increments image uploaded counter.
func (m *InMemoryRecorder) IncImageUploaded() {
	atomic.AddUint64(&m.imagesUploaded, 1)
}

// IncImageUploadFailed increments failed upload counter.
func (m *InMemoryRecorder) IncImageUploadFailed() {
	atomic.AddUint64(&m.imageUploadsFailed, 1)
}

// IncImageDeleted increments image deleted counter.
func (m *InMemoryRecorder) IncImageDeleted() {
	atomic.AddUint64(&m.imagesDeleted, 1)
}

// IncImageDeleteFailed increments failed delete counter.
func (m *InMemoryRecorder) IncImageDeleteFailed() {
	atomic.AddUint64(&m.imageDeletesFailed, 1)
}

// IncRateLimited increments the rejection counter for a route class.
func (m *InMemoryRecorder) IncRateLimited(class string) {
	m.mu.Lock()
	m.rateLimited[class]++
	m.mu.Unlock()
}

// IncAuthOutcome increments the counter for a verification outcome.
func (m *InMemoryRecorder) IncAuthOutcome(outcome string) {
	m.mu.Lock()
	m.authOutcomes[outcome]++
	m.mu.Unlock()
}

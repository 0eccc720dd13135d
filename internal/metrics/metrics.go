// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Listing lifecycle metrics
	IncListingCreated()
	IncListingUpdated()
	IncListingDeleted()

	// Image store metrics
	IncImageUploaded()
	IncImageUploadFailed()
	IncImageDeleted()
	IncImageDeleteFailed()

	// Request pipeline metrics
	IncRateLimited(class string)
	IncAuthOutcome(outcome string) // anonymous, verified, invalid, unavailable
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

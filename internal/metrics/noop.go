package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncListingCreated is a no-op.
func (n *NoopRecorder) IncListingCreated() {}

// IncListingUpdated is a no-op.
func (n *NoopRecorder) IncListingUpdated() {}

// IncListingDeleted is a no-op.
func (n *NoopRecorder) IncListingDeleted() {}

// IncImageUploaded is a no-op.
func (n *NoopRecorder) IncImageUploaded() {}

// IncImageUploadFailed is a no-op.
func (n *NoopRecorder) IncImageUploadFailed() {}

// IncImageDeleted is a no-op.
func (n *NoopRecorder) IncImageDeleted() {}

// IncImageDeleteFailed is a no-op.
func (n *NoopRecorder) IncImageDeleteFailed() {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited(class string) {}

// IncAuthOutcome is a no-op.
func (n *NoopRecorder) IncAuthOutcome(outcome string) {}

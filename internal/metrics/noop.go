package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRecordCreated is a no-op.
func (n *NoopRecorder) IncRecordCreated(string) {}

// IncRecordUpdated is a no-op.
func (n *NoopRecorder) IncRecordUpdated(string) {}

// IncRecordDeleted is a no-op.
func (n *NoopRecorder) IncRecordDeleted(string) {}

// IncOwnershipDenied is a no-op.
func (n *NoopRecorder) IncOwnershipDenied(string) {}

// IncAuthFailure is a no-op.
func (n *NoopRecorder) IncAuthFailure(string) {}

func (n *NoopRecorder) IncRateLimited(string) {}

// Package metrics counts record writes, ownership and auth rejections, and
// rate limited requests. Production exports them through Prometheus; tests
// use the in-memory recorder.
package metrics

// Recorder receives metric events. kind is a resource plural such as
// "snerberds"; reason and bucket are short snake_case labels.
type Recorder interface {
	IncRecordCreated(kind string)
	IncRecordUpdated(kind string)
	IncRecordDeleted(kind string)
	IncOwnershipDenied(kind string)

	IncAuthFailure(reason string)
	// IncRateLimited counts a 429; bucket is "api" or "public".
	IncRateLimited(bucket string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

// Package metrics provides constants used across metric definitions.
package metrics

// Namespace prefixes every metric exported by this module.
const Namespace = "matrad"

// Migration results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Field actions taken by the snapshot merge.
const (
	ActionKept        = "kept"
	ActionOverwritten = "overwritten"
	ActionIgnored     = "ignored"
)

// Histogram bucket configuration constants.
const (
	// BucketStart10us is the 10µs start point for in-memory merge timings.
	BucketStart10us = 0.00001
	// BucketFactor4 grows buckets by 4x.
	BucketFactor4 = 4
	// BucketCount8 spans 10µs to ~160ms.
	BucketCount8 = 8
)

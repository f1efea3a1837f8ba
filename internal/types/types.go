// Package types holds the small set of shared value types used across the
// builder, its CLI, and its configuration loader.
package types

// SyncMode controls whether the data file is fsync'd after every Add call
// ("strict") or left to the OS page cache until Finish closes it ("async").
type SyncMode string

const (
	SyncStrict SyncMode = "strict"
	SyncAsync  SyncMode = "async"
)

// BuildConfig holds the parameters needed to start a new Builder.
type BuildConfig struct {
	// OutputPath is where the sealed file is written.
	OutputPath string `json:"output_path"`

	// ExpectedElements sizes the bucket directory (see bucketPowerFromExpected).
	ExpectedElements int64 `json:"expected_elements"`

	// Sync controls fsync behavior during the append phase.
	Sync SyncMode `json:"sync,omitempty"`

	// Digest, when true, writes a BLAKE3 content-digest sidecar after sealing.
	Digest bool `json:"digest,omitempty"`

	// Manifest, when true, writes a gob-encoded build manifest sidecar.
	Manifest bool `json:"manifest,omitempty"`
}

package hashfile

import (
	"encoding/gob"
	"os"
	"time"

	"ghash/internal/hashfn"
)

// Manifest is a sidecar record of one build, written alongside the sealed
// file when types.BuildConfig.Manifest is set. It is not read by anything
// in this package; it exists for operational bookkeeping.
type Manifest struct {
	OutputPath  string
	RecordCount uint64
	BucketPower uint8
	SealedAt    time.Time
	// ContentKeyHi and ContentKeyLo are the 128-bit Murmur3 hash of
	// OutputPath, a stable identifier for this build independent of
	// where the sealed file is later moved or copied to.
	ContentKeyHi uint64
	ContentKeyLo uint64
}

// manifestPath names the sidecar: "<outputPath>.manifest".
func manifestPath(outputPath string) string {
	return outputPath + ".manifest"
}

// WriteManifest gob-encodes m to its sidecar path.
func WriteManifest(m Manifest) error {
	m.ContentKeyHi, m.ContentKeyLo = hashfn.Hash128([]byte(m.OutputPath))
	f, err := os.Create(manifestPath(m.OutputPath))
	if err != nil {
		return wrapIO("create manifest", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		return wrapIO("encode manifest", err)
	}
	return nil
}

// ReadManifest loads a sidecar manifest previously written by
// WriteManifest.
func ReadManifest(outputPath string) (Manifest, error) {
	f, err := os.Open(manifestPath(outputPath))
	if err != nil {
		return Manifest{}, wrapIO("open manifest", err)
	}
	defer f.Close()
	var m Manifest
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return Manifest{}, wrapIO("decode manifest", err)
	}
	return m, nil
}

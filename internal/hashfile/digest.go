package hashfile

import (
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// digestPath names the content-digest sidecar: "<outputPath>.blake3".
func digestPath(outputPath string) string {
	return outputPath + ".blake3"
}

// WriteDigest streams the sealed file at outputPath through BLAKE3 and
// writes the raw 32-byte digest to its sidecar. This is the content-
// addressing half of the format's name: the sealed file's bytes, once
// written, are identified by this digest.
func WriteDigest(outputPath string) ([]byte, error) {
	f, err := os.Open(outputPath)
	if err != nil {
		return nil, wrapIO("open sealed file for digest", err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, wrapIO("hash sealed file", err)
	}
	sum := h.Sum(nil)

	if err := os.WriteFile(digestPath(outputPath), sum, 0o644); err != nil {
		return nil, wrapIO("write digest sidecar", err)
	}
	return sum, nil
}

// ReadDigest loads a previously written digest sidecar.
func ReadDigest(outputPath string) ([]byte, error) {
	b, err := os.ReadFile(digestPath(outputPath))
	if err != nil {
		return nil, wrapIO("read digest sidecar", err)
	}
	return b, nil
}

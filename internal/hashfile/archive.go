package hashfile

import (
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// archiveEncoder and archiveDecoder are shared across calls: zstd's writer
// and reader are safe for reuse and expensive to construct per call.
var (
	archiveEncoder, _ = zstd.NewWriter(nil)
	archiveDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// archivePath names the compressed export: "<outputPath>.zst".
func archivePath(outputPath string) string {
	return outputPath + ".zst"
}

// WriteArchive streams the sealed file at outputPath through zstd into a
// "<outputPath>.zst" sidecar, for cold storage or transfer of a sealed
// hashfile that the builder itself has no further use for.
func WriteArchive(outputPath string) error {
	in, err := os.Open(outputPath)
	if err != nil {
		return wrapIO("open sealed file for archive", err)
	}
	defer in.Close()

	out, err := os.Create(archivePath(outputPath))
	if err != nil {
		return wrapIO("create archive", err)
	}
	defer out.Close()

	archiveEncoder.Reset(out)
	if _, err := io.Copy(archiveEncoder, in); err != nil {
		return wrapIO("compress sealed file", err)
	}
	if err := archiveEncoder.Close(); err != nil {
		return wrapIO("finalize archive", err)
	}
	return nil
}

// RestoreArchive decompresses a "<outputPath>.zst" sidecar back to
// outputPath, for restoring a sealed hashfile from cold storage.
func RestoreArchive(outputPath string) error {
	in, err := os.Open(archivePath(outputPath))
	if err != nil {
		return wrapIO("open archive", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return wrapIO("create restored file", err)
	}
	defer out.Close()

	if err := archiveDecoder.Reset(in); err != nil {
		return wrapIO("open archive decoder", err)
	}

	if _, err := io.Copy(out, archiveDecoder); err != nil {
		return wrapIO("decompress archive", err)
	}
	return nil
}

package hashfile

import "encoding/binary"

// magicBytes identifies a sealed file; a file that does not start with
// these bytes is rejected by decodeFixedHeader.
var magicBytes = []byte("GHASHF01")

// formatVersion is the on-disk format revision written into the header.
const formatVersion uint64 = 1

// fixedHeaderSize is len(magicBytes) + version(8) + count(8) + power(4).
// The bucket directory (B*16 bytes) immediately follows this fixed part;
// together they make up the reserved header region.
var fixedHeaderSize = len(magicBytes) + 20

// totalHeaderSize returns the full reserved header region size for a
// bucket directory of bucketCount entries: fixedHeaderSize + bucketCount*16.
func totalHeaderSize(bucketCount uint32) int64 {
	return int64(fixedHeaderSize) + int64(bucketCount)*slotSize
}

// headerFields is the fixed-size (non-directory) prefix of a sealed file.
type headerFields struct {
	version uint64
	count   uint64
	power   int32
}

// encodeFixedHeader renders h as its fixedHeaderSize-byte wire form:
// magic, version, count, power.
func encodeFixedHeader(h headerFields) []byte {
	b := make([]byte, fixedHeaderSize)
	copy(b, magicBytes)
	m := len(magicBytes)
	binary.BigEndian.PutUint64(b[m:m+8], h.version)
	binary.BigEndian.PutUint64(b[m+8:m+16], h.count)
	binary.BigEndian.PutUint32(b[m+16:m+20], uint32(h.power))
	return b
}

// decodeFixedHeader parses the fixed header prefix of a sealed file. Used
// by the verifier and by any reader opening a sealed file for lookups.
func decodeFixedHeader(b []byte) (headerFields, error) {
	if len(b) < fixedHeaderSize {
		return headerFields{}, errShortHeader
	}
	m := len(magicBytes)
	for i := 0; i < m; i++ {
		if b[i] != magicBytes[i] {
			return headerFields{}, errBadMagic
		}
	}
	return headerFields{
		version: binary.BigEndian.Uint64(b[m : m+8]),
		count:   binary.BigEndian.Uint64(b[m+8 : m+16]),
		power:   int32(binary.BigEndian.Uint32(b[m+16 : m+20])),
	}, nil
}

// bucketDirEntry is one (bucketFileOffset, bucketSize) pair in the bucket
// directory: B entries of 16 bytes each, B = 2^P.
type bucketDirEntry struct {
	offset uint64
	size   uint64
}

func encodeBucketDirEntry(dst []byte, e bucketDirEntry) {
	binary.BigEndian.PutUint64(dst[0:8], e.offset)
	binary.BigEndian.PutUint64(dst[8:16], e.size)
}

func decodeBucketDirEntry(b []byte) bucketDirEntry {
	return bucketDirEntry{
		offset: binary.BigEndian.Uint64(b[0:8]),
		size:   binary.BigEndian.Uint64(b[8:16]),
	}
}

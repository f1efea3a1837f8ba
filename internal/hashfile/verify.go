package hashfile

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"ghash/internal/hashfn"
)

// Report summarizes a Verify run against a sealed file.
type Report struct {
	Version     uint64
	RecordCount uint64
	BucketPower uint8
	BucketCount uint32
	// DataCRC32 is a CRC32 (IEEE) of the data segment's raw bytes, offered
	// as a cheap corruption check independent of the per-slot round-trip
	// check below.
	DataCRC32 uint32
}

// Verify opens the sealed file at path and checks the invariants every
// sealed file must hold:
//   - sum(bucketCounts) == count
//   - every occupied slot's recorded bucket(h) matches the region it
//     was found in
//   - every bucket with bucketCounts[b] > 0 has exactly that many
//     non-empty slots in its region, and no more
//   - for every occupied slot (h, offset), the record framed at offset
//     in the data segment has hash(key) == h
func Verify(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, wrapIO("open sealed file", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Report{}, wrapIO("stat sealed file", err)
	}

	fixed := make([]byte, fixedHeaderSize)
	if _, err := f.ReadAt(fixed, 0); err != nil {
		return Report{}, wrapIO("read header", err)
	}
	hdr, err := decodeFixedHeader(fixed)
	if err != nil {
		return Report{}, wrapIO("decode header", err)
	}

	bucketCount := uint32(1) << uint(hdr.power)
	dirSize := int64(bucketCount) * slotSize
	dir := make([]byte, dirSize)
	if _, err := f.ReadAt(dir, int64(fixedHeaderSize)); err != nil {
		return Report{}, wrapIO("read bucket directory", err)
	}

	dataSegmentStart := totalHeaderSize(bucketCount)
	dataSegmentEnd := info.Size() - int64(hdr.count)*slotSize
	if dataSegmentEnd < dataSegmentStart {
		return Report{}, ErrInternalInvariantViolated
	}

	var total uint64
	for b := uint32(0); b < bucketCount; b++ {
		entry := decodeBucketDirEntry(dir[int64(b)*slotSize : int64(b+1)*slotSize])
		total += entry.size
		if entry.size == 0 {
			continue
		}
		if entry.offset+entry.size*slotSize > uint64(info.Size()) {
			return Report{}, wrapIO("validate bucket region", errShortHeader)
		}

		region := make([]byte, entry.size*slotSize)
		if _, err := f.ReadAt(region, int64(entry.offset)); err != nil {
			return Report{}, wrapIO("read bucket region", err)
		}

		var occupied uint64
		for i := uint64(0); i < entry.size; i++ {
			slot := region[i*slotSize : (i+1)*slotSize]
			off := binary.BigEndian.Uint64(slot[8:16])
			if off == 0 {
				continue
			}
			occupied++
			h := binary.BigEndian.Uint64(slot[0:8])
			if bucket(h, uint8(hdr.power)) != b {
				return Report{}, ErrInternalInvariantViolated
			}
			if err := verifyRecordHash(f, int64(off), dataSegmentStart, dataSegmentEnd, h); err != nil {
				return Report{}, err
			}
		}
		if occupied != entry.size {
			return Report{}, ErrInternalInvariantViolated
		}
	}

	if total != hdr.count {
		return Report{}, ErrInternalInvariantViolated
	}

	crc, err := crcRange(f, dataSegmentStart, dataSegmentEnd)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Version:     hdr.version,
		RecordCount: hdr.count,
		BucketPower: uint8(hdr.power),
		BucketCount: bucketCount,
		DataCRC32:   crc,
	}, nil
}

// verifyRecordHash reads the framed record at offset in the data segment
// and checks that hashfn.Hash64 of its key equals h, the hash a slot
// recorded for it. offset must land inside [dataStart, dataEnd) with room
// for at least a record header.
func verifyRecordHash(f *os.File, offset, dataStart, dataEnd int64, h uint64) error {
	if offset < dataStart || offset+recordHeaderSize > dataEnd {
		return ErrInternalInvariantViolated
	}
	var rh [recordHeaderSize]byte
	if _, err := f.ReadAt(rh[:], offset); err != nil {
		return wrapIO("read record header", err)
	}
	keyLen := binary.BigEndian.Uint32(rh[0:4])
	valueLen := binary.BigEndian.Uint32(rh[4:8])
	recordEnd := offset + recordHeaderSize + int64(keyLen) + int64(valueLen)
	if recordEnd > dataEnd {
		return ErrInternalInvariantViolated
	}

	key := make([]byte, keyLen)
	if _, err := f.ReadAt(key, offset+recordHeaderSize); err != nil {
		return wrapIO("read record key", err)
	}
	if hashfn.Hash64(key) != h {
		return ErrInternalInvariantViolated
	}
	return nil
}

// crcRange computes the CRC32 (IEEE) of f's bytes in [start, end).
func crcRange(f *os.File, start, end int64) (uint32, error) {
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, io.NewSectionReader(f, start, end-start)); err != nil {
		return 0, wrapIO("checksum data segment", err)
	}
	return h.Sum32(), nil
}

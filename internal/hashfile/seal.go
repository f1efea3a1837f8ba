package hashfile

import "encoding/binary"

// Finish merges the spill files into the hash-table segment, writes the
// bucket directory, and patches the header. It is a total function of the
// bucketCounts accumulated during the append phase, count, and the spill
// files' contents — no key is re-hashed.
func (b *Builder) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrAlreadySealed
	}
	b.sealed = true
	defer b.lock.Release()

	// Step 1: flush the data-segment stream. dataSegmentEnd is wherever
	// the append phase left the write cursor; the hash-table segment is
	// appended directly after it.
	if err := b.dataWriter.Flush(); err != nil {
		return wrapIO("flush data file", err)
	}
	dataSegmentEnd := b.pos

	// Step 2: prefix sum of bucketCounts, in slot units.
	bucketOffsets := make([]uint64, b.bucketCount)
	var running uint64
	for i, c := range b.bucketCounts {
		bucketOffsets[i] = running
		running += c
	}
	if running != b.count {
		return ErrInternalInvariantViolated
	}

	bucketsPerRadix := b.bucketCount / numRadixes
	if bucketsPerRadix == 0 {
		bucketsPerRadix = 1
	}

	// Step 3: build the hash-table segment, one radix at a time, so peak
	// transient memory is bounded by 2*max_i(L_i) rather than the whole
	// dataset.
	for r := 0; r < numRadixes; r++ {
		shard := b.spills[r]
		size, err := shard.flushAndRewind()
		if err != nil {
			return err
		}
		if size > int64(1)<<31-1 {
			return ErrRadixTooLarge
		}
		if size == 0 {
			if err := shard.closeAndRemove(); err != nil {
				return err
			}
			continue
		}

		inputBlock, err := shard.readAll(size)
		if err != nil {
			return err
		}

		firstBucket := baseBucket(uint8(r), b.bucketPower)
		lastBucket := firstBucket + bucketsPerRadix - 1
		regionStartSlot := bucketOffsets[firstBucket]
		regionSlots := bucketOffsets[lastBucket] + b.bucketCounts[lastBucket] - regionStartSlot
		outputBlock := make([]byte, regionSlots*slotSize)

		numPairs := int(size / slotSize)
		for i := 0; i < numPairs; i++ {
			rec := inputBlock[i*slotSize : (i+1)*slotSize]
			h := binary.BigEndian.Uint64(rec[0:8])
			offset := binary.BigEndian.Uint64(rec[8:16])

			bb := bucket(h, b.bucketPower)
			n := b.bucketCounts[bb]
			if n == 0 {
				return ErrInternalInvariantViolated
			}
			regionStartWithinRadix := bucketOffsets[bb] - regionStartSlot

			start := probeStart(h, n)
			placed := false
			for step := uint64(0); step < n; step++ {
				slot := regionStartWithinRadix + (start+step)%n
				off := slot * slotSize
				if binary.BigEndian.Uint64(outputBlock[off+8:off+16]) == 0 {
					binary.BigEndian.PutUint64(outputBlock[off:off+8], h)
					binary.BigEndian.PutUint64(outputBlock[off+8:off+16], offset)
					placed = true
					break
				}
			}
			if !placed {
				return ErrInternalInvariantViolated
			}
		}

		if _, err := b.dataWriter.Write(outputBlock); err != nil {
			return wrapIO("write hash-table segment", err)
		}
		if err := shard.closeAndRemove(); err != nil {
			return err
		}
	}

	if err := b.dataWriter.Flush(); err != nil {
		return wrapIO("flush hash-table segment", err)
	}

	// Step 4: build the bucket directory.
	dir := make([]byte, int64(b.bucketCount)*slotSize)
	for bkt := uint32(0); bkt < b.bucketCount; bkt++ {
		entry := bucketDirEntry{
			offset: uint64(dataSegmentEnd) + bucketOffsets[bkt]*slotSize,
			size:   b.bucketCounts[bkt],
		}
		encodeBucketDirEntry(dir[int64(bkt)*slotSize:int64(bkt+1)*slotSize], entry)
	}

	// Step 5: patch the header in place via WriteAt, leaving the data
	// file's current write cursor (positioned past the hash-table
	// segment) undisturbed.
	fixed := encodeFixedHeader(headerFields{
		version: formatVersion,
		count:   b.count,
		power:   int32(b.bucketPower),
	})
	if _, err := b.dataFile.WriteAt(fixed, 0); err != nil {
		return wrapIO("patch header", err)
	}
	if _, err := b.dataFile.WriteAt(dir, int64(len(fixed))); err != nil {
		return wrapIO("patch bucket directory", err)
	}

	if err := b.dataFile.Sync(); err != nil {
		return wrapIO("sync sealed file", err)
	}
	if err := b.dataFile.Close(); err != nil {
		return wrapIO("close sealed file", err)
	}

	return nil
}

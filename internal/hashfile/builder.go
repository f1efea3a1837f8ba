// Package hashfile implements the builder and sealer for this project's
// immutable, on-disk, content-addressed hash file format: an append phase
// that streams records to a data segment while spilling (hash, offset)
// pairs into 256 radix-sharded files, followed by a seal phase that merges
// those shards into a contiguous open-addressed hash-table segment.
package hashfile

import (
	"bufio"
	"encoding/binary"
	"os"
	"sync"

	"ghash/internal/buildlock"
	"ghash/internal/hashfn"
	"ghash/internal/types"
)

// recordHeaderSize is the width of a data-segment record's framing prefix:
// keyLen int32, valueLen int32.
const recordHeaderSize = 8

// Builder accumulates records for a single output file across its append
// phase. Only one Builder may hold a given output path at a time; that is
// enforced by buildlock, not by anything in this struct.
type Builder struct {
	mu sync.Mutex

	outputPath string
	sync       types.SyncMode

	dataFile   *os.File
	dataWriter *bufio.Writer
	pos        int64

	bucketPower uint8
	bucketCount uint32
	// bucketCounts[b] is the number of (h, offset) pairs that will land in
	// logical bucket b, accumulated as records are Added and consumed
	// during sealing to size each bucket's open-addressing region.
	bucketCounts []uint64

	spills [numRadixes]*spillShard

	lock *buildlock.Lock

	count  uint64
	sealed bool
}

// New starts a build, sizing the bucket directory from
// cfg.ExpectedElements, taking the build-time exclusivity lock on
// cfg.OutputPath, and creating the data file and all 256 spill shards.
// On any failure New cleans up everything it had already created.
func New(cfg types.BuildConfig) (b *Builder, err error) {
	power, err := bucketPowerFromExpected(cfg.ExpectedElements)
	if err != nil {
		return nil, err
	}

	lock, err := buildlock.Acquire(cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			lock.Release()
		}
	}()

	dataFile, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, wrapIO("create data file", err)
	}
	defer func() {
		if err != nil {
			dataFile.Close()
			os.Remove(cfg.OutputPath)
		}
	}()

	bucketCount := uint32(1) << power
	reserved := totalHeaderSize(bucketCount)

	// Reserve space for the header and bucket directory; both are patched
	// with real values by Finish once count, power, bucketOffsets, and
	// bucketCounts are known.
	if _, err = dataFile.Write(make([]byte, reserved)); err != nil {
		return nil, wrapIO("reserve header", err)
	}

	b = &Builder{
		outputPath:   cfg.OutputPath,
		sync:         cfg.Sync,
		dataFile:     dataFile,
		dataWriter:   bufio.NewWriterSize(dataFile, 1<<20),
		pos:          reserved,
		bucketPower:  power,
		bucketCount:  bucketCount,
		bucketCounts: make([]uint64, bucketCount),
		lock:         lock,
	}

	for r := 0; r < numRadixes; r++ {
		shard, serr := newSpillShard(cfg.OutputPath, uint8(r))
		if serr != nil {
			err = serr
			for j := 0; j < r; j++ {
				b.spills[j].abort()
			}
			return nil, err
		}
		b.spills[r] = shard
	}

	return b, nil
}

// BucketPower returns the bucket power this build was sized with. Valid
// both before and after Finish, since sealing never changes it.
func (b *Builder) BucketPower() uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bucketPower
}

// Add appends one key/value record to the data segment and records its
// (hash, offset) pair for the seal phase. Duplicate keys are permitted and
// all survive as distinct records; the builder never deduplicates.
func (b *Builder) Add(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrAlreadySealed
	}
	if len(key) > 1<<31-1 || len(value) > 1<<31-1 {
		return ErrOverflow
	}

	offset := b.pos

	var hdr [recordHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(key)))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(value)))

	recordLen := int64(recordHeaderSize) + int64(len(key)) + int64(len(value))
	newPos, err := advance(b.pos, recordLen)
	if err != nil {
		return err
	}

	if _, err := b.dataWriter.Write(hdr[:]); err != nil {
		return wrapIO("write record header", err)
	}
	if _, err := b.dataWriter.Write(key); err != nil {
		return wrapIO("write record key", err)
	}
	if _, err := b.dataWriter.Write(value); err != nil {
		return wrapIO("write record value", err)
	}
	if b.sync == types.SyncStrict {
		if err := b.dataWriter.Flush(); err != nil {
			return wrapIO("flush data file", err)
		}
		if err := b.dataFile.Sync(); err != nil {
			return wrapIO("sync data file", err)
		}
	}

	h := hashfn.Hash64(key)
	r := radix(h)
	if err := b.spills[r].append(h, uint64(offset)); err != nil {
		return err
	}

	b.bucketCounts[bucket(h, b.bucketPower)]++
	b.pos = newPos
	b.count++
	return nil
}

// Abort discards the build: closes and removes every spill file, closes
// and removes the partially written data file, and releases the build
// lock. Calling Abort after a successful Finish is a no-op other than
// releasing the lock, since Finish already cleaned up the spill files.
func (b *Builder) Abort() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.sealed {
		for _, s := range b.spills {
			if s != nil {
				s.abort()
			}
		}
		b.dataFile.Close()
		os.Remove(b.outputPath)
	}
	b.sealed = true
	return b.lock.Release()
}

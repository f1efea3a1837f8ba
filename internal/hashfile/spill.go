package hashfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// slotSize is the on-disk width of a (h, offset) pair, whether it appears
// in a spill file or in the sealed hash-table segment.
const slotSize = 16

// spillBufferSize is the per-shard write buffer. 256 of these are held open
// concurrently during the append phase, so it is kept modest relative to
// the single large data-file buffer.
const spillBufferSize = 32 * 1024

// spillShard is one of the 256 radix-partitioned spill files: a transient,
// append-only stream of 16-byte (h, offset) pairs for every record whose
// radix(h) equals this shard's index.
type spillShard struct {
	path string
	file *os.File
	buf  *bufio.Writer
}

// spillPath names a shard "<dataPath>.list.<HH>" with HH the uppercase
// two-hex-digit radix index.
func spillPath(dataPath string, r uint8) string {
	return fmt.Sprintf("%s.list.%02X", dataPath, r)
}

func newSpillShard(dataPath string, r uint8) (*spillShard, error) {
	path := spillPath(dataPath, r)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, wrapIO("open spill file", err)
	}
	return &spillShard{
		path: path,
		file: f,
		buf:  bufio.NewWriterSize(f, spillBufferSize),
	}, nil
}

// append emits one (h, offset) pair to the shard, big-endian.
func (s *spillShard) append(h, offset uint64) error {
	var b [slotSize]byte
	binary.BigEndian.PutUint64(b[0:8], h)
	binary.BigEndian.PutUint64(b[8:16], offset)
	if _, err := s.buf.Write(b[:]); err != nil {
		return wrapIO("write spill entry", err)
	}
	return nil
}

// flushAndRewind flushes buffered writes, then seeks the shard back to its
// start so the sealer can read it in full. The same handle is reused
// rather than closed and reopened, since both operations are legal on a
// single *os.File.
func (s *spillShard) flushAndRewind() (int64, error) {
	if err := s.buf.Flush(); err != nil {
		return 0, wrapIO("flush spill file", err)
	}
	info, err := s.file.Stat()
	if err != nil {
		return 0, wrapIO("stat spill file", err)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return 0, wrapIO("rewind spill file", err)
	}
	return info.Size(), nil
}

// readAll reads the shard's entire (already-rewound) contents.
func (s *spillShard) readAll(size int64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(s.file, buf); err != nil {
		return nil, wrapIO("read spill file", err)
	}
	return buf, nil
}

// closeAndRemove closes and deletes the shard.
func (s *spillShard) closeAndRemove() error {
	cerr := s.file.Close()
	rerr := os.Remove(s.path)
	if cerr != nil {
		return wrapIO("close spill file", cerr)
	}
	if rerr != nil {
		return wrapIO("remove spill file", rerr)
	}
	return nil
}

// abort discards the shard without propagating errors: used when New or
// Abort is unwinding a partially constructed Builder.
func (s *spillShard) abort() {
	_ = s.file.Close()
	_ = os.Remove(s.path)
}

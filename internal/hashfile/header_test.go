package hashfile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedHeaderRoundTrip(t *testing.T) {
	in := headerFields{version: formatVersion, count: 42, power: 10}
	encoded := encodeFixedHeader(in)
	require.Len(t, encoded, fixedHeaderSize)

	out, err := decodeFixedHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeFixedHeader_BadMagic(t *testing.T) {
	encoded := encodeFixedHeader(headerFields{version: 1})
	encoded[0] ^= 0xFF
	_, err := decodeFixedHeader(encoded)
	require.ErrorIs(t, err, errBadMagic)
}

func TestDecodeFixedHeader_TooShort(t *testing.T) {
	_, err := decodeFixedHeader(make([]byte, 4))
	require.ErrorIs(t, err, errShortHeader)
}

func TestBucketDirEntryRoundTrip(t *testing.T) {
	in := bucketDirEntry{offset: 12345, size: 67}
	buf := make([]byte, slotSize)
	encodeBucketDirEntry(buf, in)
	require.Equal(t, in, decodeBucketDirEntry(buf))
}

func TestTotalHeaderSize(t *testing.T) {
	got := totalHeaderSize(256)
	require.EqualValues(t, int64(fixedHeaderSize)+256*slotSize, got)
}

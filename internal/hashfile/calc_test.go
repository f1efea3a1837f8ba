package hashfile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketPowerFromExpected(t *testing.T) {
	cases := []struct {
		expected int64
		want     uint8
	}{
		{0, MinBucketPower},
		{1, MinBucketPower},
		{192, MinBucketPower}, // 192/0.75 = 256 = 2^8
		{200, MinBucketPower + 1},
	}
	for _, c := range cases {
		got, err := bucketPowerFromExpected(c.expected)
		require.NoError(t, err)
		require.Equalf(t, c.want, got, "expected=%d", c.expected)
	}
}

func TestBucketPowerFromExpected_OutOfRange(t *testing.T) {
	_, err := bucketPowerFromExpected(-1)
	require.ErrorIs(t, err, ErrInvalidBucketPower)

	_, err = bucketPowerFromExpected(int64(1) << 61)
	require.ErrorIs(t, err, ErrInvalidBucketPower)
}

func TestRadixIsTopByte(t *testing.T) {
	require.EqualValues(t, 0xFF, radix(0xFF00000000000000))
	require.EqualValues(t, 0x00, radix(0x00FFFFFFFFFFFFFF))
	require.EqualValues(t, 0xAB, radix(0xAB12345678901234))
}

func TestBucketTopBitsContainRadix(t *testing.T) {
	h := uint64(0xAB12345678901234)
	for p := MinBucketPower; p <= MaxBucketPower; p++ {
		b := bucket(h, p)
		// The top 8 bits of a P-bit bucket index must equal radix(h),
		// which is what makes baseBucket's contiguous-range invariant hold.
		require.Equal(t, radix(h), uint8(b>>(p-MinBucketPower)))
	}
}

func TestBaseBucketMatchesBucketFloor(t *testing.T) {
	h := uint64(0xAB12345678901234)
	p := uint8(12)
	require.Equal(t, baseBucket(radix(h), p), bucket(h, p)&^((uint32(1)<<(p-MinBucketPower))-1))
}

func TestAdvance(t *testing.T) {
	got, err := advance(10, 20)
	require.NoError(t, err)
	require.EqualValues(t, 30, got)

	_, err = advance(math.MaxInt64-5, 10)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = advance(-1, 1)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = advance(1, -1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestAbs64(t *testing.T) {
	require.EqualValues(t, 5, abs64(5))
	require.EqualValues(t, 5, abs64(-5))
	require.EqualValues(t, 0, abs64(0))
	require.EqualValues(t, 0, abs64(math.MinInt64))
}

func TestProbeStartInRange(t *testing.T) {
	n := uint64(7)
	for _, h := range []uint64{0, 1, math.MaxUint64, 1 << 63} {
		p := probeStart(h, n)
		require.Less(t, p, n)
	}
}

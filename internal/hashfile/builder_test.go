package hashfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ghash/internal/hashfn"
	"ghash/internal/types"
)

func newTestConfig(t *testing.T, expected int64) types.BuildConfig {
	t.Helper()
	dir := t.TempDir()
	return types.BuildConfig{
		OutputPath:       filepath.Join(dir, "test.ghash"),
		ExpectedElements: expected,
		Sync:             types.SyncAsync,
	}
}

func TestBuilder_EmptyFile(t *testing.T) {
	cfg := newTestConfig(t, 0)
	b, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Finish())

	report, err := Verify(cfg.OutputPath)
	require.NoError(t, err)
	require.EqualValues(t, 0, report.RecordCount)
	require.Equal(t, MinBucketPower, report.BucketPower)
}

func TestBuilder_SingleEntry(t *testing.T) {
	cfg := newTestConfig(t, 1)
	b, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("hello"), []byte("world")))
	require.NoError(t, b.Finish())

	report, err := Verify(cfg.OutputPath)
	require.NoError(t, err)
	require.EqualValues(t, 1, report.RecordCount)
}

// TestBuilder_SameBucketCollision forces two keys into the same logical
// bucket by choosing a tiny bucket power, exercising the per-bucket open
// addressing path (and its wraparound, when the second key's probe start
// is the region's last slot and the first key already holds it).
func TestBuilder_SameBucketCollision(t *testing.T) {
	cfg := newTestConfig(t, 0) // MinBucketPower = 8, 256 buckets
	b, err := New(cfg)
	require.NoError(t, err)

	// Find two distinct keys that land in the same bucket under P=8.
	keyFor := func(seed int) []byte { return []byte{byte(seed), byte(seed >> 8), byte(seed >> 16)} }
	var k1, k2 []byte
	buckets := make(map[uint32][]byte)
	for i := 0; i < 100000 && (k1 == nil || k2 == nil); i++ {
		k := keyFor(i)
		h := hashfn.Hash64(k)
		bkt := bucket(h, MinBucketPower)
		if existing, ok := buckets[bkt]; ok {
			k1, k2 = existing, k
			break
		}
		buckets[bkt] = k
	}
	require.NotNil(t, k1, "expected a collision within 100000 candidate keys")

	require.NoError(t, b.Add(k1, []byte("v1")))
	require.NoError(t, b.Add(k2, []byte("v2")))
	require.NoError(t, b.Finish())

	report, err := Verify(cfg.OutputPath)
	require.NoError(t, err)
	require.EqualValues(t, 2, report.RecordCount)
}

func TestBuilder_DuplicateKeysPreserved(t *testing.T) {
	cfg := newTestConfig(t, 10)
	b, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("dup"), []byte("first")))
	require.NoError(t, b.Add([]byte("dup"), []byte("second")))
	require.NoError(t, b.Finish())

	report, err := Verify(cfg.OutputPath)
	require.NoError(t, err)
	require.EqualValues(t, 2, report.RecordCount)
}

func TestBuilder_AddAfterFinishFails(t *testing.T) {
	cfg := newTestConfig(t, 0)
	b, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Finish())

	err = b.Add([]byte("k"), []byte("v"))
	require.ErrorIs(t, err, ErrAlreadySealed)

	err = b.Finish()
	require.ErrorIs(t, err, ErrAlreadySealed)
}

func TestBuilder_LargeDatasetDeterminism(t *testing.T) {
	build := func(dir string) string {
		cfg := types.BuildConfig{
			OutputPath:       filepath.Join(dir, "out.ghash"),
			ExpectedElements: 5000,
			Sync:             types.SyncAsync,
		}
		b, err := New(cfg)
		require.NoError(t, err)
		for i := 0; i < 5000; i++ {
			key := []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24)}
			require.NoError(t, b.Add(key, key))
		}
		require.NoError(t, b.Finish())
		return cfg.OutputPath
	}

	dir1, dir2 := t.TempDir(), t.TempDir()
	path1 := build(dir1)
	path2 := build(dir2)

	content1, err := os.ReadFile(path1)
	require.NoError(t, err)
	content2, err := os.ReadFile(path2)
	require.NoError(t, err)
	require.Equal(t, content1, content2, "identical insertion sequences must produce byte-identical sealed files")

	report, err := Verify(path1)
	require.NoError(t, err)
	require.EqualValues(t, 5000, report.RecordCount)
	require.Greater(t, report.BucketPower, MinBucketPower)
}

func TestBuilder_AbortRemovesOutput(t *testing.T) {
	cfg := newTestConfig(t, 0)
	b, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("k"), []byte("v")))
	require.NoError(t, b.Abort())

	_, err = os.Stat(cfg.OutputPath)
	require.True(t, os.IsNotExist(err))

	matches, err := filepath.Glob(cfg.OutputPath + ".list.*")
	require.NoError(t, err)
	require.Empty(t, matches, "spill files must be removed on abort")
}

func TestBuilder_ExpectedElementsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	_, err := New(types.BuildConfig{
		OutputPath:       filepath.Join(dir, "too-big.ghash"),
		ExpectedElements: 1 << 62,
	})
	require.ErrorIs(t, err, ErrInvalidBucketPower)
}

package hashfile

import (
	"errors"
	"fmt"
)

// The builder's error kinds. Each is a sentinel so callers can use
// errors.Is; New, Add and Finish return them as-is, without key, radix or
// bucket context. I/O failures are wrapped by wrapIO instead.
var (
	// ErrInvalidBucketPower is returned by New when the expected-element
	// count implies a bucket power outside [MinBucketPower, MaxBucketPower].
	ErrInvalidBucketPower = errors.New("hashfile: expected element count implies bucket power outside [8, 28]")

	// ErrAlreadySealed is returned by Add or Finish once Finish has already
	// run (successfully or not) on this Builder.
	ErrAlreadySealed = errors.New("hashfile: builder already sealed")

	// ErrOverflow is returned when advancing the data file position, or a
	// record's encoded length, would wrap past the signed 63-bit range this
	// format reserves for file offsets.
	ErrOverflow = errors.New("hashfile: file position or length overflow")

	// ErrRadixTooLarge is returned when a single radix spill file exceeds
	// what a signed 32-bit byte length can describe (2 GiB). At 16 bytes
	// per pair this caps a build at roughly 256 * 2^31 / 16 (about 3.4e10)
	// records, far above the roughly 2.0e8 expected elements that
	// bucketPowerFromExpected accepts before its 2^28-bucket ceiling.
	ErrRadixTooLarge = errors.New("hashfile: radix spill file exceeds 2 GiB")

	// ErrInternalInvariantViolated indicates open addressing could not place
	// a pair into its bucket's region: the bucket accounting collected
	// during the append phase disagrees with what the spill files actually
	// contain. This is a fatal bug, not a user error, and should never
	// happen if Add's bookkeeping is correct.
	ErrInternalInvariantViolated = errors.New("hashfile: open addressing could not place pair; bucket accounting is corrupted")
)

// errShortHeader and errBadMagic come from header decoding (Verify also
// reports a bucket region that runs past the end of the file as
// errShortHeader); they are always surfaced wrapped with file-level context
// by their callers, so they are not exported sentinels in their own right.
var (
	errShortHeader = errors.New("hashfile: file shorter than fixed header")
	errBadMagic    = errors.New("hashfile: bad magic, not a sealed hashfile")
)

// wrapIO surfaces an I/O error unchanged in kind (errors.Is(err, target)
// still matches the underlying os/io sentinel) while attaching context.
func wrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("hashfile: %s: %w", op, err)
}

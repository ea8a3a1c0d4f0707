package types

import "errors"

// Error classes shared by every layer. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrPrecondition marks a broken invariant or corrupted input data:
	// mismatched edge lengths, zero-sized fragments, too many candidate
	// directions for a pair. Never retried.
	ErrPrecondition = errors.New("internal consistency failure")

	// ErrNotFound is returned for an unknown session or fragment id.
	ErrNotFound = errors.New("not found")

	// ErrStorage wraps I/O failures of the image or session stores.
	ErrStorage = errors.New("storage failure")
)

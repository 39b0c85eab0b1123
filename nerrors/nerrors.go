// Package nerrors re-exports github.com/cockroachdb/errors and defines the
// typed error taxonomy shared by every nip package, so callers can branch on
// error kind instead of matching strings.
package nerrors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping, re-exported for convenience so importers
// only need one errors package.
var (
	New    = crdb.New
	Newf   = crdb.Newf
	Wrap   = crdb.Wrap
	Wrapf  = crdb.Wrapf
	Is     = crdb.Is
	As     = crdb.As
	Mark   = crdb.Mark
	Opaque = crdb.HandledWithMessage
)

// Sentinel markers for the error kinds from the error handling design.
// Wrap an underlying error with Mark(err, KindX) so callers can later test
// with Is(err, KindX) regardless of how many times it was wrapped.
var (
	ErrIpfsUnreachable = crdb.New("ipfs daemon unreachable")
	ErrNotFound        = crdb.New("ipfs content not found")
	ErrBadMagic        = crdb.New("bad envelope magic")
	ErrUnknownVersion  = crdb.New("unknown envelope version")
	ErrMalformedPayload = crdb.New("malformed payload")
	ErrHashMismatch    = crdb.New("raw bytes do not hash to the claimed git hash")
	ErrMissingObject   = crdb.New("missing object referenced by index closure")
	ErrNonFastForward  = crdb.New("non-fast-forward update rejected")
	ErrRefRaceLost     = crdb.New("local ref changed concurrently")
	ErrLocalGit        = crdb.New("local git error")
)

// Unreachable wraps err as an IpfsUnreachable failure, recording the daemon
// address the caller attempted to reach so the message stays actionable.
func Unreachable(addr string, cause error) error {
	return Mark(Wrapf(cause, "could not reach IPFS daemon at %s (is `ipfs daemon` running?)", addr), ErrIpfsUnreachable)
}

// NotFound wraps err as a NotFound failure for the given CID or path.
func NotFound(what string, cause error) error {
	return Mark(Wrapf(cause, "not found: %s", what), ErrNotFound)
}

// NonFastForward builds a per-ref NonFastForward failure.
func NonFastForward(ref string) error {
	return Mark(Newf("non-fast-forward: refusing to update %s without force", ref), ErrNonFastForward)
}

// RefRaceLost builds a per-ref RefRaceLost failure.
func RefRaceLost(ref string, cause error) error {
	return Mark(Wrapf(cause, "ref %s changed locally during the operation", ref), ErrRefRaceLost)
}

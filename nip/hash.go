package nip

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/nipfs/nip/nerrors"
)

// GitHash is the 20-byte SHA-1 identifier of a git object, exactly as git
// itself computes it: sha1("<type> <len>\x00" + content).
type GitHash [20]byte

// ZeroHash is the all-zero hash git uses to mean "no object" (e.g. the
// expected-old value of a ref being created for the first time).
var ZeroHash GitHash

// HashObject computes the git hash of raw under git's type-prefixed rule.
func HashObject(gitType string, raw []byte) GitHash {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", gitType, len(raw))
	h.Write(raw)
	var out GitHash
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyHash reports whether raw hashes to want under git's rule, returning
// a HashMismatch error (marked via nerrors) when it does not.
func VerifyHash(gitType string, raw []byte, want GitHash) error {
	got := HashObject(gitType, raw)
	if got != want {
		return nerrors.Mark(nerrors.Newf("hash mismatch: computed %s, expected %s", got, want), nerrors.ErrHashMismatch)
	}
	return nil
}

func (h GitHash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash.
func (h GitHash) IsZero() bool {
	return h == ZeroHash
}

// ParseGitHash decodes a 40-character hex git hash.
func ParseGitHash(s string) (GitHash, error) {
	var h GitHash
	if len(s) != 40 {
		return h, nerrors.Newf("git hash %q has length %d, expected 40", s, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, nerrors.Wrapf(err, "git hash %q is not valid hex", s)
	}
	copy(h[:], raw)
	return h, nil
}

// MarshalJSON renders h as its familiar 40-character hex form instead of a
// raw byte array, so nipctl's --json dumps stay legible.
func (h GitHash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (h *GitHash) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return nerrors.Newf("git hash JSON value %q is not a quoted string", s)
	}
	parsed, err := ParseGitHash(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalCBOR encodes h as a 20-byte CBOR byte string, satisfying
// cbor.Marshaler so GitHash never round-trips as a 20-element int array.
func (h GitHash) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(h[:])
}

// UnmarshalCBOR decodes a 20-byte CBOR byte string into h.
func (h *GitHash) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 20 {
		return nerrors.Mark(nerrors.Newf("git hash field has %d bytes, expected 20", len(raw)), nerrors.ErrMalformedPayload)
	}
	copy(h[:], raw)
	return nil
}

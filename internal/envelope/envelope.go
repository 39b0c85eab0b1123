// Package envelope implements the 8-byte framing every NIPObject and
// NIPIndex blob carries on IPFS: a 6-byte magic plus a big-endian u16
// protocol version, ahead of an opaque CBOR payload. The codec has no
// knowledge of CBOR or of NIPObject/NIPIndex semantics; that is the
// migration engine's job (spec §4.1).
package envelope

import (
	"encoding/binary"

	"github.com/nipfs/nip/nerrors"
)

// Magic is the literal 6-byte prefix of every framed blob.
var Magic = [6]byte{'N', 'I', 'P', 'N', 'I', 'P'}

// HeaderLen is the fixed size of the envelope header.
const HeaderLen = 8

// CurrentVersion is the protocol version this build writes.
const CurrentVersion uint16 = 2

// Encode prepends the 8-byte header for version to payload, returning the
// full framed blob ready to be `put` to IPFS.
func Encode(version uint16, payload []byte) []byte {
	out := make([]byte, HeaderLen+len(payload))
	copy(out, Magic[:])
	binary.BigEndian.PutUint16(out[6:8], version)
	copy(out[HeaderLen:], payload)
	return out
}

// Decode validates the header and splits framed into (version, payload).
// It fails with a BadMagic-marked error if the first 6 bytes don't match
// Magic.
func Decode(framed []byte) (uint16, []byte, error) {
	if len(framed) < HeaderLen {
		return 0, nil, nerrors.Mark(nerrors.Newf("envelope is %d bytes, shorter than the %d-byte header", len(framed), HeaderLen), nerrors.ErrBadMagic)
	}
	var got [6]byte
	copy(got[:], framed[:6])
	if got != Magic {
		return 0, nil, nerrors.Mark(nerrors.Newf("malformed magic %q, expected %q", got, Magic), nerrors.ErrBadMagic)
	}
	version := binary.BigEndian.Uint16(framed[6:8])
	return version, framed[HeaderLen:], nil
}

// PeekVersion returns the protocol version without touching the payload,
// used by callers that want to short-circuit before allocating a decoder
// for a version they can't handle.
func PeekVersion(framed []byte) (uint16, error) {
	version, _, err := Decode(framed)
	return version, err
}

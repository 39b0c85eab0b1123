package nip

import (
	"github.com/ipfs/go-cid"

	"github.com/nipfs/nip/nerrors"
)

// CID is an IPFS content identifier carried as text on the wire. It is kept
// as a string at the object-model boundary (CBOR text string, per spec §6)
// and only parsed into a structured github.com/ipfs/go-cid value where that
// buys something: validation, and the IPFS store adapter's put/get/resolve
// surface.
type CID string

// Validate parses c as a CID, rejecting malformed identifiers early instead
// of letting them travel all the way to an IPFS daemon round trip.
func (c CID) Validate() error {
	if c == "" {
		return nerrors.New("empty IPFS CID")
	}
	if _, err := cid.Decode(string(c)); err != nil {
		return nerrors.Wrapf(err, "invalid IPFS CID %q", string(c))
	}
	return nil
}

func (c CID) String() string { return string(c) }

// ParseCID validates c and returns the structured github.com/ipfs/go-cid
// value the ipfsapi.Store adapter boundary expects.
func ParseCID(c CID) (cid.Cid, error) {
	parsed, err := cid.Decode(string(c))
	if err != nil {
		return cid.Cid{}, nerrors.Wrapf(err, "invalid IPFS CID %q", string(c))
	}
	return parsed, nil
}

// NIPObject wraps one git object for storage on IPFS, per spec §3/§6.
type NIPObject struct {
	RawDataIPFSHash CID      `cbor:"raw_data_ipfs_hash"`
	GitHashField    GitHash  `cbor:"git_hash"`
	MetadataField   Metadata `cbor:"metadata"`
}

// GitHash is the git object identifier this NIPObject represents.
func (o NIPObject) GitHash() GitHash { return o.GitHashField }

// Edges returns the git hashes this object's metadata directly references.
func (o NIPObject) Edges() []GitHash { return o.MetadataField.Edges() }

// Kind returns the git object type (commit/tree/blob/tag) this NIPObject
// represents, as recorded in its metadata.
func (o NIPObject) Kind() ObjectKind { return o.MetadataField.Kind }

// GitType returns Kind as the string git itself uses for object headers
// ("commit", "tree", "blob", "tag").
func (o NIPObject) GitType() string { return gitTypeOf(o.MetadataField.Kind) }

// NewNIPObject builds a NIPObject from the pieces the sync engine collects
// while walking the local git graph during push.
func NewNIPObject(rawCID CID, gitHash GitHash, metadata Metadata) NIPObject {
	return NIPObject{RawDataIPFSHash: rawCID, GitHashField: gitHash, MetadataField: metadata}
}

// EncodeObject serializes o as canonical CBOR for the current protocol
// version.
func EncodeObject(o NIPObject) ([]byte, error) {
	return marshalCanonical(o)
}

// DecodeObjectV2 parses bytes already known to be v2-schema NIPObject CBOR.
// Older versions are handled by the migration engine, which produces a v2
// NIPObject before handing it back to callers.
func DecodeObjectV2(data []byte) (NIPObject, error) {
	var o NIPObject
	if err := unmarshalCanonical(data, &o); err != nil {
		return NIPObject{}, nerrors.Mark(nerrors.Wrap(err, "decoding NIPObject"), nerrors.ErrMalformedPayload)
	}
	return o, nil
}

// VerifyGitHash checks invariant 2 (spec §3): the raw bytes at
// RawDataIPFSHash, once retrieved, must hash to GitHashField under git's
// rule for the object's own kind.
func (o NIPObject) VerifyGitHash(raw []byte) error {
	return VerifyHash(gitTypeOf(o.MetadataField.Kind), raw, o.GitHashField)
}

func gitTypeOf(k ObjectKind) string {
	return string(k)
}

package nip

import "github.com/nipfs/nip/nerrors"

// The v1 wire schema, frozen exactly as legacy producers emitted it so the
// migration engine can decode historical bytes. v1 NIPObjects lack
// GitHashField and had no typed submodule marker; tree entries were plain
// hex strings, some of which may have encoded a submodule gitlink in an
// unspecified way. v1 NIPIndex has the same three fields as v2, but every
// git hash in it is a 40-character hex string rather than a 20-byte value.

// ObjectV1 is the pre-git_hash wire shape of NIPObject.
type ObjectV1 struct {
	RawDataIPFSHash CID        `cbor:"raw_data_ipfs_hash"`
	Metadata        MetadataV1 `cbor:"metadata"`
}

// MetadataV1 is the pre-git_hash wire shape of Metadata: same tagged union,
// but tree entries are untyped hex strings instead of typed GitHash/marker
// values, since v1 had no concept of a submodule marker.
type MetadataV1 struct {
	Type    string   `cbor:"type"`
	Parents []string `cbor:"parents,omitempty"`
	Tree    string   `cbor:"tree,omitempty"`
	Entries []string `cbor:"entries,omitempty"`
	Target  string   `cbor:"target,omitempty"`
}

// IndexV1 has the same fields as the current NIPIndex, but its ref targets
// and object keys are hex strings, not CBOR byte strings, so it does not
// decode as a v2 index; the v1->v2 stage parses each hex hash.
type IndexV1 struct {
	Refs        map[string]string `cbor:"refs"`
	Objects     map[string]CID    `cbor:"objects"`
	PrevIdxHash *CID              `cbor:"prev_idx_hash,omitempty"`
}

// EncodeObjectV1 serializes o under the legacy v1 schema. Production code
// never writes v1; this exists so tests can build legacy fixtures for the
// migration engine without hand-rolling CBOR bytes.
func EncodeObjectV1(o ObjectV1) ([]byte, error) {
	return marshalCanonical(o)
}

// EncodeIndexV1 serializes idx under the legacy v1 schema, for the same
// fixture-building reason as EncodeObjectV1.
func EncodeIndexV1(idx IndexV1) ([]byte, error) {
	return marshalCanonical(idx)
}

// DecodeObjectV1 parses bytes already known to be v1-schema NIPObject CBOR.
func DecodeObjectV1(data []byte) (ObjectV1, error) {
	var o ObjectV1
	if err := unmarshalCanonical(data, &o); err != nil {
		return ObjectV1{}, err
	}
	return o, nil
}

// DecodeIndexV1 parses bytes already known to be v1-schema NIPIndex CBOR.
func DecodeIndexV1(data []byte) (IndexV1, error) {
	var idx IndexV1
	if err := unmarshalCanonical(data, &idx); err != nil {
		return IndexV1{}, err
	}
	return idx, nil
}

// ToV2 converts a v1 metadata map into the current typed shape, parsing hex
// git hashes and recognizing the submodule marker in tree entries.
func (m MetadataV1) ToV2() (Metadata, error) {
	switch ObjectKind(m.Type) {
	case KindCommit:
		parents := make([]GitHash, len(m.Parents))
		for i, p := range m.Parents {
			h, err := ParseGitHash(p)
			if err != nil {
				return Metadata{}, err
			}
			parents[i] = h
		}
		tree, err := ParseGitHash(m.Tree)
		if err != nil {
			return Metadata{}, err
		}
		return CommitMetadata(parents, tree), nil
	case KindTree:
		entries := make([]TreeEntry, len(m.Entries))
		for i, e := range m.Entries {
			if e == submoduleTip {
				entries[i] = TreeEntry{Submodule: true}
				continue
			}
			h, err := ParseGitHash(e)
			if err != nil {
				return Metadata{}, err
			}
			entries[i] = TreeEntry{Hash: h}
		}
		return TreeMetadata(entries), nil
	case KindTag:
		target, err := ParseGitHash(m.Target)
		if err != nil {
			return Metadata{}, err
		}
		return TagMetadata(target), nil
	case KindBlob:
		return BlobMetadata(), nil
	default:
		return Metadata{}, nerrors.Newf("v1 metadata has unknown type %q", m.Type)
	}
}

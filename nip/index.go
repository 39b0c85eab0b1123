package nip

import (
	"sort"

	"github.com/nipfs/nip/nerrors"
)

// NIPIndex is one immutable snapshot of a nip remote, per spec §3: the refs
// it exposes, the git-hash-to-NIPObject-CID map backing them, and an
// optional link to the index it supersedes.
type NIPIndex struct {
	Refs        map[string]GitHash `cbor:"refs"`
	Objects     map[GitHash]CID    `cbor:"objects"`
	PrevIdxHash *CID               `cbor:"prev_idx_hash,omitempty"`
}

// EmptyIndex returns the baseline index used when a push targets
// nip::new-ipfs / nip::new-ipns (spec §4.5.1 step 1).
func EmptyIndex() NIPIndex {
	return NIPIndex{
		Refs:    map[string]GitHash{},
		Objects: map[GitHash]CID{},
	}
}

// Clone returns a deep copy so callers can build a new working index
// without mutating a baseline still referenced elsewhere (spec §3
// ownership: NIPIndex values are plain data, freely cloned).
func (idx NIPIndex) Clone() NIPIndex {
	out := NIPIndex{
		Refs:    make(map[string]GitHash, len(idx.Refs)),
		Objects: make(map[GitHash]CID, len(idx.Objects)),
	}
	for k, v := range idx.Refs {
		out.Refs[k] = v
	}
	for k, v := range idx.Objects {
		out.Objects[k] = v
	}
	if idx.PrevIdxHash != nil {
		prev := *idx.PrevIdxHash
		out.PrevIdxHash = &prev
	}
	return out
}

// Has reports whether gitHash already has a NIPObject recorded in this
// index (spec §4.5.1 step 2: the baseline prune check).
func (idx NIPIndex) Has(gitHash GitHash) bool {
	_, ok := idx.Objects[gitHash]
	return ok
}

// SortedRefNames returns ref names in lexical order, used for deterministic
// `list` output in the helper dialogue.
func (idx NIPIndex) SortedRefNames() []string {
	names := make([]string, 0, len(idx.Refs))
	for name := range idx.Refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EncodeIndex serializes idx as canonical CBOR for the current protocol
// version.
func EncodeIndex(idx NIPIndex) ([]byte, error) {
	return marshalCanonical(idx)
}

// DecodeIndexV2 parses bytes already known to be v2-schema NIPIndex CBOR.
func DecodeIndexV2(data []byte) (NIPIndex, error) {
	var idx NIPIndex
	if err := unmarshalCanonical(data, &idx); err != nil {
		return NIPIndex{}, nerrors.Mark(nerrors.Wrap(err, "decoding NIPIndex"), nerrors.ErrMalformedPayload)
	}
	if idx.Refs == nil {
		idx.Refs = map[string]GitHash{}
	}
	if idx.Objects == nil {
		idx.Objects = map[GitHash]CID{}
	}
	return idx, nil
}

// CheckClosure verifies invariant 1 (spec §3): every git hash reachable
// from any ref, transitively through NIPObject edges recorded in objects,
// is itself a key in objects. edgesOf looks up an already-known NIPObject's
// edges by git hash; it is supplied by the caller since NIPIndex itself
// does not hold NIPObject bodies, only their CIDs.
func (idx NIPIndex) CheckClosure(edgesOf func(GitHash) ([]GitHash, bool)) error {
	seen := map[GitHash]bool{}
	var walk func(GitHash) error
	walk = func(h GitHash) error {
		if seen[h] {
			return nil
		}
		seen[h] = true
		if !idx.Has(h) {
			return nerrors.Mark(nerrors.Newf("git hash %s is not a key in objects", h), nerrors.ErrMissingObject)
		}
		edges, ok := edgesOf(h)
		if !ok {
			return nerrors.Mark(nerrors.Newf("no edges known for %s during closure check", h), nerrors.ErrMissingObject)
		}
		for _, e := range edges {
			if err := walk(e); err != nil {
				return err
			}
		}
		return nil
	}
	for _, h := range idx.Refs {
		if err := walk(h); err != nil {
			return err
		}
	}
	return nil
}

package nip

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/nipfs/nip/nerrors"
)

// ObjectKind mirrors git's own object type names.
type ObjectKind string

const (
	KindCommit ObjectKind = "commit"
	KindTree   ObjectKind = "tree"
	KindBlob   ObjectKind = "blob"
	KindTag    ObjectKind = "tag"
)

// submoduleTip is the literal marker a Tree entry carries in place of a git
// hash when it points at a submodule commit. Behavior beyond recognizing
// the marker is reserved (spec Non-goals).
const submoduleTip = "submodule-tip"

// TreeEntry is one child of a Tree's metadata. Git does not distinguish
// subtree from blob entries at this level, so neither do we; Submodule is
// set when the entry is the reserved gitlink placeholder instead of a git
// hash.
type TreeEntry struct {
	Hash      GitHash
	Submodule bool
}

// Metadata captures the type-specific edges of a git object, per spec
// §4.1/§6. It is the canonical (current-version) in-memory shape; legacy
// wire versions are translated into it by the migration engine.
type Metadata struct {
	Kind    ObjectKind
	Parents []GitHash   // commit
	Tree    GitHash     // commit
	Entries []TreeEntry // tree
	Target  GitHash     // tag
}

// CommitMetadata builds metadata for a commit object.
func CommitMetadata(parents []GitHash, tree GitHash) Metadata {
	return Metadata{Kind: KindCommit, Parents: parents, Tree: tree}
}

// TreeMetadata builds metadata for a tree object.
func TreeMetadata(entries []TreeEntry) Metadata {
	return Metadata{Kind: KindTree, Entries: entries}
}

// BlobMetadata builds metadata for a blob object (no edges).
func BlobMetadata() Metadata {
	return Metadata{Kind: KindBlob}
}

// TagMetadata builds metadata for an annotated/signed tag object.
func TagMetadata(target GitHash) Metadata {
	return Metadata{Kind: KindTag, Target: target}
}

// Edges returns the git hashes directly referenced by this metadata,
// excluding submodule markers, for graph traversal (the fetch closure
// walk; push computes its frontier from gitstore.Store.ParseObjectEdges).
func (m Metadata) Edges() []GitHash {
	switch m.Kind {
	case KindCommit:
		edges := make([]GitHash, 0, len(m.Parents)+1)
		edges = append(edges, m.Parents...)
		edges = append(edges, m.Tree)
		return edges
	case KindTree:
		edges := make([]GitHash, 0, len(m.Entries))
		for _, e := range m.Entries {
			if e.Submodule {
				continue
			}
			edges = append(edges, e.Hash)
		}
		return edges
	case KindTag:
		return []GitHash{m.Target}
	case KindBlob:
		return nil
	default:
		return nil
	}
}

// MarshalCBOR encodes Metadata as a canonical CBOR map with a "type"
// discriminator, matching the tagged-union schema from spec §6. It goes
// through the package's own canonical encMode (marshalCanonical), not the
// package-level cbor.Marshal, which defaults to SortNone and would let
// nested map key order vary between invocations of the outer
// encMode.Marshal(NIPObject{...}) call in object.go.
func (m Metadata) MarshalCBOR() ([]byte, error) {
	switch m.Kind {
	case KindCommit:
		return marshalCanonical(map[string]interface{}{
			"type":    string(KindCommit),
			"parents": m.Parents,
			"tree":    m.Tree,
		})
	case KindTree:
		entries := make([]interface{}, len(m.Entries))
		for i, e := range m.Entries {
			if e.Submodule {
				entries[i] = submoduleTip
			} else {
				entries[i] = e.Hash
			}
		}
		return marshalCanonical(map[string]interface{}{
			"type":    string(KindTree),
			"entries": entries,
		})
	case KindTag:
		return marshalCanonical(map[string]interface{}{
			"type":   string(KindTag),
			"target": m.Target,
		})
	case KindBlob:
		return marshalCanonical(map[string]interface{}{
			"type": string(KindBlob),
		})
	default:
		return nil, nerrors.Newf("cannot encode metadata with unknown kind %q", m.Kind)
	}
}

// UnmarshalCBOR decodes a tagged-union metadata map, dispatching on "type".
func (m *Metadata) UnmarshalCBOR(data []byte) error {
	var raw map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nerrors.Mark(nerrors.Wrap(err, "decoding metadata envelope"), nerrors.ErrMalformedPayload)
	}

	typeRaw, ok := raw["type"]
	if !ok {
		return nerrors.Mark(nerrors.New("metadata is missing its \"type\" discriminator"), nerrors.ErrMalformedPayload)
	}
	var kind string
	if err := cbor.Unmarshal(typeRaw, &kind); err != nil {
		return nerrors.Mark(nerrors.Wrap(err, "decoding metadata type"), nerrors.ErrMalformedPayload)
	}

	switch ObjectKind(kind) {
	case KindCommit:
		var parents []GitHash
		if v, ok := raw["parents"]; ok {
			if err := cbor.Unmarshal(v, &parents); err != nil {
				return nerrors.Mark(nerrors.Wrap(err, "decoding commit parents"), nerrors.ErrMalformedPayload)
			}
		}
		var tree GitHash
		if v, ok := raw["tree"]; ok {
			if err := cbor.Unmarshal(v, &tree); err != nil {
				return nerrors.Mark(nerrors.Wrap(err, "decoding commit tree"), nerrors.ErrMalformedPayload)
			}
		}
		*m = CommitMetadata(parents, tree)
	case KindTree:
		var rawEntries []cbor.RawMessage
		if v, ok := raw["entries"]; ok {
			if err := cbor.Unmarshal(v, &rawEntries); err != nil {
				return nerrors.Mark(nerrors.Wrap(err, "decoding tree entries"), nerrors.ErrMalformedPayload)
			}
		}
		entries := make([]TreeEntry, len(rawEntries))
		for i, re := range rawEntries {
			var asString string
			if err := cbor.Unmarshal(re, &asString); err == nil && asString == submoduleTip {
				entries[i] = TreeEntry{Submodule: true}
				continue
			}
			var h GitHash
			if err := cbor.Unmarshal(re, &h); err != nil {
				return nerrors.Mark(nerrors.Wrap(err, "decoding tree entry"), nerrors.ErrMalformedPayload)
			}
			entries[i] = TreeEntry{Hash: h}
		}
		*m = TreeMetadata(entries)
	case KindTag:
		var target GitHash
		if v, ok := raw["target"]; ok {
			if err := cbor.Unmarshal(v, &target); err != nil {
				return nerrors.Mark(nerrors.Wrap(err, "decoding tag target"), nerrors.ErrMalformedPayload)
			}
		}
		*m = TagMetadata(target)
	case KindBlob:
		*m = BlobMetadata()
	default:
		return nerrors.Mark(nerrors.Newf("metadata has unknown type %q", kind), nerrors.ErrMalformedPayload)
	}
	return nil
}

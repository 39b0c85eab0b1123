package nip

import (
	"bytes"
	"testing"
)

func TestIndexRoundTrip(t *testing.T) {
	idx := EmptyIndex()
	commitHash := GitHash{1}
	treeHash := GitHash{2}
	idx.Refs["refs/heads/master"] = commitHash
	idx.Objects[commitHash] = CID("bafkreicommit")
	idx.Objects[treeHash] = CID("bafkreitree")
	prev := CID("bafkreiprev")
	idx.PrevIdxHash = &prev

	encoded, err := EncodeIndex(idx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeIndexV2(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Refs["refs/heads/master"] != commitHash {
		t.Fatalf("ref lost in round trip")
	}
	if decoded.Objects[commitHash] != CID("bafkreicommit") {
		t.Fatalf("object entry lost in round trip")
	}
	if decoded.PrevIdxHash == nil || *decoded.PrevIdxHash != prev {
		t.Fatalf("prev_idx_hash lost in round trip")
	}
}

func TestIndexCanonicalEncodingIsStable(t *testing.T) {
	idx := EmptyIndex()
	idx.Refs["refs/heads/a"] = GitHash{1}
	idx.Refs["refs/heads/b"] = GitHash{2}
	idx.Objects[GitHash{1}] = CID("x")
	idx.Objects[GitHash{2}] = CID("y")

	a, err := EncodeIndex(idx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := EncodeIndex(idx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("encoding the same index twice produced different bytes")
	}
}

func TestEmptyIndexHasNoPrev(t *testing.T) {
	idx := EmptyIndex()
	if idx.PrevIdxHash != nil {
		t.Fatalf("fresh empty index should have no prev_idx_hash")
	}
}

func TestCheckClosureDetectsMissingObject(t *testing.T) {
	idx := EmptyIndex()
	tip := GitHash{1}
	missing := GitHash{2}
	idx.Refs["refs/heads/master"] = tip
	idx.Objects[tip] = CID("bafkreitip")

	err := idx.CheckClosure(func(h GitHash) ([]GitHash, bool) {
		if h == tip {
			return []GitHash{missing}, true
		}
		return nil, false
	})
	if err == nil {
		t.Fatalf("expected closure check to fail on missing object")
	}
}

func TestCheckClosureAcceptsClosedGraph(t *testing.T) {
	idx := EmptyIndex()
	tip := GitHash{1}
	tree := GitHash{2}
	blob := GitHash{3}
	idx.Refs["refs/heads/master"] = tip
	idx.Objects[tip] = CID("c1")
	idx.Objects[tree] = CID("c2")
	idx.Objects[blob] = CID("c3")

	edges := map[GitHash][]GitHash{
		tip:  {tree},
		tree: {blob},
		blob: {},
	}
	err := idx.CheckClosure(func(h GitHash) ([]GitHash, bool) {
		e, ok := edges[h]
		return e, ok
	})
	if err != nil {
		t.Fatalf("expected closure check to succeed: %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	idx := EmptyIndex()
	idx.Refs["refs/heads/master"] = GitHash{1}
	clone := idx.Clone()
	clone.Refs["refs/heads/master"] = GitHash{2}
	if idx.Refs["refs/heads/master"] == (GitHash{2}) {
		t.Fatalf("mutating clone affected original")
	}
}

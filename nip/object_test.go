package nip

import (
	"bytes"
	"testing"
)

func sampleCommit() NIPObject {
	tree := GitHash{1, 2, 3}
	parent := GitHash{9, 9, 9}
	return NewNIPObject(
		CID("bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"),
		HashObject("commit", []byte("commit body")),
		CommitMetadata([]GitHash{parent}, tree),
	)
}

func TestObjectRoundTrip(t *testing.T) {
	for _, obj := range []NIPObject{
		sampleCommit(),
		NewNIPObject(CID("bafkreiaaaa"), GitHash{4, 5}, TreeMetadata([]TreeEntry{
			{Hash: GitHash{7}},
			{Submodule: true},
		})),
		NewNIPObject(CID("bafkreibbbb"), GitHash{6}, BlobMetadata()),
		NewNIPObject(CID("bafkreicccc"), GitHash{8}, TagMetadata(GitHash{10})),
	} {
		encoded, err := EncodeObject(obj)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := DecodeObjectV2(encoded)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.GitHash() != obj.GitHash() {
			t.Fatalf("git hash mismatch: got %s want %s", decoded.GitHash(), obj.GitHash())
		}
		if decoded.RawDataIPFSHash != obj.RawDataIPFSHash {
			t.Fatalf("cid mismatch: got %s want %s", decoded.RawDataIPFSHash, obj.RawDataIPFSHash)
		}
		if decoded.MetadataField.Kind != obj.MetadataField.Kind {
			t.Fatalf("kind mismatch: got %s want %s", decoded.MetadataField.Kind, obj.MetadataField.Kind)
		}
	}
}

func TestObjectCanonicalEncodingIsStable(t *testing.T) {
	obj := sampleCommit()
	a, err := EncodeObject(obj)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := EncodeObject(obj)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("encoding the same value twice produced different bytes")
	}
}

func TestTreeEntrySubmoduleMarkerRoundTrips(t *testing.T) {
	obj := NewNIPObject(CID("bafkreidddd"), GitHash{1}, TreeMetadata([]TreeEntry{
		{Submodule: true},
		{Hash: GitHash{2, 2}},
	}))
	encoded, err := EncodeObject(obj)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeObjectV2(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.MetadataField.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(decoded.MetadataField.Entries))
	}
	if !decoded.MetadataField.Entries[0].Submodule {
		t.Fatalf("expected first entry to be the submodule marker")
	}
	if decoded.MetadataField.Entries[1].Hash != (GitHash{2, 2}) {
		t.Fatalf("second entry hash mismatch")
	}
}

func TestVerifyGitHash(t *testing.T) {
	raw := []byte("hello world")
	h := HashObject("blob", raw)
	obj := NewNIPObject(CID("bafkreieeee"), h, BlobMetadata())
	if err := obj.VerifyGitHash(raw); err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	if err := obj.VerifyGitHash([]byte("tampered")); err == nil {
		t.Fatalf("expected verification to fail on tampered bytes")
	}
}

package gitstore

import (
	"io"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/nipfs/nip/nip"
)

func newTestStore(t *testing.T) (*GoGitStore, *git.Repository) {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		t.Fatalf("git.Init: %v", err)
	}
	return New(repo), repo
}

func TestWriteReadBlobRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	raw := []byte("hello blob")

	h, err := s.WriteObject("blob", raw)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !s.HasObject(h) {
		t.Fatalf("expected HasObject to be true after write")
	}
	gitType, got, err := s.ReadObject(h)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gitType != "blob" || string(got) != string(raw) {
		t.Fatalf("round trip mismatch: type=%s data=%q", gitType, got)
	}
}

func TestUpdateRefCAS(t *testing.T) {
	s, _ := newTestStore(t)
	blobHash, _ := s.WriteObject("blob", []byte("x"))

	if err := s.UpdateRef("refs/heads/master", blobHash, nil); err != nil {
		t.Fatalf("initial update: %v", err)
	}

	refs, err := s.ListRefs()
	if err != nil {
		t.Fatalf("list refs: %v", err)
	}
	if refs["refs/heads/master"] != blobHash {
		t.Fatalf("ref not set correctly")
	}

	other, _ := s.WriteObject("blob", []byte("y"))
	staleOld := nip.GitHash{} // wrong expected value
	if err := s.UpdateRef("refs/heads/master", other, &staleOld); err == nil {
		t.Fatalf("expected a RefRaceLost error on stale CAS")
	}

	if err := s.UpdateRef("refs/heads/master", other, &blobHash); err != nil {
		t.Fatalf("correct CAS update: %v", err)
	}
}

func TestParseObjectEdgesCommit(t *testing.T) {
	s, repo := newTestStore(t)

	treeHash, err := s.WriteObject("tree", []byte{})
	if err != nil {
		t.Fatalf("write empty tree: %v", err)
	}

	commit := &object.Commit{
		Author:       object.Signature{Name: "a", Email: "a@example.com", When: time.Unix(0, 0)},
		Committer:    object.Signature{Name: "a", Email: "a@example.com", When: time.Unix(0, 0)},
		Message:      "msg",
		TreeHash:     plumbing.Hash(treeHash),
		ParentHashes: []plumbing.Hash{},
	}
	enc := repo.Storer.NewEncodedObject()
	if err := commit.Encode(enc); err != nil {
		t.Fatalf("encode commit: %v", err)
	}
	r, err := enc.Reader()
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read raw commit: %v", err)
	}

	edges, err := s.ParseObjectEdges("commit", raw)
	if err != nil {
		t.Fatalf("parse edges: %v", err)
	}
	if len(edges) != 1 || edges[0] != treeHash {
		t.Fatalf("expected a single tree edge, got %v", edges)
	}
}

package sync

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/nipfs/nip/gitstore"
	"github.com/nipfs/nip/ipfsapi/ipfsapitest"
	"github.com/nipfs/nip/nip"
	"github.com/nipfs/nip/nremote"
)

// repoWithOneCommit builds an in-memory git repo containing a single blob,
// tree, and commit, returning the local store and the commit's git hash.
func repoWithOneCommit(t *testing.T) (*gitstore.GoGitStore, nip.GitHash) {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		t.Fatalf("git.Init: %v", err)
	}
	gs := gitstore.New(repo)

	blobHash, err := gs.WriteObject("blob", []byte("hello\n"))
	if err != nil {
		t.Fatalf("write blob: %v", err)
	}

	tree := &object.Tree{Entries: []object.TreeEntry{
		{Name: "README.md", Mode: filemode.Regular, Hash: plumbing.Hash(blobHash)},
	}}
	enc := repo.Storer.NewEncodedObject()
	if err := tree.Encode(enc); err != nil {
		t.Fatalf("encode tree: %v", err)
	}
	treeHash, err := repo.Storer.SetEncodedObject(enc)
	if err != nil {
		t.Fatalf("store tree: %v", err)
	}

	commit := &object.Commit{
		Author:    object.Signature{Name: "a", Email: "a@example.com", When: time.Unix(0, 0)},
		Committer: object.Signature{Name: "a", Email: "a@example.com", When: time.Unix(0, 0)},
		Message:   "init",
		TreeHash:  treeHash,
	}
	cenc := repo.Storer.NewEncodedObject()
	if err := commit.Encode(cenc); err != nil {
		t.Fatalf("encode commit: %v", err)
	}
	commitHash, err := repo.Storer.SetEncodedObject(cenc)
	if err != nil {
		t.Fatalf("store commit: %v", err)
	}

	return gs, nip.GitHash(commitHash)
}

func TestPushThenFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	srcStore, commitHash := repoWithOneCommit(t)
	ipfs := ipfsapitest.NewMemStore()
	remote := nremote.Remote{Kind: nremote.NewIPFS}

	pushed, err := Push(ctx, srcStore, ipfs, remote, nip.EmptyIndex(), nil, []RefUpdate{
		{RefName: "refs/heads/master", NewHash: commitHash},
	}, 2)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(pushed.RefErrors) != 0 {
		t.Fatalf("unexpected ref errors: %v", pushed.RefErrors)
	}
	if len(pushed.Index.Objects) != 3 {
		t.Fatalf("expected 3 objects (blob, tree, commit), got %d", len(pushed.Index.Objects))
	}

	destRepo, err := git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		t.Fatalf("git.Init dest: %v", err)
	}
	destStore := gitstore.New(destRepo)

	fetched, err := Fetch(ctx, destStore, ipfs, pushed.IndexCID.String(), []string{"refs/heads/master"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fetched.ObjectsWritten != 3 {
		t.Fatalf("expected 3 objects written, got %d", fetched.ObjectsWritten)
	}
	if !destStore.HasObject(commitHash) {
		t.Fatalf("commit not present locally after fetch")
	}

	refs, err := destStore.ListRefs()
	if err != nil {
		t.Fatalf("list refs: %v", err)
	}
	if refs["refs/heads/master"] != commitHash {
		t.Fatalf("ref not updated correctly: %v", refs)
	}
}

func TestPushRejectsNonFastForwardWithoutForce(t *testing.T) {
	ctx := context.Background()
	gs, commitHash := repoWithOneCommit(t)
	ipfs := ipfsapitest.NewMemStore()
	remote := nremote.Remote{Kind: nremote.NewIPFS}

	first, err := Push(ctx, gs, ipfs, remote, nip.EmptyIndex(), nil, []RefUpdate{
		{RefName: "refs/heads/master", NewHash: commitHash},
	}, 2)
	if err != nil {
		t.Fatalf("first push: %v", err)
	}

	unrelatedHash, err := gs.WriteObject("blob", []byte("unrelated"))
	if err != nil {
		t.Fatalf("write unrelated blob: %v", err)
	}

	second, err := Push(ctx, gs, ipfs, remote, first.Index, &first.IndexCID, []RefUpdate{
		{RefName: "refs/heads/master", NewHash: unrelatedHash},
	}, 2)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if second.RefErrors["refs/heads/master"] == nil {
		t.Fatalf("expected a non-fast-forward error, got none")
	}
	if second.Index.Refs["refs/heads/master"] != commitHash {
		t.Fatalf("rejected ref should retain its previous value, got %v", second.Index.Refs["refs/heads/master"])
	}
}

func TestPushAllowsForcedNonFastForward(t *testing.T) {
	ctx := context.Background()
	gs, commitHash := repoWithOneCommit(t)
	ipfs := ipfsapitest.NewMemStore()
	remote := nremote.Remote{Kind: nremote.NewIPFS}

	first, err := Push(ctx, gs, ipfs, remote, nip.EmptyIndex(), nil, []RefUpdate{
		{RefName: "refs/heads/master", NewHash: commitHash},
	}, 2)
	if err != nil {
		t.Fatalf("first push: %v", err)
	}

	unrelatedHash, err := gs.WriteObject("blob", []byte("unrelated"))
	if err != nil {
		t.Fatalf("write unrelated blob: %v", err)
	}

	second, err := Push(ctx, gs, ipfs, remote, first.Index, &first.IndexCID, []RefUpdate{
		{RefName: "refs/heads/master", NewHash: unrelatedHash, Forced: true},
	}, 2)
	if err != nil {
		t.Fatalf("forced push: %v", err)
	}
	if len(second.RefErrors) != 0 {
		t.Fatalf("forced push should not report ref errors: %v", second.RefErrors)
	}
	if second.Index.Refs["refs/heads/master"] != unrelatedHash {
		t.Fatalf("forced push should update the ref, got %v", second.Index.Refs["refs/heads/master"])
	}
}

func TestPushSecondRunOnlyUploadsNewObjects(t *testing.T) {
	ctx := context.Background()
	gs, commitHash := repoWithOneCommit(t)
	ipfs := ipfsapitest.NewMemStore()
	remote := nremote.Remote{Kind: nremote.NewIPFS}

	first, err := Push(ctx, gs, ipfs, remote, nip.EmptyIndex(), nil, []RefUpdate{
		{RefName: "refs/heads/master", NewHash: commitHash},
	}, 2)
	if err != nil {
		t.Fatalf("first push: %v", err)
	}

	second, err := Push(ctx, gs, ipfs, remote, first.Index, &first.IndexCID, []RefUpdate{
		{RefName: "refs/heads/master", NewHash: commitHash},
	}, 2)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if len(second.Index.Objects) != len(first.Index.Objects) {
		t.Fatalf("pushing the same commit again should not add objects: first=%d second=%d",
			len(first.Index.Objects), len(second.Index.Objects))
	}
	if second.Index.PrevIdxHash == nil || *second.Index.PrevIdxHash != first.IndexCID {
		t.Fatalf("expected prev_idx_hash to chain to the first push's CID")
	}
}

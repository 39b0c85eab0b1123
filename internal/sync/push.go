// Package sync implements the push and fetch algorithms from spec §4.5:
// incremental transfer of a git object graph between a local repository and
// a NIPIndex snapshot on IPFS, using git-hash edges (not IPFS CIDs) so
// traversal can prune at objects already present on either side.
package sync

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nipfs/nip/gitstore"
	"github.com/nipfs/nip/internal/envelope"
	"github.com/nipfs/nip/ipfsapi"
	"github.com/nipfs/nip/nerrors"
	"github.com/nipfs/nip/nip"
	"github.com/nipfs/nip/nremote"
)

// DefaultWorkers is the bounded worker pool width used when callers don't
// specify one (spec §5: optional concurrency for per-object put/get).
const DefaultWorkers = 8

// RefUpdate is one (local_ref_name, new_git_hash, forced?) triple from the
// helper dialogue's push batch.
type RefUpdate struct {
	RefName string
	NewHash nip.GitHash
	Forced  bool
}

// PushResult is what the helper dialogue needs to report `ok <dst>` /
// `error <dst> <msg>` per ref and the new top-level remote address.
type PushResult struct {
	Index       nip.NIPIndex
	IndexCID    nip.CID
	IndexFramed []byte
	// RefErrors holds a NonFastForward error for each ref that was rejected;
	// refs absent from this map succeeded.
	RefErrors map[string]error
	// PublishedName is set when remote.IsIPNS() and the store supports
	// Publisher; it is the IPNS name the new index CID was published under.
	PublishedName string
}

type rawObject struct {
	gitType string
	raw     []byte
}

// Push implements spec §4.5.1. baseline is the already-migrated current
// index (or nip.EmptyIndex() for a new-ipfs/new-ipns remote). workers <= 0
// falls back to DefaultWorkers.
func Push(ctx context.Context, gs gitstore.Store, store ipfsapi.Store, remote nremote.Remote, baseline nip.NIPIndex, baselineCID *nip.CID, updates []RefUpdate, workers int) (PushResult, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	working := baseline.Clone()
	working.PrevIdxHash = baselineCID
	visited := map[nip.GitHash]bool{}
	rawCache := map[nip.GitHash]rawObject{}
	var order []nip.GitHash

	type frontier struct {
		update  RefUpdate
		oldHash nip.GitHash
		sawOld  bool
	}
	frontiers := make([]*frontier, 0, len(updates))

	for _, u := range updates {
		oldHash, hadOld := baseline.Refs[u.RefName]
		f := &frontier{update: u, oldHash: oldHash}
		frontiers = append(frontiers, f)

		if err := collectNewObjects(gs, baseline, u.NewHash, visited, rawCache, &order); err != nil {
			return PushResult{}, err
		}

		switch {
		case !hadOld, u.NewHash == oldHash:
			f.sawOld = true // no remote value yet, or a no-op push: trivially fast-forward
		default:
			reachable, err := isDescendant(gs, u.NewHash, oldHash)
			if err != nil {
				return PushResult{}, err
			}
			f.sawOld = reachable
		}
	}

	if err := uploadObjects(ctx, gs, store, order, rawCache, &working, workers); err != nil {
		return PushResult{}, err
	}

	refErrors := map[string]error{}
	for _, f := range frontiers {
		if !f.update.Forced && !f.sawOld {
			refErrors[f.update.RefName] = nerrors.NonFastForward(f.update.RefName)
			continue
		}
		working.Refs[f.update.RefName] = f.update.NewHash
	}

	payload, err := nip.EncodeIndex(working)
	if err != nil {
		return PushResult{}, err
	}
	framed := envelope.Encode(envelope.CurrentVersion, payload)
	indexCID, err := store.Put(ctx, framed)
	if err != nil {
		return PushResult{}, nerrors.Wrap(err, "putting new NIPIndex")
	}

	result := PushResult{
		Index:       working,
		IndexCID:    nip.CID(indexCID.String()),
		IndexFramed: framed,
		RefErrors:   refErrors,
	}

	if remote.IsIPNS() {
		publisher, ok := store.(ipfsapi.Publisher)
		if !ok {
			return result, nerrors.Newf("remote %s requires IPNS publishing, but the configured store does not support it", remote.String())
		}
		name, err := publisher.Publish(ctx, indexCID)
		if err != nil {
			return result, nerrors.Wrap(err, "publishing new index under IPNS")
		}
		result.PublishedName = name
	}

	return result, nil
}

// collectNewObjects performs the reverse traversal from root, pruning at
// any git hash already present in baseline.Objects (spec §4.5.1 step 2),
// and appends newly discovered objects to *order in post-order (children
// before parents, spec §4.5.1 step 3).
func collectNewObjects(gs gitstore.Store, baseline nip.NIPIndex, root nip.GitHash, visited map[nip.GitHash]bool, rawCache map[nip.GitHash]rawObject, order *[]nip.GitHash) error {
	if root.IsZero() {
		return nil
	}
	if visited[root] {
		return nil
	}
	if baseline.Has(root) {
		visited[root] = true
		return nil
	}
	visited[root] = true

	gitType, raw, err := gs.ReadObject(root)
	if err != nil {
		return nerrors.Wrapf(err, "reading local git object %s", root)
	}
	rawCache[root] = rawObject{gitType: gitType, raw: raw}

	edges, err := gs.ParseObjectEdges(gitType, raw)
	if err != nil {
		return nerrors.Wrapf(err, "parsing edges of %s", root)
	}
	for _, e := range edges {
		if err := collectNewObjects(gs, baseline, e, visited, rawCache, order); err != nil {
			return err
		}
	}
	*order = append(*order, root)
	return nil
}

// isDescendant reports whether old is reachable from new by walking new's
// own DAG edges (parents+tree for commits, per spec §4.4's combined edge
// set). Objects already uploaded to the remote (in baseline) still count:
// the walk continues through local git regardless of baseline membership,
// since ancestry is a purely local-graph question.
func isDescendant(gs gitstore.Store, newHash, old nip.GitHash) (bool, error) {
	if newHash == old {
		return true, nil
	}
	seen := map[nip.GitHash]bool{}
	stack := []nip.GitHash{newHash}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h.IsZero() || seen[h] {
			continue
		}
		seen[h] = true
		if h == old {
			return true, nil
		}
		if !gs.HasObject(h) {
			continue
		}
		gitType, raw, err := gs.ReadObject(h)
		if err != nil {
			return false, nerrors.Wrapf(err, "reading local git object %s during ancestry check", h)
		}
		edges, err := gs.ParseObjectEdges(gitType, raw)
		if err != nil {
			return false, nerrors.Wrapf(err, "parsing edges of %s during ancestry check", h)
		}
		stack = append(stack, edges...)
	}
	return false, nil
}

// uploadObjects runs the per-object upload step (spec §4.5.1 step 4) across
// a bounded worker pool, then records every successfully uploaded object in
// working.Objects.
func uploadObjects(ctx context.Context, gs gitstore.Store, store ipfsapi.Store, order []nip.GitHash, rawCache map[nip.GitHash]rawObject, working *nip.NIPIndex, workers int) error {
	if len(order) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, h := range order {
		h := h
		entry := rawCache[h]
		g.Go(func() error {
			metadata, err := gitstore.DecodeMetadata(entry.gitType, entry.raw)
			if err != nil {
				return err
			}
			rawCID, err := store.Put(gctx, entry.raw)
			if err != nil {
				return nerrors.Wrapf(err, "putting raw bytes for %s", h)
			}
			obj := nip.NewNIPObject(nip.CID(rawCID.String()), h, metadata)
			objPayload, err := nip.EncodeObject(obj)
			if err != nil {
				return err
			}
			framed := envelope.Encode(envelope.CurrentVersion, objPayload)
			objCID, err := store.Put(gctx, framed)
			if err != nil {
				return nerrors.Wrapf(err, "putting NIPObject for %s", h)
			}
			mu.Lock()
			working.Objects[h] = nip.CID(objCID.String())
			mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}

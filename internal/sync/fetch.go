package sync

import (
	"context"

	"github.com/nipfs/nip/gitstore"
	"github.com/nipfs/nip/internal/migrate"
	"github.com/nipfs/nip/ipfsapi"
	"github.com/nipfs/nip/nerrors"
	"github.com/nipfs/nip/nip"
)

// FetchResult reports what a fetch materialized locally, for the helper
// dialogue's progress output.
type FetchResult struct {
	Index          nip.NIPIndex
	ObjectsWritten int
}

// Fetch implements spec §4.5.2: resolve the remote's top-level index,
// migrate it if needed, then walk the closure of every want (a ref name or
// a bare git hash) children-first, writing each missing object into gs
// before updating refs last.
func Fetch(ctx context.Context, gs gitstore.Store, store ipfsapi.Store, topLevelPath string, wants []string) (FetchResult, error) {
	resolved, err := store.Resolve(ctx, topLevelPath)
	if err != nil {
		return FetchResult{}, nerrors.NotFound(topLevelPath, err)
	}
	framed, err := store.Get(ctx, resolved)
	if err != nil {
		return FetchResult{}, nerrors.NotFound(topLevelPath, err)
	}
	idx, err := migrate.DecodeIndex(framed)
	if err != nil {
		return FetchResult{}, err
	}

	targets := make(map[string]nip.GitHash, len(wants))
	for _, w := range wants {
		if h, err := nip.ParseGitHash(w); err == nil {
			targets[w] = h
			continue
		}
		h, ok := idx.Refs[w]
		if !ok {
			return FetchResult{}, nerrors.Mark(nerrors.Newf("want %q is neither a known git hash nor a ref in the remote index", w), nerrors.ErrMissingObject)
		}
		targets[w] = h
	}

	written := 0
	seen := map[nip.GitHash]bool{}
	for _, h := range targets {
		n, err := fetchClosure(ctx, gs, store, idx, h, seen)
		if err != nil {
			return FetchResult{}, err
		}
		written += n
	}

	for name, h := range idx.Refs {
		if _, wanted := targets[name]; !wanted {
			continue
		}
		var expected *nip.GitHash
		if old, ok := refLocalValue(gs, name); ok {
			expected = &old
		}
		if err := gs.UpdateRef(name, h, expected); err != nil {
			return FetchResult{}, err
		}
	}

	return FetchResult{Index: idx, ObjectsWritten: written}, nil
}

func refLocalValue(gs gitstore.Store, name string) (nip.GitHash, bool) {
	refs, err := gs.ListRefs()
	if err != nil {
		return nip.GitHash{}, false
	}
	h, ok := refs[name]
	return h, ok
}

// fetchClosure recurses into h's edges before materializing h itself
// (children-first, spec §4.5.2 step 3d), so a parent only becomes visible
// locally once every object it depends on already exists.
func fetchClosure(ctx context.Context, gs gitstore.Store, store ipfsapi.Store, idx nip.NIPIndex, h nip.GitHash, seen map[nip.GitHash]bool) (int, error) {
	if h.IsZero() || seen[h] {
		return 0, nil
	}
	seen[h] = true

	if gs.HasObject(h) {
		return 0, nil
	}

	objCID, ok := idx.Objects[h]
	if !ok {
		return 0, nerrors.Mark(nerrors.Newf("git hash %s has no NIPObject in the remote index", h), nerrors.ErrMissingObject)
	}
	c, err := nip.ParseCID(objCID)
	if err != nil {
		return 0, err
	}
	framed, err := store.Get(ctx, c)
	if err != nil {
		return 0, nerrors.NotFound(objCID.String(), err)
	}
	obj, err := migrate.DecodeObject(ctx, framed, store)
	if err != nil {
		return 0, err
	}
	if obj.GitHash() != h {
		return 0, nerrors.Mark(nerrors.Newf("NIPObject at %s claims git hash %s, index says %s", objCID, obj.GitHash(), h), nerrors.ErrHashMismatch)
	}

	written := 0
	for _, edge := range obj.Edges() {
		n, err := fetchClosure(ctx, gs, store, idx, edge, seen)
		if err != nil {
			return written, err
		}
		written += n
	}

	rawCID, err := nip.ParseCID(obj.RawDataIPFSHash)
	if err != nil {
		return written, err
	}
	raw, err := store.Get(ctx, rawCID)
	if err != nil {
		return written, nerrors.NotFound(obj.RawDataIPFSHash.String(), err)
	}
	if err := obj.VerifyGitHash(raw); err != nil {
		return written, err
	}

	writtenHash, err := gs.WriteObject(obj.GitType(), raw)
	if err != nil {
		return written, nerrors.Wrapf(err, "writing fetched object %s", h)
	}
	if writtenHash != h {
		return written, nerrors.Mark(nerrors.Newf("wrote object as %s, expected %s", writtenHash, h), nerrors.ErrHashMismatch)
	}

	return written + 1, nil
}

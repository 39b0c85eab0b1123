package gitstore

import (
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/nipfs/nip/nerrors"
	"github.com/nipfs/nip/nip"
)

// GoGitStore implements Store against an already-open go-git repository,
// typically one opened with git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
// by the process that git invoked as a remote helper.
type GoGitStore struct {
	repo *git.Repository
}

// New wraps an open go-git repository as a Store.
func New(repo *git.Repository) *GoGitStore {
	return &GoGitStore{repo: repo}
}

func toPlumbing(h nip.GitHash) plumbing.Hash {
	return plumbing.Hash(h)
}

func fromPlumbing(h plumbing.Hash) nip.GitHash {
	return nip.GitHash(h)
}

func (s *GoGitStore) HasObject(h nip.GitHash) bool {
	return s.repo.Storer.HasEncodedObject(toPlumbing(h)) == nil
}

func (s *GoGitStore) ReadObject(h nip.GitHash) (string, []byte, error) {
	obj, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, toPlumbing(h))
	if err != nil {
		return "", nil, nerrors.Mark(nerrors.Wrapf(err, "reading git object %s", h), nerrors.ErrLocalGit)
	}
	r, err := obj.Reader()
	if err != nil {
		return "", nil, nerrors.Mark(nerrors.Wrapf(err, "opening git object %s", h), nerrors.ErrLocalGit)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", nil, nerrors.Mark(nerrors.Wrapf(err, "reading git object %s body", h), nerrors.ErrLocalGit)
	}
	return obj.Type().String(), raw, nil
}

func (s *GoGitStore) WriteObject(gitType string, raw []byte) (nip.GitHash, error) {
	t, err := plumbing.ParseObjectType(gitType)
	if err != nil {
		return nip.GitHash{}, nerrors.Mark(nerrors.Wrapf(err, "unknown git object type %q", gitType), nerrors.ErrLocalGit)
	}

	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(t)
	obj.SetSize(int64(len(raw)))

	w, err := obj.Writer()
	if err != nil {
		return nip.GitHash{}, nerrors.Mark(nerrors.Wrap(err, "opening object writer"), nerrors.ErrLocalGit)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nip.GitHash{}, nerrors.Mark(nerrors.Wrap(err, "writing object body"), nerrors.ErrLocalGit)
	}
	if err := w.Close(); err != nil {
		return nip.GitHash{}, nerrors.Mark(nerrors.Wrap(err, "closing object writer"), nerrors.ErrLocalGit)
	}

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return nip.GitHash{}, nerrors.Mark(nerrors.Wrap(err, "storing object"), nerrors.ErrLocalGit)
	}
	return fromPlumbing(hash), nil
}

func (s *GoGitStore) ListRefs() (map[string]nip.GitHash, error) {
	iter, err := s.repo.Storer.IterReferences()
	if err != nil {
		return nil, nerrors.Mark(nerrors.Wrap(err, "listing refs"), nerrors.ErrLocalGit)
	}
	out := map[string]nip.GitHash{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		if strings.HasPrefix(ref.Name().String(), "refs/") {
			out[ref.Name().String()] = fromPlumbing(ref.Hash())
		}
		return nil
	})
	if err != nil {
		return nil, nerrors.Mark(nerrors.Wrap(err, "iterating refs"), nerrors.ErrLocalGit)
	}
	return out, nil
}

func (s *GoGitStore) UpdateRef(name string, newHash nip.GitHash, expectedOld *nip.GitHash) error {
	refName := plumbing.ReferenceName(name)
	newRef := plumbing.NewHashReference(refName, toPlumbing(newHash))

	var oldRef *plumbing.Reference
	if expectedOld != nil {
		oldRef = plumbing.NewHashReference(refName, toPlumbing(*expectedOld))
	}

	if err := s.repo.Storer.CheckAndSetReference(newRef, oldRef); err != nil {
		if expectedOld != nil {
			return nerrors.RefRaceLost(name, err)
		}
		return nerrors.Mark(nerrors.Wrapf(err, "updating ref %s", name), nerrors.ErrLocalGit)
	}
	return nil
}

func (s *GoGitStore) ParseObjectEdges(gitType string, raw []byte) ([]nip.GitHash, error) {
	t, err := plumbing.ParseObjectType(gitType)
	if err != nil {
		return nil, nerrors.Mark(nerrors.Wrapf(err, "unknown git object type %q", gitType), nerrors.ErrLocalGit)
	}

	mem := &plumbing.MemoryObject{}
	mem.SetType(t)
	if _, err := mem.Write(raw); err != nil {
		return nil, nerrors.Mark(nerrors.Wrap(err, "buffering object for edge parsing"), nerrors.ErrLocalGit)
	}

	switch t {
	case plumbing.CommitObject:
		c := &object.Commit{}
		if err := c.Decode(mem); err != nil {
			return nil, nerrors.Mark(nerrors.Wrap(err, "decoding commit"), nerrors.ErrLocalGit)
		}
		edges := make([]nip.GitHash, 0, len(c.ParentHashes)+1)
		for _, p := range c.ParentHashes {
			edges = append(edges, fromPlumbing(p))
		}
		edges = append(edges, fromPlumbing(c.TreeHash))
		return edges, nil
	case plumbing.TreeObject:
		tr := &object.Tree{}
		if err := tr.Decode(mem); err != nil {
			return nil, nerrors.Mark(nerrors.Wrap(err, "decoding tree"), nerrors.ErrLocalGit)
		}
		edges := make([]nip.GitHash, 0, len(tr.Entries))
		for _, e := range tr.Entries {
			if e.Mode == filemode.Submodule {
				continue
			}
			edges = append(edges, fromPlumbing(e.Hash))
		}
		return edges, nil
	case plumbing.TagObject:
		tg := &object.Tag{}
		if err := tg.Decode(mem); err != nil {
			return nil, nerrors.Mark(nerrors.Wrap(err, "decoding tag"), nerrors.ErrLocalGit)
		}
		return []nip.GitHash{fromPlumbing(tg.Target)}, nil
	case plumbing.BlobObject:
		return nil, nil
	default:
		return nil, nerrors.Mark(nerrors.Newf("cannot parse edges of object type %q", gitType), nerrors.ErrLocalGit)
	}
}

// DecodeMetadata builds the typed nip.Metadata for a git object, the shape
// internal/sync needs when constructing a NIPObject during push (spec
// §4.5.1 step 4c "metadata = derived from type"). Unlike ParseObjectEdges,
// which spec §4.4 fixes as a flat edge list, this distinguishes commit
// parents from its tree and flags submodule (gitlink) tree entries so they
// round-trip through the submodule-tip marker.
func DecodeMetadata(gitType string, raw []byte) (nip.Metadata, error) {
	t, err := plumbing.ParseObjectType(gitType)
	if err != nil {
		return nip.Metadata{}, nerrors.Mark(nerrors.Wrapf(err, "unknown git object type %q", gitType), nerrors.ErrLocalGit)
	}

	mem := &plumbing.MemoryObject{}
	mem.SetType(t)
	if _, err := mem.Write(raw); err != nil {
		return nip.Metadata{}, nerrors.Mark(nerrors.Wrap(err, "buffering object for metadata decode"), nerrors.ErrLocalGit)
	}

	switch t {
	case plumbing.CommitObject:
		c := &object.Commit{}
		if err := c.Decode(mem); err != nil {
			return nip.Metadata{}, nerrors.Mark(nerrors.Wrap(err, "decoding commit"), nerrors.ErrLocalGit)
		}
		parents := make([]nip.GitHash, len(c.ParentHashes))
		for i, p := range c.ParentHashes {
			parents[i] = fromPlumbing(p)
		}
		return nip.CommitMetadata(parents, fromPlumbing(c.TreeHash)), nil
	case plumbing.TreeObject:
		tr := &object.Tree{}
		if err := tr.Decode(mem); err != nil {
			return nip.Metadata{}, nerrors.Mark(nerrors.Wrap(err, "decoding tree"), nerrors.ErrLocalGit)
		}
		entries := make([]nip.TreeEntry, len(tr.Entries))
		for i, e := range tr.Entries {
			entries[i] = nip.TreeEntry{Hash: fromPlumbing(e.Hash), Submodule: e.Mode == filemode.Submodule}
		}
		return nip.TreeMetadata(entries), nil
	case plumbing.TagObject:
		tg := &object.Tag{}
		if err := tg.Decode(mem); err != nil {
			return nip.Metadata{}, nerrors.Mark(nerrors.Wrap(err, "decoding tag"), nerrors.ErrLocalGit)
		}
		return nip.TagMetadata(fromPlumbing(tg.Target)), nil
	case plumbing.BlobObject:
		return nip.BlobMetadata(), nil
	default:
		return nip.Metadata{}, nerrors.Mark(nerrors.Newf("cannot decode metadata for object type %q", gitType), nerrors.ErrLocalGit)
	}
}

// SetRemoteURL rewrites remoteName's configured URL in .git/config,
// implementing helper.RemoteURLSetter. Mirrors the original
// implementation's repo.remote_set_url call after a successful push: the
// helper always leaves the remote pointed at the index it just wrote, so
// the next invocation starts from there instead of re-resolving.
func (s *GoGitStore) SetRemoteURL(remoteName, newURL string) error {
	cfg, err := s.repo.Storer.Config()
	if err != nil {
		return nerrors.Mark(nerrors.Wrap(err, "reading git config"), nerrors.ErrLocalGit)
	}
	rc, ok := cfg.Remotes[remoteName]
	if !ok {
		return nerrors.Mark(nerrors.Newf("remote %q not found in git config", remoteName), nerrors.ErrLocalGit)
	}
	rc.URLs = []string{newURL}
	if err := s.repo.Storer.SetConfig(cfg); err != nil {
		return nerrors.Mark(nerrors.Wrap(err, "writing git config"), nerrors.ErrLocalGit)
	}
	return nil
}

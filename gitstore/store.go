// Package gitstore is the local git adapter the sync engine reads and
// writes through (spec §4.4). It is a thin wrapper around go-git/v5 rather
// than a from-scratch object/pack implementation: go-git already gives us
// a correct, pure-Go storer.EncodedObjectStorer, which is exactly the
// capability set spec.md asks for.
package gitstore

import (
	"github.com/nipfs/nip/nip"
)

// Store is the abstract capability set spec §4.4 asks of a local git
// repository.
type Store interface {
	HasObject(h nip.GitHash) bool
	ReadObject(h nip.GitHash) (gitType string, raw []byte, err error)
	WriteObject(gitType string, raw []byte) (nip.GitHash, error)
	ListRefs() (map[string]nip.GitHash, error)
	// UpdateRef performs a compare-and-set ref update. expectedOld == nil
	// means "set unconditionally" (e.g. creating a ref that doesn't exist
	// yet locally). A non-nil expectedOld mismatch fails with a
	// RefRaceLost-marked error.
	UpdateRef(name string, newHash nip.GitHash, expectedOld *nip.GitHash) error
	// ParseObjectEdges yields the git hashes directly referenced by raw,
	// interpreted as gitType (parents+tree for commit, entries for tree,
	// target for tag, none for blob).
	ParseObjectEdges(gitType string, raw []byte) ([]nip.GitHash, error)
}

// Package ipfsapitest provides an in-memory ipfsapi.Store double for tests
// that exercise the sync and migration engines without a running daemon.
package ipfsapitest

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/nipfs/nip/nerrors"
)

// MemStore is a content-addressed, in-process ipfsapi.Store. CIDs are
// CIDv1 raw-codec over sha2-256, computed deterministically from content so
// Put is idempotent exactly like the real daemon.
type MemStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	names   map[string]cid.Cid // ipns name -> target, for Publish/Resolve
	reach   bool
	unreach error
}

// NewMemStore returns an empty, reachable store.
func NewMemStore() *MemStore {
	return &MemStore{
		blobs: map[string][]byte{},
		names: map[string]cid.Cid{},
		reach: true,
	}
}

// SetUnreachable makes every subsequent call fail as IpfsUnreachable, for
// exercising the fatal-daemon-down path.
func (m *MemStore) SetUnreachable(unreach bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reach = !unreach
}

// BlobCount reports how many blobs have been Put into the store, for tests
// asserting that a rejected operation wrote nothing.
func (m *MemStore) BlobCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

func computeCID(data []byte) (cid.Cid, error) {
	sum := sha256.Sum256(data)
	digest, err := mh.Encode(sum[:], mh.SHA2_256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, digest), nil
}

func (m *MemStore) Put(_ context.Context, data []byte) (cid.Cid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.reach {
		return cid.Undef, nerrors.Unreachable("mem://store", nerrors.New("store marked unreachable"))
	}
	c, err := computeCID(data)
	if err != nil {
		return cid.Undef, err
	}
	m.blobs[c.String()] = append([]byte(nil), data...)
	return c, nil
}

func (m *MemStore) Get(_ context.Context, c cid.Cid) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.reach {
		return nil, nerrors.Unreachable("mem://store", nerrors.New("store marked unreachable"))
	}
	data, ok := m.blobs[c.String()]
	if !ok {
		return nil, nerrors.NotFound(c.String(), nerrors.New("not in mem store"))
	}
	return append([]byte(nil), data...), nil
}

func (m *MemStore) Resolve(_ context.Context, path string) (cid.Cid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.reach {
		return cid.Undef, nerrors.Unreachable("mem://store", nerrors.New("store marked unreachable"))
	}
	if target, ok := m.names[path]; ok {
		return target, nil
	}
	for _, prefix := range []string{"/ipfs/", "/ipns/"} {
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			return cid.Decode(path[len(prefix):])
		}
	}
	return cid.Decode(path)
}

// Publish implements ipfsapi.Publisher.
func (m *MemStore) Publish(_ context.Context, target cid.Cid) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := "k51test"
	m.names["/ipns/"+name] = target
	return name, nil
}

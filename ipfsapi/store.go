// Package ipfsapi defines the abstract capability set the sync and
// migration engines need from IPFS (spec §4.3) and a concrete client that
// talks to a local Kubo/go-ipfs daemon's HTTP API. The daemon transport
// itself is explicitly out of this system's core scope (spec §1); only the
// semantic interface below is.
package ipfsapi

import (
	"context"

	"github.com/ipfs/go-cid"
)

// Store is the abstract IPFS capability set the engine consumes. No
// assumption of pinning, replication, or network visibility beyond the
// local daemon; the engine never interprets CID structure beyond equality.
type Store interface {
	// Put stores data and returns a stable CID. Idempotent: storing
	// identical bytes returns the same CID every time.
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	// Get retrieves the bytes behind c, failing with a NotFound-marked
	// error if absent and an IpfsUnreachable-marked error if the daemon
	// cannot be contacted.
	Get(ctx context.Context, c cid.Cid) ([]byte, error)
	// Resolve turns a "/ipfs/<cid>" or "/ipns/<name>" path into a concrete
	// CID.
	Resolve(ctx context.Context, path string) (cid.Cid, error)
}

// Publisher is an optional capability: stores that can publish a CID under
// an IPNS name implement it. internal/sync type-asserts for this rather
// than requiring it on Store, so a minimal Store (including the in-memory
// test double) need not support IPNS (spec §4.7, §9).
type Publisher interface {
	// Publish makes target resolvable at the daemon's default IPNS name,
	// returning that name.
	Publish(ctx context.Context, target cid.Cid) (string, error)
}

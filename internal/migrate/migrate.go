// Package migrate implements the version pipeline that lets decode at the
// NIPObject/NIPIndex boundary accept any historical envelope version and
// hand back the current in-memory shape (spec §4.6). Each stage is a pure
// function on the wire shape for its version; the only stage that needs a
// side channel is v1->v2 for NIPObject, which must re-fetch raw bytes from
// IPFS to compute the git hash v1 never recorded.
package migrate

import (
	"context"

	"github.com/nipfs/nip/internal/envelope"
	"github.com/nipfs/nip/ipfsapi"
	"github.com/nipfs/nip/nerrors"
	"github.com/nipfs/nip/nip"
)

// DecodeObject parses a framed NIPObject blob of any known version,
// migrating it up to the current version transparently. store is used only
// by the v1->v2 stage, which needs to re-fetch raw bytes to compute
// git_hash; pass nil if the caller already knows framed is current-version
// (migration then short-circuits and store is never dereferenced).
func DecodeObject(ctx context.Context, framed []byte, store ipfsapi.Store) (nip.NIPObject, error) {
	version, payload, err := envelope.Decode(framed)
	if err != nil {
		return nip.NIPObject{}, err
	}

	switch version {
	case 2:
		return nip.DecodeObjectV2(payload)
	case 1:
		v1, err := nip.DecodeObjectV1(payload)
		if err != nil {
			return nip.NIPObject{}, err
		}
		return migrateObjectV1ToV2(ctx, v1, store)
	default:
		return nip.NIPObject{}, nerrors.Mark(nerrors.Newf("unknown NIPObject protocol version %d", version), nerrors.ErrUnknownVersion)
	}
}

// DecodeIndex parses a framed NIPIndex blob of any known version, migrating
// it up to the current version transparently.
func DecodeIndex(framed []byte) (nip.NIPIndex, error) {
	version, payload, err := envelope.Decode(framed)
	if err != nil {
		return nip.NIPIndex{}, err
	}

	switch version {
	case 2:
		return nip.DecodeIndexV2(payload)
	case 1:
		v1, err := nip.DecodeIndexV1(payload)
		if err != nil {
			return nip.NIPIndex{}, err
		}
		return migrateIndexV1ToV2(v1), nil
	default:
		return nip.NIPIndex{}, nerrors.Mark(nerrors.Newf("unknown NIPIndex protocol version %d", version), nerrors.ErrUnknownVersion)
	}
}

// migrateObjectV1ToV2 populates the git_hash field a v1 producer never
// wrote by re-fetching the raw bytes and hashing them, exactly as
// migrate_object does in the original nipctl (original_source/src/nipctl.rs).
func migrateObjectV1ToV2(ctx context.Context, v1 nip.ObjectV1, store ipfsapi.Store) (nip.NIPObject, error) {
	if store == nil {
		return nip.NIPObject{}, nerrors.Newf("migrating a v1 NIPObject requires an ipfsapi.Store to re-fetch raw bytes")
	}
	if err := v1.RawDataIPFSHash.Validate(); err != nil {
		return nip.NIPObject{}, err
	}
	c, err := nip.ParseCID(v1.RawDataIPFSHash)
	if err != nil {
		return nip.NIPObject{}, err
	}
	raw, err := store.Get(ctx, c)
	if err != nil {
		return nip.NIPObject{}, nerrors.Wrap(err, "fetching raw bytes to migrate a v1 NIPObject")
	}

	metadata, err := v1.Metadata.ToV2()
	if err != nil {
		return nip.NIPObject{}, err
	}

	gitType := string(metadata.Kind)
	gitHash := nip.HashObject(gitType, raw)

	return nip.NewNIPObject(v1.RawDataIPFSHash, gitHash, metadata), nil
}

// migrateIndexV1ToV2 parses v1's hex-string ref targets and object keys into
// GitHash values and copies prev_idx_hash over. A ref or object whose hash
// is not valid 40-character hex is dropped without an error. No submodule
// rewriting is done here; submodule markers in tree entries are handled by
// MetadataV1.ToV2 when objects are migrated.
func migrateIndexV1ToV2(v1 nip.IndexV1) nip.NIPIndex {
	idx := nip.NIPIndex{
		Refs:    make(map[string]nip.GitHash, len(v1.Refs)),
		Objects: make(map[nip.GitHash]nip.CID, len(v1.Objects)),
	}
	for name, hexHash := range v1.Refs {
		if h, err := nip.ParseGitHash(hexHash); err == nil {
			idx.Refs[name] = h
		}
	}
	for hexHash, c := range v1.Objects {
		if h, err := nip.ParseGitHash(hexHash); err == nil {
			idx.Objects[h] = c
		}
	}
	idx.PrevIdxHash = v1.PrevIdxHash
	return idx
}

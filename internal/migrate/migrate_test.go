package migrate

import (
	"context"
	"testing"

	"github.com/nipfs/nip/internal/envelope"
	"github.com/nipfs/nip/ipfsapi/ipfsapitest"
	"github.com/nipfs/nip/nip"
)

func TestDecodeIndexPassesThroughV2(t *testing.T) {
	idx := nip.EmptyIndex()
	idx.Refs["refs/heads/master"] = mustHash(t, "blob", []byte("x"))
	payload, err := nip.EncodeIndex(idx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	framed := envelope.Encode(envelope.CurrentVersion, payload)

	got, err := DecodeIndex(framed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Refs) != 1 {
		t.Fatalf("expected one ref, got %v", got.Refs)
	}
}

func TestDecodeIndexRejectsUnknownVersion(t *testing.T) {
	framed := envelope.Encode(99, []byte{})
	if _, err := DecodeIndex(framed); err == nil {
		t.Fatalf("expected an UnknownVersion error")
	}
}

func TestDecodeIndexMigratesV1(t *testing.T) {
	blobHash := mustHash(t, "blob", []byte("hi"))
	v1 := nip.IndexV1{
		Refs:    map[string]string{"refs/heads/master": blobHash.String()},
		Objects: map[string]nip.CID{blobHash.String(): "bafytest"},
	}
	payload, err := nip.EncodeIndexV1(v1)
	if err != nil {
		t.Fatalf("encode v1: %v", err)
	}
	framed := envelope.Encode(1, payload)

	got, err := DecodeIndex(framed)
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if got.Refs["refs/heads/master"] != blobHash {
		t.Fatalf("ref did not migrate correctly: %+v", got.Refs)
	}
	if got.Objects[blobHash] != "bafytest" {
		t.Fatalf("object did not migrate correctly: %+v", got.Objects)
	}
}

func TestDecodeObjectMigratesV1AndComputesGitHash(t *testing.T) {
	store := ipfsapitest.NewMemStore()
	raw := []byte("blob content")
	rawCID, err := store.Put(context.Background(), raw)
	if err != nil {
		t.Fatalf("put raw: %v", err)
	}

	v1 := nip.ObjectV1{
		RawDataIPFSHash: nip.CID(rawCID.String()),
		Metadata:        nip.MetadataV1{Type: "blob"},
	}
	payload, err := nip.EncodeObjectV1(v1)
	if err != nil {
		t.Fatalf("encode v1: %v", err)
	}
	framed := envelope.Encode(1, payload)

	got, err := DecodeObject(context.Background(), framed, store)
	if err != nil {
		t.Fatalf("decode v1 object: %v", err)
	}
	want := nip.HashObject("blob", raw)
	if got.GitHash() != want {
		t.Fatalf("migrated git hash mismatch: got %s want %s", got.GitHash(), want)
	}
}

func TestDecodeObjectV1WithoutStoreFails(t *testing.T) {
	v1 := nip.ObjectV1{RawDataIPFSHash: "bafytest", Metadata: nip.MetadataV1{Type: "blob"}}
	payload, err := nip.EncodeObjectV1(v1)
	if err != nil {
		t.Fatalf("encode v1: %v", err)
	}
	framed := envelope.Encode(1, payload)

	if _, err := DecodeObject(context.Background(), framed, nil); err == nil {
		t.Fatalf("expected an error migrating without a store")
	}
}

func mustHash(t *testing.T, gitType string, raw []byte) nip.GitHash {
	t.Helper()
	return nip.HashObject(gitType, raw)
}

package ipfsapitest

import (
	"context"
	"testing"
)

func TestPutIsIdempotent(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	a, err := s.Put(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	b, err := s.Put(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if a != b {
		t.Fatalf("storing identical bytes returned different CIDs: %s vs %s", a, b)
	}
}

func TestGetNotFound(t *testing.T) {
	s := NewMemStore()
	c, _ := s.Put(context.Background(), []byte("x"))
	_ = c
	other, _ := computeCID([]byte("never stored"))
	if _, err := s.Get(context.Background(), other); err == nil {
		t.Fatalf("expected NotFound for an unstored CID")
	}
}

func TestUnreachable(t *testing.T) {
	s := NewMemStore()
	s.SetUnreachable(true)
	if _, err := s.Put(context.Background(), []byte("x")); err == nil {
		t.Fatalf("expected IpfsUnreachable once marked unreachable")
	}
}

package nip

import "testing"

func TestParseGitHashRoundTrip(t *testing.T) {
	h := HashObject("blob", []byte("content"))
	parsed, err := ParseGitHash(h.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != h {
		t.Fatalf("parsed hash does not match original")
	}
}

func TestParseGitHashRejectsWrongLength(t *testing.T) {
	if _, err := ParseGitHash("deadbeef"); err == nil {
		t.Fatalf("expected an error for a too-short hash")
	}
}

func TestHashObjectMatchesKnownGitBlobHash(t *testing.T) {
	// `git hash-object` on an empty file is the well-known constant below.
	h := HashObject("blob", []byte(""))
	want := "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
	if h.String() != want {
		t.Fatalf("got %s, want %s", h.String(), want)
	}
}

func TestVerifyHashFailsWithMarkedError(t *testing.T) {
	err := VerifyHash("blob", []byte("a"), GitHash{})
	if err == nil {
		t.Fatalf("expected a hash mismatch error")
	}
}

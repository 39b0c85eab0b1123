package nremote

import "testing"

func TestParseNewForms(t *testing.T) {
	r, err := Parse("new-ipfs")
	if err != nil || r.Kind != NewIPFS || !r.IsNew() {
		t.Fatalf("new-ipfs: got %+v, err=%v", r, err)
	}
	r, err = Parse("new-ipns")
	if err != nil || r.Kind != NewIPNS || !r.IsNew() || !r.IsIPNS() {
		t.Fatalf("new-ipns: got %+v, err=%v", r, err)
	}
}

func TestParseExistingForms(t *testing.T) {
	r, err := Parse("/ipfs/bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi")
	if err != nil {
		t.Fatalf("parse existing ipfs: %v", err)
	}
	if r.Kind != ExistingIPFS || r.Hash != "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi" {
		t.Fatalf("unexpected parse result: %+v", r)
	}

	r, err = Parse("/ipns/k51qzi5uqu5dgy1x4")
	if err != nil {
		t.Fatalf("parse existing ipns: %v", err)
	}
	if r.Kind != ExistingIPNS || r.Hash != "k51qzi5uqu5dgy1x4" || !r.IsIPNS() {
		t.Fatalf("unexpected parse result: %+v", r)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "bogus", "/ipfs/", "/ipns/", "ipfs/noslash"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("expected Parse(%q) to fail", s)
		}
	}
}

func TestStringAndURLRoundTrip(t *testing.T) {
	cases := []string{"new-ipfs", "new-ipns", "/ipfs/abc", "/ipns/xyz"}
	for _, s := range cases {
		r, err := Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got := r.String(); got != s {
			t.Fatalf("round trip mismatch: want %q got %q", s, got)
		}
		if got := r.URL(false); got != "nip::"+s {
			t.Fatalf("URL(false) = %q", got)
		}
		if got := r.URL(true); got != "nipdev::"+s {
			t.Fatalf("URL(true) = %q", got)
		}
	}
}

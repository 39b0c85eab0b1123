// Package nremote parses and renders the string that follows the
// "nip::"/"nipdev::" scheme prefix in a git remote URL (spec §4.7, §6),
// grounded in original_source/src/nip_remote.rs.
package nremote

import (
	"strings"

	"github.com/nipfs/nip/nerrors"
)

// Kind discriminates the four forms a nip remote can take.
type Kind int

const (
	NewIPFS Kind = iota
	NewIPNS
	ExistingIPFS
	ExistingIPNS
)

// Remote is the parsed form of a nip:: URL's remote-specific part.
type Remote struct {
	Kind Kind
	// Hash is the CID (for ExistingIPFS) or IPNS name (for ExistingIPNS).
	// Empty for NewIPFS/NewIPNS.
	Hash string
}

// Parse interprets s, the text after "nip::"/"nipdev::", as one of:
//
//	new-ipfs       -> NewIPFS
//	new-ipns       -> NewIPNS
//	/ipfs/<cid>    -> ExistingIPFS
//	/ipns/<name>   -> ExistingIPNS
func Parse(s string) (Remote, error) {
	switch s {
	case "new-ipfs":
		return Remote{Kind: NewIPFS}, nil
	case "new-ipns":
		return Remote{Kind: NewIPNS}, nil
	}

	if hash, ok := cut(s, "/ipfs/"); ok {
		if hash == "" {
			return Remote{}, nerrors.Newf("empty IPFS hash in %q", s)
		}
		return Remote{Kind: ExistingIPFS, Hash: hash}, nil
	}
	if hash, ok := cut(s, "/ipns/"); ok {
		if hash == "" {
			return Remote{}, nerrors.Newf("empty IPNS name in %q", s)
		}
		return Remote{Kind: ExistingIPNS, Hash: hash}, nil
	}

	return Remote{}, nerrors.Newf("invalid nip remote %q: expected new-ipfs, new-ipns, /ipfs/<cid> or /ipns/<name>", s)
}

func cut(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

// String renders Remote back to its bare form ("new-ipfs", "/ipfs/<cid>",
// ...), the inverse of Parse.
func (r Remote) String() string {
	switch r.Kind {
	case NewIPFS:
		return "new-ipfs"
	case NewIPNS:
		return "new-ipns"
	case ExistingIPFS:
		return "/ipfs/" + r.Hash
	case ExistingIPNS:
		return "/ipns/" + r.Hash
	default:
		return "<invalid nip remote>"
	}
}

// URL renders the full "nip::..." or "nipdev::..." form, choosing the
// scheme based on devMode.
func (r Remote) URL(devMode bool) string {
	scheme := "nip"
	if devMode {
		scheme = "nipdev"
	}
	return scheme + "::" + r.String()
}

// IsNew reports whether r designates a remote with no existing snapshot yet
// (push should start from an empty NIPIndex).
func (r Remote) IsNew() bool {
	return r.Kind == NewIPFS || r.Kind == NewIPNS
}

// IsIPNS reports whether r addresses (or will publish to) an IPNS name
// rather than a bare IPFS path.
func (r Remote) IsIPNS() bool {
	return r.Kind == NewIPNS || r.Kind == ExistingIPNS
}

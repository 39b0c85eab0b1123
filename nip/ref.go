package nip

// NIPRef is a display/listing view joining a ref name with its git hash and
// the IPFS CID of the NIPObject it currently resolves to. It exists purely
// for human/JSON output (nipctl list); the wire format stays NIPIndex's own
// Refs/Objects maps. Grounded in original_source/src/nip_ref.rs's NIPRef.
type NIPRef struct {
	Name     string  `json:"name"`
	GitHash  GitHash `json:"git_hash"`
	IPFSHash CID     `json:"ipfs_hash"`
}

// Ref builds the NIPRef view for name, or ok=false if name isn't in
// idx.Refs or its target has no owning NIPObject recorded in idx.Objects.
func (idx NIPIndex) Ref(name string) (ref NIPRef, ok bool) {
	gitHash, ok := idx.Refs[name]
	if !ok {
		return NIPRef{}, false
	}
	ipfsHash, ok := idx.Objects[gitHash]
	if !ok {
		return NIPRef{}, false
	}
	return NIPRef{Name: name, GitHash: gitHash, IPFSHash: ipfsHash}, true
}

// RefViews returns the NIPRef view of every ref in idx, in SortedRefNames
// order. Refs whose target has no entry in idx.Objects are left out.
func (idx NIPIndex) RefViews() []NIPRef {
	names := idx.SortedRefNames()
	views := make([]NIPRef, 0, len(names))
	for _, name := range names {
		if ref, ok := idx.Ref(name); ok {
			views = append(views, ref)
		}
	}
	return views
}

// Package helper implements the stdio dialogue git speaks to any
// gitremote-helpers(1) process: capabilities, list, fetch, and push, one
// line at a time, terminated by a blank line. Grounded in
// original_source/src/git_remote_nip.rs for the verb set and in the
// ProtocolHandler shape used by the git-remote-go/git-remote-ipldprime
// reference helpers for how to structure it in Go, but batches fetches and
// pushes before acting on them (spec §4.8) instead of the original's
// act-immediately loop, so internal/sync's worker pool has a whole batch to
// parallelize.
package helper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mgutz/ansi"
	"go.uber.org/zap"

	"github.com/nipfs/nip/gitstore"
	"github.com/nipfs/nip/internal/migrate"
	syncengine "github.com/nipfs/nip/internal/sync"
	"github.com/nipfs/nip/ipfsapi"
	"github.com/nipfs/nip/nerrors"
	"github.com/nipfs/nip/nip"
	"github.com/nipfs/nip/nremote"
)

// RemoteURLSetter is an optional capability: when the caller supplies one,
// a successful push rewrites the git remote's configured URL in place
// (mirroring repo.remote_set_url in the original), so later pushes build on
// the new snapshot instead of the one this process started from.
type RemoteURLSetter interface {
	SetRemoteURL(remoteName, newURL string) error
}

// Session drives one remote-helper invocation end to end: capabilities,
// list, then a single round of batched fetch/push commands, matching how
// git actually invokes a remote helper (one process per operation).
type Session struct {
	in  *bufio.Scanner
	out io.Writer
	// Err receives the colorized push report; kept separate from out so it
	// never corrupts the protocol dialogue, which git reads from stdout.
	Err io.Writer

	GitStore   gitstore.Store
	IPFSStore  ipfsapi.Store
	Remote     nremote.Remote
	RemoteName string
	DevMode    bool
	Workers    int
	URLSetter  RemoteURLSetter // optional

	Log *zap.SugaredLogger
}

// New builds a Session reading commands from in and writing protocol
// responses to out.
func New(in io.Reader, out io.Writer, errOut io.Writer, gs gitstore.Store, store ipfsapi.Store, remote nremote.Remote, remoteName string, devMode bool, log *zap.SugaredLogger) *Session {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	return &Session{
		in:         scanner,
		out:        out,
		Err:        errOut,
		GitStore:   gs,
		IPFSStore:  store,
		Remote:     remote,
		RemoteName: remoteName,
		DevMode:    devMode,
		Workers:    syncengine.DefaultWorkers,
		Log:        log,
	}
}

// Run executes the full dialogue: capabilities, list, and one batch of
// fetch/push commands.
func (s *Session) Run(ctx context.Context) error {
	if err := s.handleCapabilities(); err != nil {
		return err
	}

	baseline, baselineCID, err := s.loadBaseline(ctx)
	if err != nil {
		return err
	}

	done, err := s.handleList(baseline)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	return s.handleBatch(ctx, baseline, baselineCID)
}

func (s *Session) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func (s *Session) handleCapabilities() error {
	line, ok := s.readLine()
	if !ok {
		return nil
	}
	if line != "capabilities" {
		return nerrors.Newf("expected \"capabilities\", got %q", line)
	}
	_, err := fmt.Fprint(s.out, "fetch\npush\n\n")
	return err
}

// loadBaseline resolves and migrates the remote's current NIPIndex, or
// returns an empty one for a new-ipfs/new-ipns remote (spec §4.5.1 step 1).
func (s *Session) loadBaseline(ctx context.Context) (nip.NIPIndex, *nip.CID, error) {
	if s.Remote.IsNew() {
		return nip.EmptyIndex(), nil, nil
	}

	resolved, err := s.IPFSStore.Resolve(ctx, s.Remote.String())
	if err != nil {
		return nip.NIPIndex{}, nil, nerrors.NotFound(s.Remote.String(), err)
	}
	framed, err := s.IPFSStore.Get(ctx, resolved)
	if err != nil {
		return nip.NIPIndex{}, nil, nerrors.NotFound(s.Remote.String(), err)
	}
	idx, err := migrate.DecodeIndex(framed)
	if err != nil {
		return nip.NIPIndex{}, nil, err
	}
	cidVal := nip.CID(resolved.String())
	return idx, &cidVal, nil
}

// newRemoteAfterPush builds the Remote a successful push leaves behind: an
// IPNS remote keeps pointing at the published name, an IPFS remote advances
// to the new index CID.
func (s *Session) newRemoteAfterPush(result syncengine.PushResult) nremote.Remote {
	if s.Remote.IsIPNS() {
		return nremote.Remote{Kind: nremote.ExistingIPNS, Hash: result.PublishedName}
	}
	return nremote.Remote{Kind: nremote.ExistingIPFS, Hash: result.IndexCID.String()}
}

// handleList answers "list"/"list for-push". It also tolerates git ending
// the dialogue early with a blank line instead of a list command, the same
// way the original implementation does when the local ref doesn't exist.
func (s *Session) handleList(baseline nip.NIPIndex) (done bool, err error) {
	line, ok := s.readLine()
	if !ok || line == "" {
		return true, nil
	}
	if !strings.HasPrefix(line, "list") {
		return false, nerrors.Newf("expected a \"list\" command, got %q", line)
	}

	if s.Remote.IsNew() {
		_, err := fmt.Fprint(s.out, "\n")
		return false, err
	}

	for _, name := range baseline.SortedRefNames() {
		if _, err := fmt.Fprintf(s.out, "%s %s\n", baseline.Refs[name], name); err != nil {
			return false, err
		}
	}
	_, err = fmt.Fprint(s.out, "\n")
	return false, err
}

// handleBatch reads the repeated fetch/push lines up to the terminating
// blank line, then dispatches the whole batch to internal/sync in one call
// (spec §4.8).
func (s *Session) handleBatch(ctx context.Context, baseline nip.NIPIndex, baselineCID *nip.CID) error {
	var fetchWants []string
	var pushUpdates []syncengine.RefUpdate
	var pushDst []string
	pushErrs := map[string]error{}

	for {
		line, ok := s.readLine()
		if !ok || line == "" {
			break
		}
		switch {
		case strings.HasPrefix(line, "fetch"):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nerrors.Newf("malformed fetch line %q", line)
			}
			fetchWants = append(fetchWants, fields[2])
		case strings.HasPrefix(line, "push"):
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nerrors.Newf("malformed push line %q", line)
			}
			src, dst, forced, err := parseRefspec(fields[1])
			if err != nil {
				return err
			}
			pushDst = append(pushDst, dst)
			if src == "" {
				// A push of an empty source deletes dst, which this helper
				// does not support. Record a synthetic error
				// instead of dropping dst silently or letting it fall
				// through as an unchanged "ok" in runPush.
				pushErrs[dst] = nerrors.Newf("ref deletion is not supported")
				continue
			}
			newHash, err := s.resolveLocalRef(src)
			if err != nil {
				return err
			}
			pushUpdates = append(pushUpdates, syncengine.RefUpdate{RefName: dst, NewHash: newHash, Forced: forced})
		default:
			return nerrors.Newf("unexpected command %q during fetch/push batch", line)
		}
	}

	if len(fetchWants) > 0 {
		if err := s.runFetch(ctx, fetchWants); err != nil {
			return err
		}
	}
	if len(pushDst) > 0 {
		if err := s.runPush(ctx, baseline, baselineCID, pushUpdates, pushDst, pushErrs); err != nil {
			return err
		}
	}

	_, err := fmt.Fprint(s.out, "\n")
	return err
}

func (s *Session) runFetch(ctx context.Context, wants []string) error {
	result, err := syncengine.Fetch(ctx, s.GitStore, s.IPFSStore, s.Remote.String(), wants)
	if err != nil {
		return err
	}
	if s.Log != nil {
		s.Log.Debugf("fetch: materialized %d objects", result.ObjectsWritten)
	}
	return nil
}

// runPush drives a push batch. preErrs holds refspecs already rejected
// during parsing (e.g. ref-deletion requests) that never reach Push at all;
// updates is empty when every refspec in the batch was rejected that way,
// in which case Push is skipped entirely instead of writing out an
// unchanged index and chaining it onto prev_idx_hash for no reason.
func (s *Session) runPush(ctx context.Context, baseline nip.NIPIndex, baselineCID *nip.CID, updates []syncengine.RefUpdate, allDst []string, preErrs map[string]error) error {
	var result syncengine.PushResult
	if len(updates) > 0 {
		var err error
		result, err = syncengine.Push(ctx, s.GitStore, s.IPFSStore, s.Remote, baseline, baselineCID, updates, s.Workers)
		if err != nil {
			return err
		}
	}

	succeeded := 0
	for _, dst := range allDst {
		if preErr, rejected := preErrs[dst]; rejected {
			if _, err := fmt.Fprintf(s.out, "error %s %s\n", dst, preErr.Error()); err != nil {
				return err
			}
			continue
		}
		if refErr, failed := result.RefErrors[dst]; failed {
			if _, err := fmt.Fprintf(s.out, "error %s %s\n", dst, refErr.Error()); err != nil {
				return err
			}
			continue
		}
		succeeded++
		if _, err := fmt.Fprintf(s.out, "ok %s\n", dst); err != nil {
			return err
		}
	}

	if succeeded > 0 {
		s.reportPush(baselineCID, result)
		newRemote := s.newRemoteAfterPush(result)
		newURL := newRemote.URL(s.DevMode)
		if s.URLSetter != nil {
			if err := s.URLSetter.SetRemoteURL(s.RemoteName, newURL); err != nil && s.Log != nil {
				s.Log.Warnf("could not update remote URL to %s: %v", newURL, err)
			}
		}
	}
	return nil
}

func (s *Session) resolveLocalRef(ref string) (nip.GitHash, error) {
	refs, err := s.GitStore.ListRefs()
	if err != nil {
		return nip.GitHash{}, err
	}
	h, ok := refs[ref]
	if !ok {
		return nip.GitHash{}, nerrors.Newf("local ref %q not found", ref)
	}
	return h, nil
}

func (s *Session) reportPush(oldCID *nip.CID, result syncengine.PushResult) {
	if s.Err == nil {
		return
	}
	oldStr := "new-ipfs"
	if oldCID != nil {
		oldStr = oldCID.String()
	}
	newStr := result.IndexCID.String()
	if result.PublishedName != "" {
		newStr = result.PublishedName
	}
	fmt.Fprintf(s.Err, "%s %s %s %s %s\n",
		ansi.Color("nip push:", "cyan+b"),
		ansi.Color(oldStr, "yellow"),
		ansi.Color("->", "reset"),
		ansi.Color(newStr, "green+b"),
		ansi.Color(fmt.Sprintf("(%d objects)", len(result.Index.Objects)), "black+h"))
}

func parseRefspec(spec string) (src, dst string, forced bool, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return "", "", false, nerrors.Newf("malformed refspec %q", spec)
	}
	src, dst = parts[0], parts[1]
	if strings.HasPrefix(src, "+") {
		forced = true
		src = src[1:]
	}
	return src, dst, forced, nil
}

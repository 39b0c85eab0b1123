// Command nipctl is the repo administration utility for nip: it inspects,
// and optionally walks back through, a NIPIndex/NIPObject chain without
// going through git at all. Grounded in original_source/src/nipctl.rs for
// the subcommand shape and connectivity precheck, built with
// github.com/spf13/cobra following the teacher's cmd/got/main.go
// composition root.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nipfs/nip/internal/app"
	"github.com/nipfs/nip/internal/migrate"
	"github.com/nipfs/nip/ipfsapi"
	"github.com/nipfs/nip/nip"
	"github.com/nipfs/nip/nremote"
)

func main() {
	root := &cobra.Command{
		Use:   "nipctl",
		Short: "The repo administration utility for nip",
	}
	root.AddCommand(newListCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newListCmd() *cobra.Command {
	var rollback int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <nip-or-ipfs-or-ipns-ref>",
		Short: "Print a nip IPFS/IPNS link of any type human-readably",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args[0], rollback, asJSON)
		},
	}
	cmd.Flags().IntVarP(&rollback, "rollback", "r", 0, "walk prev_idx_hash back at most N steps")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print the structure as JSON")
	return cmd
}

func runList(cmd *cobra.Command, ref string, rollback int, asJSON bool) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	ipfs := app.BuildIPFS(cfg)
	ctx := context.Background()

	if err := ipfs.Ping(ctx); err != nil {
		return fmt.Errorf("could not connect to IPFS, are you sure `ipfs daemon` is running? %w", err)
	}

	remote, err := nremote.Parse(strings.TrimPrefix(strings.TrimPrefix(ref, "nipdev::"), "nip::"))
	if err != nil {
		return fmt.Errorf("parsing %q: %w", ref, err)
	}
	if remote.IsNew() {
		return fmt.Errorf("%q has no existing snapshot to list", ref)
	}

	resolved, err := ipfs.Resolve(ctx, remote.String())
	if err != nil {
		return fmt.Errorf("resolving %s: %w", remote.String(), err)
	}
	framed, err := ipfs.Get(ctx, resolved)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", resolved, err)
	}

	idx, idxErr := migrate.DecodeIndex(framed)
	if idxErr == nil {
		return listIndex(cmd, ctx, ipfs, idx, rollback, asJSON)
	}

	obj, objErr := migrate.DecodeObject(ctx, framed, ipfs)
	if objErr != nil {
		return fmt.Errorf("could not read %s as an index (%v) or an object (%w)", resolved, idxErr, objErr)
	}
	return printValue(cmd, obj, asJSON)
}

// listIndex prints idx's refs as NIPRef views (name, git hash, owning
// NIPObject's IPFS hash) rather than dumping the raw Refs/Objects maps, the
// same join the original's NIPRef performs for display.
func listIndex(cmd *cobra.Command, ctx context.Context, ipfs *ipfsapi.HTTPClient, idx nip.NIPIndex, rollback int, asJSON bool) error {
	if rollback <= 0 {
		return printValue(cmd, idx.RefViews(), asJSON)
	}

	chain := []nip.NIPIndex{idx}
	current := idx
	steps := 0
	for steps < rollback && current.PrevIdxHash != nil {
		prevCID := *current.PrevIdxHash
		c, err := nip.ParseCID(prevCID)
		if err != nil {
			return fmt.Errorf("parsing prev_idx_hash %s: %w", prevCID, err)
		}
		framed, err := ipfs.Get(ctx, c)
		if err != nil {
			return fmt.Errorf("fetching previous index %s: %w", prevCID, err)
		}
		prev, err := migrate.DecodeIndex(framed)
		if err != nil {
			return fmt.Errorf("decoding previous index %s: %w", prevCID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "--- rollback step %d: %s ---\n", steps+1, prevCID)
		chain = append(chain, prev)
		current = prev
		steps++
	}
	if steps < rollback {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: only %d rollback(s) were possible (%d requested); the index chain ends there\n", steps, rollback)
	}

	refChain := make([][]nip.NIPRef, len(chain))
	for i, step := range chain {
		refChain[i] = step.RefViews()
	}
	if asJSON {
		return printValue(cmd, refChain, true)
	}
	for i, refs := range refChain {
		fmt.Fprintf(cmd.OutOrStdout(), "=== step %d ===\n", i)
		if err := printValue(cmd, refs, false); err != nil {
			return err
		}
	}
	return nil
}

func printValue(cmd *cobra.Command, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	return nil
}

// Command git-remote-nip is the "nip::" git remote helper: git invokes it
// automatically whenever a remote URL starts with "nip::", piping the
// gitremote-helpers(1) dialogue over stdin/stdout. Grounded in the
// teacher's cmd/got/main.go composition root, generalized from a cobra CLI
// entrypoint to a protocol-driven one.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nipfs/nip/helper"
	"github.com/nipfs/nip/internal/app"
	"github.com/nipfs/nip/nremote"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := app.BuildLogger()
	defer log.Sync()

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: git-remote-nip <remote-name> <remote-url>")
		return 1
	}
	remoteName, remoteURL := os.Args[1], os.Args[2]

	remote, err := nremote.Parse(stripScheme(remoteURL))
	if err != nil {
		log.Errorf("parsing remote URL %q: %v", remoteURL, err)
		return 1
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Errorf("loading config: %v", err)
		return 1
	}

	gitStore, err := app.OpenGitRepo()
	if err != nil {
		log.Errorf("opening local git repository: %v", err)
		return 1
	}

	ipfs := app.BuildIPFS(cfg)

	session := helper.New(os.Stdin, os.Stdout, os.Stderr, gitStore, ipfs, remote, remoteName, false, log)
	session.URLSetter = gitStore

	if err := session.Run(context.Background()); err != nil {
		log.Errorf("%v", err)
		return 1
	}
	return 0
}

func stripScheme(url string) string {
	for _, prefix := range []string{"nipdev::", "nip::"} {
		if len(url) > len(prefix) && url[:len(prefix)] == prefix {
			return url[len(prefix):]
		}
	}
	return url
}

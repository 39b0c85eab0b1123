// Command git-remote-nipdev is the "nipdev::" variant of git-remote-nip,
// used against a local test IPFS daemon without touching the "nip::"
// production scheme. The two binaries share every line of logic except the
// devMode flag passed to helper.Session and nremote.Remote.URL.
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
		fmt.Fprintln(os.Stderr, "usage: git-remote-nipdev <remote-name> <remote-url>")
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

	session := helper.New(os.Stdin, os.Stdout, os.Stderr, gitStore, ipfs, remote, remoteName, true, log)
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

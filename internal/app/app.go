// Package app holds the wiring shared by every nip binary: load config,
// open the local git repository, build an IPFS store adapter, and stand up
// a logger, grounded in the teacher's cmd/got/main.go composition root.
// Where git_bridge.go shells out to the system git binary to find the
// repo, OpenGitRepo goes through go-git directly instead, matching the
// rest of the local git adapter.
package app

import (
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/nipfs/nip/gitstore"
	"github.com/nipfs/nip/internal/config"
	"github.com/nipfs/nip/internal/nlog"
	"github.com/nipfs/nip/ipfsapi"
)

// OpenGitRepo opens the git repository at the process's current working
// directory, the same assumption git makes when it invokes a remote
// helper: cwd is always inside the repo doing the fetch/push.
func OpenGitRepo() (*gitstore.GoGitStore, error) {
	repo, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	return gitstore.New(repo), nil
}

// LoadConfig loads config.toml from config.DefaultPath(), falling back to
// config.Default() when absent.
func LoadConfig() (config.Config, error) {
	return config.Load(config.DefaultPath())
}

// BuildIPFS constructs the HTTP store adapter from cfg.
func BuildIPFS(cfg config.Config) *ipfsapi.HTTPClient {
	timeout := time.Duration(cfg.IPFS.TimeoutSeconds) * time.Second
	return ipfsapi.NewHTTPClient(cfg.IPFS.APIAddress, timeout)
}

// BuildLogger builds the shared logger, honoring NIP_LOG for its level.
func BuildLogger() *zap.SugaredLogger {
	level := nlog.ParseLevel(os.Getenv("NIP_LOG"))
	return nlog.New(level)
}

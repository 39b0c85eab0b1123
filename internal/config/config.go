// Package config loads the TOML configuration file that points both
// git-remote-nip and nipctl at a Kubo/go-ipfs daemon, grounded in
// olimci-tohru's pkg/manifest/load.go (BurntSushi/toml decode-from-path
// pattern) and the teacher's own `.got/config` convention of an
// env-override-first lookup (here: NIP_IPFS_API, NIP_PROTOCOL_VERSION).
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/nipfs/nip/nerrors"
)

// Config is the decoded shape of config.toml.
type Config struct {
	IPFS     IPFSConfig     `toml:"ipfs"`
	Protocol ProtocolConfig `toml:"protocol"`
}

// IPFSConfig configures how the store adapter reaches the local daemon.
type IPFSConfig struct {
	APIAddress     string `toml:"api_address"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ProtocolConfig pins the envelope version this build writes.
type ProtocolConfig struct {
	Version uint16 `toml:"version"`
}

// Default returns the configuration used when no file is present and no
// environment overrides apply.
func Default() Config {
	return Config{
		IPFS: IPFSConfig{
			APIAddress:     "127.0.0.1:5001",
			TimeoutSeconds: 30,
		},
		Protocol: ProtocolConfig{
			Version: 2,
		},
	}
}

// Load reads config.toml from path if it exists, falling back to Default(),
// then applies NIP_IPFS_API and NIP_PROTOCOL_VERSION environment overrides.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, nerrors.Wrapf(err, "decoding config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, nerrors.Wrapf(err, "stat config file %s", path)
		}
	}

	if v := os.Getenv("NIP_IPFS_API"); v != "" {
		cfg.IPFS.APIAddress = v
	}
	if v := os.Getenv("NIP_PROTOCOL_VERSION"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return Config{}, nerrors.Wrapf(err, "parsing NIP_PROTOCOL_VERSION=%q", v)
		}
		cfg.Protocol.Version = uint16(parsed)
	}

	return cfg, nil
}

// DefaultPath returns $NIP_CONFIG if set, otherwise
// ~/.config/nip/config.toml.
func DefaultPath() string {
	if v := os.Getenv("NIP_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nip", "config.toml")
}

// Package config loads the declarative landing-zone configuration the
// legacy inventory is reconciled against.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/asea-lza/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	AccountsFile = "accounts-config.yaml"
	GlobalFile   = "global-config.yaml"
	IamFile      = "iam-config.yaml"
	NetworkFile  = "network-config.yaml"
)

// Config is the whole configuration model. It is read-only once loaded.
type Config struct {
	Dir      string
	Accounts *AccountsConfig
	Global   *GlobalConfig
	Iam      *IamConfig
	Network  *NetworkConfig
}

// Load reads the configuration files of dir. The accounts and global files
// are required; a missing IAM or network file is treated as empty.
func Load(dir string) (*Config, error) {
	cfg := &Config{
		Dir:      dir,
		Accounts: &AccountsConfig{},
		Global:   &GlobalConfig{},
		Iam:      &IamConfig{},
		Network:  &NetworkConfig{},
	}

	if err := readYAML(filepath.Join(dir, AccountsFile), cfg.Accounts, true); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, GlobalFile), cfg.Global, true); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, IamFile), cfg.Iam, false); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, NetworkFile), cfg.Network, false); err != nil {
		return nil, err
	}

	if err := cfg.Iam.loadPolicyDocuments(dir); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readYAML(path string, out any, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			slog.Debug("optional configuration file not found", "path", path)
			return nil
		}
		return &types.LoadError{Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return &types.LoadError{Path: path, Err: err}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Global.HomeRegion == "" {
		return &types.LoadError{Path: filepath.Join(c.Dir, GlobalFile), Err: errors.New("homeRegion is required")}
	}
	seen := make(map[string]bool)
	for _, a := range c.Accounts.All() {
		if a.Name == "" {
			return &types.LoadError{Path: filepath.Join(c.Dir, AccountsFile), Err: fmt.Errorf("account with email %q has no name", a.Email)}
		}
		if seen[a.Name] {
			return &types.LoadError{Path: filepath.Join(c.Dir, AccountsFile), Err: fmt.Errorf("duplicate account name %q", a.Name)}
		}
		seen[a.Name] = true
	}
	return nil
}

// Includes evaluates deployment targets for an account id and region.
func (c *Config) Includes(targets DeploymentTargets, accountID, region string) bool {
	name, ok := c.Accounts.AccountName(accountID)
	if !ok {
		return false
	}
	return targets.Includes(c.Accounts, name, region)
}

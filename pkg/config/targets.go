package config

import (
	"slices"
	"strings"
)

const RootOU = "Root"

// DeploymentTargets scopes a configuration item to accounts and
// organizational units.
type DeploymentTargets struct {
	Accounts            []string `yaml:"accounts,omitempty"`
	OrganizationalUnits []string `yaml:"organizationalUnits,omitempty"`
	ExcludedAccounts    []string `yaml:"excludedAccounts,omitempty"`
	ExcludedRegions     []string `yaml:"excludedRegions,omitempty"`
}

// Includes evaluates the targets for an account and region. An explicit
// deny wins over an explicit allow; anything not allowed is denied.
func (d DeploymentTargets) Includes(accounts *AccountsConfig, accountName, region string) bool {
	if slices.Contains(d.ExcludedAccounts, accountName) || slices.Contains(d.ExcludedRegions, region) {
		return false
	}
	if slices.Contains(d.Accounts, accountName) {
		return true
	}
	ou := accounts.OrganizationalUnit(accountName)
	for _, target := range d.OrganizationalUnits {
		if ouMatches(target, ou) {
			return true
		}
	}
	return false
}

// ouMatches reports whether ou is target or nested below it.
func ouMatches(target, ou string) bool {
	if target == RootOU {
		return true
	}
	if ou == "" {
		return false
	}
	return ou == target || strings.HasPrefix(ou, target+"/")
}

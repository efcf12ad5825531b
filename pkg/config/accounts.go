package config

import (
	"slices"
	"strings"

	"github.com/praetorian-inc/asea-lza/pkg/types"
)

type AccountConfig struct {
	Name               string `yaml:"name"`
	Description        string `yaml:"description,omitempty"`
	Email              string `yaml:"email"`
	OrganizationalUnit string `yaml:"organizationalUnit"`
}

type AccountIDConfig struct {
	Email     string `yaml:"email"`
	AccountID string `yaml:"accountId"`
}

type AccountsConfig struct {
	MandatoryAccounts []AccountConfig   `yaml:"mandatoryAccounts"`
	WorkloadAccounts  []AccountConfig   `yaml:"workloadAccounts"`
	AccountIDs        []AccountIDConfig `yaml:"accountIds"`
}

// All returns mandatory accounts followed by workload accounts.
func (a *AccountsConfig) All() []AccountConfig {
	out := make([]AccountConfig, 0, len(a.MandatoryAccounts)+len(a.WorkloadAccounts))
	out = append(out, a.MandatoryAccounts...)
	return append(out, a.WorkloadAccounts...)
}

func (a *AccountsConfig) Account(name string) (AccountConfig, bool) {
	for _, acct := range a.All() {
		if acct.Name == name {
			return acct, true
		}
	}
	return AccountConfig{}, false
}

func (a *AccountsConfig) idForEmail(email string) (string, bool) {
	for _, id := range a.AccountIDs {
		if strings.EqualFold(id.Email, email) {
			return id.AccountID, id.AccountID != ""
		}
	}
	return "", false
}

// AccountID resolves a configured account name. A name with no id is a
// configuration inconsistency.
func (a *AccountsConfig) AccountID(name string) (string, error) {
	acct, ok := a.Account(name)
	if !ok {
		return "", types.NewConfigurationInconsistency(name, "account is not defined in %s", AccountsFile)
	}
	id, ok := a.idForEmail(acct.Email)
	if !ok {
		return "", types.NewConfigurationInconsistency(name, "no account id for email %s", acct.Email)
	}
	return id, nil
}

// AccountName is the reverse of AccountID.
func (a *AccountsConfig) AccountName(accountID string) (string, bool) {
	for _, id := range a.AccountIDs {
		if id.AccountID != accountID {
			continue
		}
		for _, acct := range a.All() {
			if strings.EqualFold(acct.Email, id.Email) {
				return acct.Name, true
			}
		}
	}
	return "", false
}

// OrganizationalUnit returns the OU path of an account.
func (a *AccountsConfig) OrganizationalUnit(name string) string {
	acct, _ := a.Account(name)
	return acct.OrganizationalUnit
}

// MergeAccountIDs adds ids discovered elsewhere, keyed by email. Configured
// ids win.
func (a *AccountsConfig) MergeAccountIDs(byEmail map[string]string) int {
	added := 0
	for email, id := range byEmail {
		if _, ok := a.idForEmail(email); ok {
			continue
		}
		i := slices.IndexFunc(a.AccountIDs, func(c AccountIDConfig) bool { return strings.EqualFold(c.Email, email) })
		if i >= 0 {
			a.AccountIDs[i].AccountID = id
		} else {
			a.AccountIDs = append(a.AccountIDs, AccountIDConfig{Email: email, AccountID: id})
		}
		added++
	}
	return added
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/praetorian-inc/asea-lza/pkg/utils"
)

// PolicyConfig is a customer managed policy. Policy is the path of its JSON
// document relative to the configuration directory.
type PolicyConfig struct {
	Name   string `yaml:"name"`
	Policy string `yaml:"policy"`

	Document *types.Policy  `yaml:"-"`
	Raw      map[string]any `yaml:"-"`
}

type PolicySetConfig struct {
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
	Policies          []*PolicyConfig   `yaml:"policies"`
}

type PoliciesConfig struct {
	AwsManaged      []string `yaml:"awsManaged,omitempty"`
	CustomerManaged []string `yaml:"customerManaged,omitempty"`
}

// Principal kinds of an assumedBy entry.
const (
	PrincipalService = "service"
	PrincipalAccount = "account"
	PrincipalArn     = "principalArn"
)

type AssumedByConfig struct {
	Type      string `yaml:"type"`
	Principal string `yaml:"principal"`
}

type RoleConfig struct {
	Name            string            `yaml:"name"`
	InstanceProfile bool              `yaml:"instanceProfile"`
	AssumedBy       []AssumedByConfig `yaml:"assumedBy"`
	ExternalIDs     []string          `yaml:"externalIds,omitempty"`
	Policies        *PoliciesConfig   `yaml:"policies,omitempty"`
	BoundaryPolicy  string            `yaml:"boundaryPolicy,omitempty"`
}

type RoleSetConfig struct {
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
	Path              string            `yaml:"path,omitempty"`
	Roles             []*RoleConfig     `yaml:"roles"`
}

type GroupConfig struct {
	Name     string          `yaml:"name"`
	Policies *PoliciesConfig `yaml:"policies,omitempty"`
}

type GroupSetConfig struct {
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
	Groups            []*GroupConfig    `yaml:"groups"`
}

type UserConfig struct {
	Username             string `yaml:"username"`
	Group                string `yaml:"group"`
	BoundaryPolicy       string `yaml:"boundaryPolicy,omitempty"`
	DisableConsoleAccess bool   `yaml:"disableConsoleAccess,omitempty"`
}

type UserSetConfig struct {
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
	Users             []*UserConfig     `yaml:"users"`
}

type IamConfig struct {
	PolicySets []*PolicySetConfig `yaml:"policySets,omitempty"`
	RoleSets   []*RoleSetConfig   `yaml:"roleSets,omitempty"`
	GroupSets  []*GroupSetConfig  `yaml:"groupSets,omitempty"`
	UserSets   []*UserSetConfig   `yaml:"userSets,omitempty"`
}

func (c *IamConfig) loadPolicyDocuments(dir string) error {
	for _, set := range c.PolicySets {
		for _, p := range set.Policies {
			if p.Policy == "" {
				return &types.LoadError{Path: IamFile, Err: fmt.Errorf("policy %q has no document", p.Name)}
			}
			path := utils.ResolvePath(dir, p.Policy)
			data, err := os.ReadFile(path)
			if err != nil {
				return &types.LoadError{Path: path, Err: err}
			}
			doc, err := types.NewPolicyFromJSON(data)
			if err != nil {
				return &types.LoadError{Path: path, Err: err}
			}
			// the template keeps the document as written
			var raw map[string]any
			if err := json.Unmarshal(data, &raw); err != nil {
				return &types.LoadError{Path: path, Err: err}
			}
			p.Document = doc
			p.Raw = raw
		}
	}
	return nil
}

package reconcilers

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/praetorian-inc/asea-lza/pkg/utils"
)

// localRef remembers an adopted record so later reconcilers of the same
// stack can point at it.
type localRef struct {
	scope     string
	logicalID string
	physical  string
}

// from returns a Ref when the caller is in the same template, else the
// physical id.
func (l localRef) from(scopeKey string) any {
	if l.scope == scopeKey {
		return types.NewRef(l.logicalID)
	}
	return l.physical
}

// att is from for a GetAtt of attribute.
func (l localRef) att(scopeKey, attribute string) any {
	if l.scope == scopeKey {
		return types.NewGetAtt(l.logicalID, attribute)
	}
	return l.physical
}

func newLocalRef(store *inventory.Store, r *types.Record) localRef {
	return localRef{scope: store.Key(), logicalID: r.LogicalResourceID, physical: r.Identifier()}
}

// policyArn resolves a managed policy name, in order: a customer policy
// adopted in this stack, the SSM lookup table, the AWS managed policy ARN.
func (rc *Context) policyArn(scopeKey, name string) any {
	if ref, ok := rc.customerPolicies[name]; ok {
		return ref.from(scopeKey)
	}
	if v, ok := rc.PolicyArns[name]; ok {
		return v
	}
	return fmt.Sprintf("arn:%s:iam::aws:policy/%s", rc.Partition, name)
}

func (rc *Context) policyArns(scopeKey string, policies *config.PoliciesConfig) []any {
	if policies == nil {
		return nil
	}
	out := make([]any, 0, len(policies.AwsManaged)+len(policies.CustomerManaged))
	for _, name := range policies.AwsManaged {
		out = append(out, fmt.Sprintf("arn:%s:iam::aws:policy/%s", rc.Partition, name))
	}
	for _, name := range policies.CustomerManaged {
		out = append(out, rc.policyArn(scopeKey, name))
	}
	return out
}

func isAccountID(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// accountPrincipal turns an account principal into a root ARN. It accepts a
// 12 digit id, an ARN, or a configured account name.
func (rc *Context) accountPrincipal(principal string) (string, error) {
	if isAccountID(principal) {
		return rc.rootArn(principal), nil
	}
	if arn.IsARN(principal) {
		parsed, err := arn.Parse(principal)
		if err != nil {
			return "", types.NewConfigurationInconsistency(principal, "invalid principal arn: %v", err)
		}
		if parsed.Service != "iam" || parsed.Resource != "root" || !isAccountID(parsed.AccountID) {
			return "", types.NewConfigurationInconsistency(principal, "account principal must be an iam root arn")
		}
		return principal, nil
	}
	id, err := rc.Config.Accounts.AccountID(principal)
	if err != nil {
		return "", err
	}
	return rc.rootArn(id), nil
}

func (rc *Context) rootArn(accountID string) string {
	return arn.ARN{Partition: rc.Partition, Service: "iam", AccountID: accountID, Resource: "root"}.String()
}

// assumeRolePolicy builds the trust policy document of a role.
func (rc *Context) assumeRolePolicy(role *config.RoleConfig) (map[string]any, error) {
	principal := &types.Principal{}
	add := func(list **types.DynaString, v string) {
		if *list == nil {
			*list = &types.DynaString{}
		}
		(*list).Add(v)
	}
	for _, by := range role.AssumedBy {
		switch by.Type {
		case config.PrincipalService:
			add(&principal.Service, by.Principal)
		case config.PrincipalArn:
			add(&principal.AWS, by.Principal)
		case config.PrincipalAccount:
			p, err := rc.accountPrincipal(by.Principal)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", role.Name, err)
			}
			add(&principal.AWS, p)
		default:
			return nil, types.NewConfigurationInconsistency(role.Name, "unknown assumedBy type %q", by.Type)
		}
	}
	if principal.Empty() {
		return nil, types.NewConfigurationInconsistency(role.Name, "role has no principal")
	}
	return types.AssumeRolePolicy(principal, role.ExternalIDs).Document()
}

// findVpc locates a configured VPC in the stack or its nested stacks.
func (rc *Context) findVpc(vpcName string) (*inventory.Store, *types.Record) {
	for _, s := range rc.Stores() {
		if r := matcher.NameTag(s, types.CfnVpc, vpcName); r != nil {
			return s, r
		}
	}
	return nil, nil
}

// parentOf returns the store owning child as a nested stack, and the
// logical id of the nested stack resource.
func (rc *Context) parentOf(child *inventory.Store) (*inventory.Store, string) {
	for _, s := range rc.Stores() {
		for _, id := range s.Stack().NestedKeys() {
			if n, ok := s.Nested(id); ok && n == child {
				return s, id
			}
		}
	}
	return nil, ""
}

// valueID resolves a template value to a physical id: a literal is
// returned as is, a Ref or GetAtt through the record it points at.
func valueID(store *inventory.Store, v any) (string, bool) {
	if s, ok := types.Literal(v); ok {
		return s, true
	}
	id, ok := types.Ref(v)
	if !ok {
		id, _, ok = types.GetAtt(v)
	}
	if !ok {
		return "", false
	}
	r, found := store.ByLogicalIDAll(id)
	if !found {
		return "", false
	}
	return r.Identifier(), true
}

// refOrID points at target from a record of from: a Ref inside one
// template, the physical id across templates.
func refOrID(from, targetStore *inventory.Store, target *types.Record) any {
	if from.Key() == targetStore.Key() {
		return types.NewRef(target.LogicalResourceID)
	}
	return target.Identifier()
}

// inVpc keeps records whose VpcId points at vpc.
func inVpc(store *inventory.Store, records []*types.Record, vpc *types.Record) []*types.Record {
	var out []*types.Record
	for _, r := range records {
		v, ok := r.Property("VpcId")
		if !ok {
			continue
		}
		if types.RefersTo(v, vpc.LogicalResourceID) {
			out = append(out, r)
			continue
		}
		if id, ok := types.Literal(v); ok && id == vpc.Identifier() {
			out = append(out, r)
		}
	}
	return out
}

// subnetAliases lists the Name tags ASEA may have given a subnet.
func subnetAliases(vpcName, subnetName string) []string {
	return []string{subnetName + "_" + utils.TrimVpcSuffix(vpcName)}
}

func (rc *Context) subnet(store *inventory.Store, vpcName, subnetName string) *types.Record {
	return matcher.NameTag(store, types.CfnSubnet, subnetName, subnetAliases(vpcName, subnetName)...)
}

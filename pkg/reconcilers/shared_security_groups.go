package reconcilers

import (
	"context"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/praetorian-inc/asea-lza/pkg/utils"
)

// SharedSecurityGroups handles the copies ASEA makes of a shared VPC's
// security groups in every account the VPC's subnets are shared with. The
// copies live in nested stacks without a VPC of their own and name their
// owner VPC only in the group description.
type SharedSecurityGroups struct{}

func (r *SharedSecurityGroups) Metadata() Metadata {
	return Metadata{
		Name:          "shared-security-groups",
		Description:   "Adopt security groups copied into accounts a VPC is shared with",
		Category:      CategorySecurity,
		Phases:        peeringPhases,
		ResourceTypes: []string{types.CfnSecurityGroup, types.CfnSecurityGroupIngress, types.CfnSecurityGroupEgress},
	}
}

// candidates are the nested stores that hold shared copies.
func (r *SharedSecurityGroups) candidates(rc *Context) []*inventory.Store {
	var out []*inventory.Store
	for _, s := range rc.Stores()[1:] {
		if len(s.ByTypeAll(types.CfnVpc)) == 0 && len(s.ByTypeAll(types.CfnSecurityGroup)) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (r *SharedSecurityGroups) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	stores := r.candidates(rc)
	if len(stores) == 0 {
		return nil
	}

	adopted := make(map[string]bool)
	owners := make(map[string]string)
	for _, vpc := range rc.Config.Network.AllVpcs() {
		if vpc.Region != rc.Stack.Region || vpc.Account == rc.AccountName || vpc.IsTemplate() {
			continue
		}
		if !vpc.SharedWith(rc.Config.Accounts, rc.AccountName, rc.Stack.Region) {
			continue
		}
		owners[utils.TrimVpcSuffix(vpc.Name)] = vpc.Name

		for _, sg := range vpc.SecurityGroups {
			store, rec := matcher.SharedSecurityGroup(stores, vpc.Name, sg.Name)
			if rec == nil {
				if err := rc.Missing(SiteNoLegacyResource, sg.Name, absent("shared security group "+sg.Name), "vpc", vpc.Name); err != nil {
					return err
				}
				continue
			}
			adopted[store.Key()+"#"+rec.LogicalResourceID] = true
			rc.Adopt(store, rec, types.AseaSecurityGroup)
			rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "GroupId"), params.SecurityGroup, vpc.Name, sg.Name)
		}
	}

	for _, store := range stores {
		for _, rec := range store.ByType(types.CfnSecurityGroup) {
			if adopted[store.Key()+"#"+rec.LogicalResourceID] {
				continue
			}
			rules := []cascade.Rule{cascade.SecurityGroupRules()}
			if vpcName, ok := sharedOwner(rec, owners); ok {
				rules = append(rules, cascade.DerivedParameter(rc.Paths.Path(params.SecurityGroup, vpcName, matcher.SecurityGroupName(rec))))
			}
			if err := rc.Delete(store, rec.LogicalResourceID, rules...); err != nil {
				return err
			}
		}
	}
	return nil
}

// sharedOwner returns the owner VPC named by a token of the group's
// description. owners maps tokens to VPC names.
func sharedOwner(rec *types.Record, owners map[string]string) (string, bool) {
	for _, token := range matcher.DescriptionTokens(matcher.SecurityGroupDescription(rec)) {
		if vpcName, ok := owners[token]; ok {
			return vpcName, true
		}
	}
	return "", false
}

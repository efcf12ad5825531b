package reconcilers

import (
	"context"
	"slices"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/template"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

var iamPhases = []types.Phase{1}

// find runs a matcher over every store of the stack.
func (rc *Context) find(match func(*inventory.Store) *types.Record) (*inventory.Store, *types.Record) {
	for _, s := range rc.Stores() {
		if r := match(s); r != nil {
			return s, r
		}
	}
	return nil, nil
}

// iamInScope gates IAM reconcilers: IAM is global and only reconciled in
// the home region.
func (rc *Context) iamInScope(md Metadata) bool {
	if !rc.InPhase(md) {
		return false
	}
	if !rc.IsHomeRegion() {
		rc.Logger.Debug("not the home region", "region", rc.Stack.Region)
		return false
	}
	return true
}

type ManagedPolicies struct{}

func (r *ManagedPolicies) Metadata() Metadata {
	return Metadata{
		Name:          "iam-managed-policies",
		Description:   "Adopt customer managed policies and replace their documents",
		Category:      CategoryIAM,
		Phases:        iamPhases,
		ResourceTypes: []string{types.CfnIamManagedPolicy},
	}
}

func (r *ManagedPolicies) configured(rc *Context) []*config.PolicyConfig {
	var out []*config.PolicyConfig
	for _, set := range rc.Config.Iam.PolicySets {
		if rc.Includes(set.DeploymentTargets) {
			out = append(out, set.Policies...)
		}
	}
	return out
}

func (r *ManagedPolicies) Reconcile(_ context.Context, rc *Context) error {
	if !rc.iamInScope(r.Metadata()) {
		return nil
	}

	policies := r.configured(rc)
	names := make([]string, 0, len(policies))
	for _, p := range policies {
		names = append(names, p.Name)
		store, rec := rc.find(func(s *inventory.Store) *types.Record { return matcher.ManagedPolicy(s, p.Name) })
		if rec == nil {
			if err := rc.Missing(SiteNoLegacyResource, p.Name, absent("managed policy "+p.Name)); err != nil {
				return err
			}
			continue
		}
		node, err := rc.Node(store, rec)
		if err != nil {
			return err
		}
		if p.Raw != nil {
			node.SetProperty("PolicyDocument", p.Raw)
		}
		rc.customerPolicies[p.Name] = newLocalRef(store, rec)
		rc.Adopt(store, rec, types.AseaIamPolicy)
		rc.Emit(store, types.NewRef(rec.LogicalResourceID), params.IamPolicy, p.Name)
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnIamManagedPolicy) {
			name, ok := matcher.ManagedPolicyName(rec)
			if !ok || matcher.ManagedPolicyConfigured(name, names) {
				continue
			}
			if err := rc.DeleteWithParameter(store, rec.LogicalResourceID, params.IamPolicy, []string{name}); err != nil {
				return err
			}
		}
	}
	return nil
}

type Roles struct{}

func (r *Roles) Metadata() Metadata {
	return Metadata{
		Name:          "iam-roles",
		Description:   "Adopt roles, rebuild trust and managed policies, toggle instance profiles",
		Category:      CategoryIAM,
		Phases:        iamPhases,
		ResourceTypes: []string{types.CfnIamRole, types.CfnIamInstanceProfile},
	}
}

func (r *Roles) Reconcile(_ context.Context, rc *Context) error {
	if !rc.iamInScope(r.Metadata()) {
		return nil
	}

	var names []string
	for _, set := range rc.Config.Iam.RoleSets {
		if !rc.Includes(set.DeploymentTargets) {
			continue
		}
		for _, role := range set.Roles {
			names = append(names, role.Name)
			if err := r.reconcileRole(rc, set, role); err != nil {
				return err
			}
		}
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnIamRole) {
			name, ok := matcher.RoleName(rec)
			if !ok || slices.Contains(names, name) {
				continue
			}
			if err := rc.DeleteWithParameter(store, rec.LogicalResourceID, params.IamRole, []string{name}, cascade.InstanceProfiles()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Roles) reconcileRole(rc *Context, set *config.RoleSetConfig, role *config.RoleConfig) error {
	store, rec := rc.find(func(s *inventory.Store) *types.Record { return matcher.Role(s, role.Name) })
	if rec == nil {
		return rc.Missing(SiteNoLegacyResource, role.Name, absent("role "+role.Name))
	}
	node, err := rc.Node(store, rec)
	if err != nil {
		return err
	}

	trust, err := rc.assumeRolePolicy(role)
	if err != nil {
		return err
	}
	node.SetProperty("AssumeRolePolicyDocument", trust)
	if arns := rc.policyArns(store.Key(), role.Policies); len(arns) > 0 {
		node.SetProperty("ManagedPolicyArns", arns)
	} else {
		node.DeleteProperty("ManagedPolicyArns")
	}
	if role.BoundaryPolicy != "" {
		node.SetProperty("PermissionsBoundary", rc.policyArn(store.Key(), role.BoundaryPolicy))
	} else {
		node.DeleteProperty("PermissionsBoundary")
	}
	if set.Path != "" {
		node.SetProperty("Path", set.Path)
	}

	if err := r.instanceProfile(rc, store, rec, set, role); err != nil {
		return err
	}

	rc.Adopt(store, rec, types.AseaIamRole)
	rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "Arn"), params.IamRole, role.Name)
	return nil
}

// instanceProfile brings the instance profile of a role in line with the
// instanceProfile flag.
func (r *Roles) instanceProfile(rc *Context, store *inventory.Store, role *types.Record, set *config.RoleSetConfig, cfg *config.RoleConfig) error {
	scope, err := rc.ScopeOf(store)
	if err != nil {
		return err
	}
	roleRef := []any{types.NewRef(role.LogicalResourceID)}
	existing := store.FilterByRef(types.CfnIamInstanceProfile, "Roles", role.LogicalResourceID)

	switch {
	case !cfg.InstanceProfile && len(existing) > 0:
		for _, p := range existing {
			scope.Remove(p.LogicalResourceID)
			if err := rc.Delete(store, p.LogicalResourceID); err != nil {
				return err
			}
		}
	case cfg.InstanceProfile && len(existing) == 0:
		id := role.LogicalResourceID + "InstanceProfile"
		if scope.Has(id) {
			return nil
		}
		profile := &template.Resource{Type: types.CfnIamInstanceProfile}
		profile.SetProperty("InstanceProfileName", cfg.Name)
		profile.SetProperty("Roles", roleRef)
		if set.Path != "" {
			profile.SetProperty("Path", set.Path)
		}
		scope.Put(id, profile)
		rc.Logger.Info("created instance profile", "role", cfg.Name, "logicalId", id)
	case cfg.InstanceProfile:
		for _, p := range existing {
			node, err := rc.Node(store, p)
			if err != nil {
				return err
			}
			node.SetProperty("InstanceProfileName", cfg.Name)
			node.SetProperty("Roles", roleRef)
			rc.Adopt(store, p, types.AseaIamInstanceProfile)
		}
	}
	return nil
}

type Groups struct{}

func (r *Groups) Metadata() Metadata {
	return Metadata{
		Name:          "iam-groups",
		Description:   "Adopt groups and their managed policies",
		Category:      CategoryIAM,
		Phases:        iamPhases,
		ResourceTypes: []string{types.CfnIamGroup},
	}
}

func (r *Groups) Reconcile(_ context.Context, rc *Context) error {
	if !rc.iamInScope(r.Metadata()) {
		return nil
	}

	var names []string
	for _, set := range rc.Config.Iam.GroupSets {
		if !rc.Includes(set.DeploymentTargets) {
			continue
		}
		for _, group := range set.Groups {
			names = append(names, group.Name)
			store, rec := rc.find(func(s *inventory.Store) *types.Record { return matcher.Group(s, group.Name) })
			if rec == nil {
				if err := rc.Missing(SiteNoLegacyResource, group.Name, absent("group "+group.Name)); err != nil {
					return err
				}
				continue
			}
			node, err := rc.Node(store, rec)
			if err != nil {
				return err
			}
			if arns := rc.policyArns(store.Key(), group.Policies); len(arns) > 0 {
				node.SetProperty("ManagedPolicyArns", arns)
			} else {
				node.DeleteProperty("ManagedPolicyArns")
			}
			rc.groups[group.Name] = newLocalRef(store, rec)
			rc.Adopt(store, rec, types.AseaIamGroup)
			rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "Arn"), params.IamGroup, group.Name)
		}
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnIamGroup) {
			name, ok := matcher.GroupName(rec)
			if !ok || slices.Contains(names, name) {
				continue
			}
			if err := rc.DeleteWithParameter(store, rec.LogicalResourceID, params.IamGroup, []string{name}); err != nil {
				return err
			}
		}
	}
	return nil
}

type Users struct{}

func (r *Users) Metadata() Metadata {
	return Metadata{
		Name:          "iam-users",
		Description:   "Adopt users and point them at their reconciled group",
		Category:      CategoryIAM,
		Phases:        iamPhases,
		ResourceTypes: []string{types.CfnIamUser},
	}
}

func (r *Users) Reconcile(_ context.Context, rc *Context) error {
	if !rc.iamInScope(r.Metadata()) {
		return nil
	}

	var names []string
	for _, set := range rc.Config.Iam.UserSets {
		if !rc.Includes(set.DeploymentTargets) {
			continue
		}
		for _, user := range set.Users {
			names = append(names, user.Username)
			store, rec := rc.find(func(s *inventory.Store) *types.Record { return matcher.User(s, user.Username) })
			if rec == nil {
				if err := rc.Missing(SiteNoLegacyResource, user.Username, absent("user "+user.Username)); err != nil {
					return err
				}
				continue
			}
			node, err := rc.Node(store, rec)
			if err != nil {
				return err
			}
			if user.Group != "" {
				var group any = user.Group
				if ref, ok := rc.groups[user.Group]; ok && ref.scope == store.Key() {
					group = types.NewRef(ref.logicalID)
				}
				node.SetProperty("Groups", []any{group})
			}
			if user.BoundaryPolicy != "" {
				node.SetProperty("PermissionsBoundary", rc.policyArn(store.Key(), user.BoundaryPolicy))
			} else {
				node.DeleteProperty("PermissionsBoundary")
			}
			rc.Adopt(store, rec, types.AseaIamUser)
			rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "Arn"), params.IamUser, user.Username)
		}
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnIamUser) {
			name, ok := matcher.UserName(rec)
			if !ok || slices.Contains(names, name) {
				continue
			}
			if err := rc.DeleteWithParameter(store, rec.LogicalResourceID, params.IamUser, []string{name}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Package matcher finds the legacy record that owns a configured item. Every
// function returns nil when there is no counterpart and never mutates the
// store.
package matcher

import (
	"fmt"
	"slices"
	"strings"

	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/praetorian-inc/asea-lza/pkg/utils"
)

// literalName decodes the typed view T of r and reads its name field.
func literalName[T any](r *types.Record, field func(T) types.Text) (string, bool) {
	props, err := types.DecodeProperties[T](r)
	if err != nil {
		return "", false
	}
	return field(props).Literal()
}

// RoleName is the literal RoleName of a legacy role.
func RoleName(r *types.Record) (string, bool) {
	return literalName(r, func(p types.RoleProperties) types.Text { return p.RoleName })
}

func ManagedPolicyName(r *types.Record) (string, bool) {
	return literalName(r, func(p types.ManagedPolicyProperties) types.Text { return p.ManagedPolicyName })
}

func GroupName(r *types.Record) (string, bool) {
	return literalName(r, func(p types.GroupProperties) types.Text { return p.GroupName })
}

func UserName(r *types.Record) (string, bool) {
	return literalName(r, func(p types.UserProperties) types.Text { return p.UserName })
}

// SecurityGroupName is the GroupName of a group, else its Name tag.
func SecurityGroupName(r *types.Record) string {
	if v, ok := literalName(r, func(p types.SecurityGroupProperties) types.Text { return p.GroupName }); ok {
		return v
	}
	return r.Name()
}

// named returns the first record of resourceType whose name is accepted by
// match.
func named(store *inventory.Store, resourceType string, nameOf func(*types.Record) (string, bool), match func(string) bool) *types.Record {
	for _, r := range store.ByType(resourceType) {
		if v, ok := nameOf(r); ok && match(v) {
			return r
		}
	}
	return nil
}

func equals(name string) func(string) bool {
	return func(v string) bool { return v == name }
}

// Role names are exact: ASEA creates them with the configured name.
func Role(store *inventory.Store, name string) *types.Record {
	return named(store, types.CfnIamRole, RoleName, equals(name))
}

func User(store *inventory.Store, name string) *types.Record {
	return named(store, types.CfnIamUser, UserName, equals(name))
}

func Group(store *inventory.Store, name string) *types.Record {
	return named(store, types.CfnIamGroup, GroupName, equals(name))
}

// ManagedPolicy prefers an exact name and falls back to a partial match,
// since legacy policy names carry generated suffixes.
func ManagedPolicy(store *inventory.Store, name string) *types.Record {
	if r := named(store, types.CfnIamManagedPolicy, ManagedPolicyName, equals(name)); r != nil {
		return r
	}
	return named(store, types.CfnIamManagedPolicy, ManagedPolicyName, func(v string) bool { return strings.Contains(v, name) })
}

// ManagedPolicyConfigured reports whether a legacy policy name belongs to
// one of the configured names, using the same rules as ManagedPolicy.
func ManagedPolicyConfigured(legacyName string, configured []string) bool {
	for _, name := range configured {
		if legacyName == name || strings.Contains(legacyName, name) {
			return true
		}
	}
	return false
}

// NameTag matches a record by its Name tag, trying each alias in turn.
func NameTag(store *inventory.Store, resourceType, name string, aliases ...string) *types.Record {
	for _, candidate := range append([]string{name}, aliases...) {
		if candidate == "" {
			continue
		}
		if r := store.FindByName(resourceType, candidate); r != nil {
			return r
		}
	}
	return nil
}

// TransitGatewayAttachmentName is the Name tag ASEA gives a VPC attachment.
func TransitGatewayAttachmentName(vpcName, tgwName string) string {
	return fmt.Sprintf("%s_%s_att", vpcName, tgwName)
}

// TransitGatewayAttachment matches by Name tag. An account can hold several
// attachments, so only the expected name disambiguates them.
func TransitGatewayAttachment(store *inventory.Store, expectedName string, fallbackNames ...string) *types.Record {
	return NameTag(store, types.CfnTransitGatewayAttach, expectedName, fallbackNames...)
}

// VpcEndpoint matches by the rendered ServiceName property.
func VpcEndpoint(store *inventory.Store, serviceName string, pseudo types.Pseudo) *types.Record {
	for _, r := range store.ByType(types.CfnVpcEndpoint) {
		props, err := types.DecodeProperties[types.VpcEndpointProperties](r)
		if err != nil || props.ServiceName == nil {
			continue
		}
		if rendered, ok := types.Render(props.ServiceName, pseudo); ok && rendered == serviceName {
			return r
		}
	}
	return nil
}

const (
	Inbound  = "Inbound"
	Outbound = "Outbound"
)

// ResolverEndpointName is the display name of a resolver endpoint: the VPC
// name without its "_vpc" suffix plus the direction.
func ResolverEndpointName(vpcName, direction string) string {
	return fmt.Sprintf("%s %s Endpoint", utils.TrimVpcSuffix(vpcName), direction)
}

// ResolverEndpointLogicalFragment is the name used inside logical ids, which
// cannot hold spaces.
func ResolverEndpointLogicalFragment(vpcName, direction string) string {
	return utils.RemoveSpaces(ResolverEndpointName(vpcName, direction))
}

// ResolverEndpoint matches the Name property, then the Name tag, then a
// logical id starting with the endpoint name without spaces.
func ResolverEndpoint(store *inventory.Store, vpcName, direction string) *types.Record {
	name := ResolverEndpointName(vpcName, direction)
	endpointName := func(r *types.Record) (string, bool) {
		return literalName(r, func(p types.ResolverEndpointProperties) types.Text { return p.Name })
	}
	if r := named(store, types.CfnResolverEndpoint, endpointName, equals(name)); r != nil {
		return r
	}
	if r := store.FindByName(types.CfnResolverEndpoint, name); r != nil {
		return r
	}
	fragment := ResolverEndpointLogicalFragment(vpcName, direction)
	for _, r := range store.ByType(types.CfnResolverEndpoint) {
		if strings.HasPrefix(r.LogicalResourceID, fragment) {
			return r
		}
	}
	return nil
}

// DescriptionTokens splits a group description on whitespace.
func DescriptionTokens(description string) []string {
	return strings.Fields(description)
}

// SharedSecurityGroup finds a security group copied into a shared VPC
// stack. The owning VPC appears as a whole token of the group description
// ("App Security Group" belongs to App_vpc, never to AppTest_vpc).
func SharedSecurityGroup(stores []*inventory.Store, vpcName, groupName string) (*inventory.Store, *types.Record) {
	token := utils.TrimVpcSuffix(vpcName)
	for _, store := range stores {
		for _, r := range store.ByType(types.CfnSecurityGroup) {
			if SecurityGroupName(r) != groupName {
				continue
			}
			if slices.Contains(DescriptionTokens(SecurityGroupDescription(r)), token) {
				return store, r
			}
		}
	}
	return nil, nil
}

// SecurityGroupDescription is the literal GroupDescription of a group.
func SecurityGroupDescription(r *types.Record) string {
	props, err := types.DecodeProperties[types.SecurityGroupProperties](r)
	if err != nil {
		return ""
	}
	return props.GroupDescription.String()
}

// SecurityGroup matches a group of a VPC stack by GroupName, then Name tag.
func SecurityGroup(store *inventory.Store, name string) *types.Record {
	groupName := func(r *types.Record) (string, bool) {
		return literalName(r, func(p types.SecurityGroupProperties) types.Text { return p.GroupName })
	}
	if r := named(store, types.CfnSecurityGroup, groupName, equals(name)); r != nil {
		return r
	}
	return store.FindByName(types.CfnSecurityGroup, name)
}

// SSMParameter finds a parameter by name, including ones already flagged,
// so cascades stay complete when the parameter was flagged first.
func SSMParameter(store *inventory.Store, name string) *types.Record {
	for _, r := range store.ByTypeAll(types.CfnSsmParameter) {
		if v, ok := r.StringProperty("Name"); ok && v == name {
			return r
		}
	}
	return nil
}

// Package resolver finds legacy resources that live in stacks other than the
// one being reconciled: transit gateways and their route tables in the
// network account, attachments in workload accounts, peering attachments in
// another region. Every lookup is memoised and nothing is mutated.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// StackLoader loads the inventory of a stack. *inventory.Loader satisfies it.
type StackLoader interface {
	Load(ctx context.Context, stack *types.StackMapping) (*inventory.Store, error)
}

// Match is a record together with the store that holds it.
type Match struct {
	Store  *inventory.Store
	Record *types.Record
}

func (m Match) ID() string {
	return m.Record.Identifier()
}

type lookup struct {
	match Match
	err   error
}

type Resolver struct {
	mappings *types.Mappings
	loader   StackLoader
	cfg      *config.Config

	stacks      map[string][]*inventory.Store
	lookups     map[string]lookup
	routeTables map[string]Match
}

func New(mappings *types.Mappings, loader StackLoader, cfg *config.Config) *Resolver {
	return &Resolver{
		mappings: mappings,
		loader:   loader,
		cfg:      cfg,
		stacks:   make(map[string][]*inventory.Store),
		lookups:  make(map[string]lookup),
	}
}

func missing(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrUpstreamIncomplete, fmt.Sprintf(format, args...))
}

// Stacks loads the top-level stacks of an account, region and phase. An
// unknown phase selects every phase.
func (r *Resolver) Stacks(ctx context.Context, accountID, region string, phase types.Phase) ([]*inventory.Store, error) {
	key := fmt.Sprintf("%s|%s|%d", accountID, region, phase)
	if stores, ok := r.stacks[key]; ok {
		return stores, nil
	}

	var mappings []*types.StackMapping
	if phase == types.UnknownPhase {
		for _, s := range r.mappings.Sorted() {
			if s.AccountID == accountID && s.Region == region {
				mappings = append(mappings, s)
			}
		}
	} else {
		mappings = r.mappings.ByPhase(accountID, region, phase)
	}

	stores := make([]*inventory.Store, 0, len(mappings))
	for _, m := range mappings {
		store, err := r.loader.Load(ctx, m)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	r.stacks[key] = stores
	return stores, nil
}

// Stack returns the first stack of an account, region and phase.
func (r *Resolver) Stack(ctx context.Context, accountID, region string, phase types.Phase) (*inventory.Store, error) {
	stores, err := r.Stacks(ctx, accountID, region, phase)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, missing("no phase %s stack for %s in %s", phase, accountID, region)
	}
	return stores[0], nil
}

// flatten returns stores followed by all of their nested stores.
func flatten(stores []*inventory.Store) []*inventory.Store {
	var out []*inventory.Store
	for _, s := range stores {
		out = append(out, s)
		out = append(out, flatten(s.NestedStores())...)
	}
	return out
}

func (r *Resolver) memo(key string, find func() (Match, error)) (Match, error) {
	if l, ok := r.lookups[key]; ok {
		return l.match, l.err
	}
	m, err := find()
	if types.IsFatal(err) {
		return m, err
	}
	r.lookups[key] = lookup{match: m, err: err}
	return m, err
}

func (r *Resolver) accountID(name string) (string, error) {
	return r.cfg.Accounts.AccountID(name)
}

// TransitGateway finds a configured transit gateway in its owner's phase 0
// stack.
func (r *Resolver) TransitGateway(ctx context.Context, tgwName string) (Match, error) {
	return r.memo("tgw|"+tgwName, func() (Match, error) {
		tgw, ok := r.cfg.Network.TransitGateway(tgwName)
		if !ok {
			return Match{}, types.NewConfigurationInconsistency(tgwName, "transit gateway is not configured")
		}
		return r.transitGatewayIn(ctx, tgw.Name, tgw.Account, tgw.Region)
	})
}

func (r *Resolver) transitGatewayIn(ctx context.Context, tgwName, accountName, region string) (Match, error) {
	accountID, err := r.accountID(accountName)
	if err != nil {
		return Match{}, err
	}
	stores, err := r.Stacks(ctx, accountID, region, 0)
	if err != nil {
		return Match{}, err
	}
	if len(stores) == 0 {
		return Match{}, missing("no phase 0 stack for %s in %s holding transit gateway %s", accountName, region, tgwName)
	}
	for _, s := range flatten(stores) {
		if rec := matcher.NameTag(s, types.CfnTransitGateway, tgwName); rec != nil {
			return Match{Store: s, Record: rec}, nil
		}
	}
	return Match{}, missing("transit gateway %s not found for %s in %s", tgwName, accountName, region)
}

func (r *Resolver) TransitGatewayID(ctx context.Context, tgwName string) (string, error) {
	m, err := r.TransitGateway(ctx, tgwName)
	if err != nil {
		return "", err
	}
	return m.ID(), nil
}

func routeTableKey(tgwName, routeTableName string) string {
	return tgwName + "/" + routeTableName
}

// buildRouteTables indexes the route tables of every configured transit
// gateway and of both sides of every peering, whichever account and region
// holds them.
func (r *Resolver) buildRouteTables(ctx context.Context) error {
	r.routeTables = make(map[string]Match)

	type location struct{ tgw, account, region string }
	var locations []location
	seen := make(map[location]bool)
	add := func(l location) {
		if !seen[l] {
			seen[l] = true
			locations = append(locations, l)
		}
	}
	for _, tgw := range r.cfg.Network.TransitGateways {
		add(location{tgw.Name, tgw.Account, tgw.Region})
	}
	for _, p := range r.cfg.Network.TransitGatewayPeering {
		add(location{p.Requester.TransitGatewayName, p.Requester.Account, p.Requester.Region})
		add(location{p.Accepter.TransitGatewayName, p.Accepter.Account, p.Accepter.Region})
	}

	for _, l := range locations {
		tgw, err := r.transitGatewayIn(ctx, l.tgw, l.account, l.region)
		if err != nil {
			if types.IsFatal(err) {
				return err
			}
			slog.Warn("transit gateway route tables not indexed", "transitGateway", l.tgw, "account", l.account, "region", l.region, "reason", err)
			continue
		}
		for _, rt := range tgw.Store.FilterByRef(types.CfnTransitGatewayRouteTbl, "TransitGatewayId", tgw.Record.LogicalResourceID) {
			name := rt.Name()
			if name == "" {
				continue
			}
			key := routeTableKey(l.tgw, name)
			if _, dup := r.routeTables[key]; !dup {
				r.routeTables[key] = Match{Store: tgw.Store, Record: rt}
			}
		}
	}
	return nil
}

// RouteTable resolves a transit gateway route table through the global
// route table map.
func (r *Resolver) RouteTable(ctx context.Context, tgwName, routeTableName string) (Match, error) {
	if r.routeTables == nil {
		if err := r.buildRouteTables(ctx); err != nil {
			return Match{}, err
		}
	}
	m, ok := r.routeTables[routeTableKey(tgwName, routeTableName)]
	if !ok {
		return Match{}, missing("route table %s of transit gateway %s not found", routeTableName, tgwName)
	}
	return m, nil
}

func (r *Resolver) RouteTableID(ctx context.Context, tgwName, routeTableName string) (string, error) {
	m, err := r.RouteTable(ctx, tgwName, routeTableName)
	if err != nil {
		return "", err
	}
	return m.ID(), nil
}

// attachmentNames lists the Name tags a VPC attachment to tgwName may carry.
func (r *Resolver) attachmentNames(vpcName, tgwName string) []string {
	var names []string
	if vpc, ok := r.cfg.Network.Vpc(vpcName); ok {
		for _, att := range vpc.TransitGatewayAttachments {
			if att.TransitGateway.Name == tgwName && att.Name != "" {
				names = append(names, att.Name)
			}
		}
	}
	return append(names, matcher.TransitGatewayAttachmentName(vpcName, tgwName))
}

// TransitGatewayAttachment finds the attachment of vpcName to tgwName. It is
// looked up in the VPC's account first and then in the transit gateway
// owner's account, where ASEA places attachments of shared VPCs.
func (r *Resolver) TransitGatewayAttachment(ctx context.Context, vpcName, vpcAccount, tgwName string) (Match, error) {
	key := fmt.Sprintf("att|%s|%s|%s", vpcName, vpcAccount, tgwName)
	return r.memo(key, func() (Match, error) {
		tgw, ok := r.cfg.Network.TransitGateway(tgwName)
		if !ok {
			return Match{}, types.NewConfigurationInconsistency(tgwName, "transit gateway is not configured")
		}
		names := r.attachmentNames(vpcName, tgwName)

		accounts := []string{vpcAccount}
		if tgw.Account != vpcAccount {
			accounts = append(accounts, tgw.Account)
		}
		for _, account := range accounts {
			accountID, err := r.accountID(account)
			if err != nil {
				return Match{}, err
			}
			stores, err := r.Stacks(ctx, accountID, tgw.Region, types.UnknownPhase)
			if err != nil {
				return Match{}, err
			}
			for _, s := range flatten(stores) {
				if rec := matcher.TransitGatewayAttachment(s, names[0], names[1:]...); rec != nil {
					if account != vpcAccount {
						slog.Debug("attachment found in transit gateway account", "vpc", vpcName, "account", account)
					}
					return Match{Store: s, Record: rec}, nil
				}
			}
		}
		return Match{}, missing("attachment of %s (%s) to %s not found in %v", vpcName, vpcAccount, tgwName, accounts)
	})
}

func (r *Resolver) TransitGatewayAttachmentID(ctx context.Context, vpcName, vpcAccount, tgwName string) (string, error) {
	m, err := r.TransitGatewayAttachment(ctx, vpcName, vpcAccount, tgwName)
	if err != nil {
		return "", err
	}
	return m.ID(), nil
}

// PeeringAttachment finds a transit gateway peering attachment on the
// requester side, then on the accepter side.
func (r *Resolver) PeeringAttachment(ctx context.Context, peeringName string) (Match, error) {
	return r.memo("peer|"+peeringName, func() (Match, error) {
		peering, ok := r.cfg.Network.Peering(peeringName)
		if !ok {
			return Match{}, types.NewConfigurationInconsistency(peeringName, "transit gateway peering is not configured")
		}
		for _, side := range []config.TransitGatewayPeeringSide{peering.Requester, peering.Accepter} {
			accountID, err := r.accountID(side.Account)
			if err != nil {
				return Match{}, err
			}
			stores, err := r.Stacks(ctx, accountID, side.Region, types.UnknownPhase)
			if err != nil {
				return Match{}, err
			}
			for _, s := range flatten(stores) {
				if rec := matcher.NameTag(s, types.CfnTransitGatewayPeering, peeringName); rec != nil {
					return Match{Store: s, Record: rec}, nil
				}
			}
		}
		return Match{}, missing("peering attachment %s not found", peeringName)
	})
}

func (r *Resolver) PeeringAttachmentID(ctx context.Context, peeringName string) (string, error) {
	m, err := r.PeeringAttachment(ctx, peeringName)
	if err != nil {
		return "", err
	}
	return m.ID(), nil
}

// Vpc finds the VPC record of an account and region by Name tag.
func (r *Resolver) Vpc(ctx context.Context, accountID, region, vpcName string) (Match, error) {
	key := fmt.Sprintf("vpc|%s|%s|%s", accountID, region, vpcName)
	return r.memo(key, func() (Match, error) {
		stores, err := r.Stacks(ctx, accountID, region, types.UnknownPhase)
		if err != nil {
			return Match{}, err
		}
		for _, s := range flatten(stores) {
			if rec := matcher.NameTag(s, types.CfnVpc, vpcName); rec != nil {
				return Match{Store: s, Record: rec}, nil
			}
		}
		return Match{}, missing("vpc %s not found for %s in %s", vpcName, accountID, region)
	})
}

// VpcResource finds a named resource in the stack holding a VPC, such as a
// subnet or security group another account references.
func (r *Resolver) VpcResource(ctx context.Context, accountID, region, vpcName, resourceType, name string) (Match, error) {
	key := fmt.Sprintf("vpcres|%s|%s|%s|%s|%s", accountID, region, vpcName, resourceType, name)
	return r.memo(key, func() (Match, error) {
		vpc, err := r.Vpc(ctx, accountID, region, vpcName)
		if err != nil {
			return Match{}, err
		}
		for _, s := range flatten([]*inventory.Store{vpc.Store}) {
			if rec := matcher.NameTag(s, resourceType, name); rec != nil {
				return Match{Store: s, Record: rec}, nil
			}
		}
		return Match{}, missing("%s %s not found next to vpc %s", resourceType, name, vpcName)
	})
}

func (r *Resolver) VpcResourceID(ctx context.Context, accountID, region, vpcName, resourceType, name string) (string, error) {
	m, err := r.VpcResource(ctx, accountID, region, vpcName, resourceType, name)
	if err != nil {
		return "", err
	}
	return m.ID(), nil
}

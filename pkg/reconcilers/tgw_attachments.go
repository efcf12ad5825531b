package reconcilers

import (
	"context"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// attachment finds the legacy attachment of a configured VPC attachment,
// next to the VPC first.
func (rc *Context) attachment(m vpcMatch, att config.TransitGatewayAttachmentConfig) (*inventory.Store, *types.Record) {
	fallback := matcher.TransitGatewayAttachmentName(m.cfg.Name, att.TransitGateway.Name)
	if rec := matcher.TransitGatewayAttachment(m.store, att.Name, fallback); rec != nil {
		return m.store, rec
	}
	return rc.find(func(s *inventory.Store) *types.Record {
		return matcher.TransitGatewayAttachment(s, att.Name, fallback)
	})
}

type TransitGatewayAttachments struct{}

func (r *TransitGatewayAttachments) Metadata() Metadata {
	return Metadata{
		Name:          "tgw-attachments",
		Description:   "Adopt VPC transit gateway attachments and re-point their subnets",
		Category:      CategoryTransitGateway,
		Phases:        vpcPhases,
		ResourceTypes: []string{types.CfnTransitGatewayAttach},
	}
}

func (r *TransitGatewayAttachments) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	vpcs, err := rc.localVpcs(false)
	if err != nil {
		return err
	}

	for _, m := range vpcs {
		adopted := make(map[string]bool)
		for _, att := range m.cfg.TransitGatewayAttachments {
			store, rec := rc.attachment(m, att)
			if rec == nil {
				if err := rc.Missing(SiteNoLegacyResource, att.Name, absent("transit gateway attachment "+att.Name), "vpc", m.cfg.Name); err != nil {
					return err
				}
				continue
			}
			adopted[store.Key()+"#"+rec.LogicalResourceID] = true
			if err := r.reconcileAttachment(ctx, rc, m, store, rec, att); err != nil {
				return err
			}
		}

		for _, rec := range m.children(types.CfnTransitGatewayAttach) {
			if adopted[m.store.Key()+"#"+rec.LogicalResourceID] {
				continue
			}
			var rules []cascade.Rule
			if name := rec.Name(); name != "" {
				rules = append(rules, cascade.DerivedParameter(rc.Paths.Path(params.TransitGatewayAttach, m.cfg.Name, name)))
			}
			rules = append(rules,
				cascade.Referencing(types.CfnTransitGatewayRTAssoc, "TransitGatewayAttachmentId"),
				cascade.Referencing(types.CfnTransitGatewayRTPropag, "TransitGatewayAttachmentId"),
			)
			if err := rc.Delete(m.store, rec.LogicalResourceID, rules...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *TransitGatewayAttachments) reconcileAttachment(ctx context.Context, rc *Context, m vpcMatch, store *inventory.Store, rec *types.Record, att config.TransitGatewayAttachmentConfig) error {
	node, err := rc.Node(store, rec)
	if err != nil {
		return err
	}

	tgwID, err := rc.Resolver.TransitGatewayID(ctx, att.TransitGateway.Name)
	if err != nil {
		if err := rc.Missing(SiteUpstreamStack, att.Name, err, "transitGateway", att.TransitGateway.Name); err != nil {
			return err
		}
	} else {
		node.SetProperty("TransitGatewayId", tgwID)
	}

	subnets := make([]any, 0, len(att.Subnets))
	for _, name := range att.Subnets {
		subnet := rc.subnet(m.store, m.cfg.Name, name)
		if subnet == nil {
			if err := rc.Missing(SiteReferencedResource, att.Name, absent("subnet "+name)); err != nil {
				return err
			}
			continue
		}
		subnets = append(subnets, refOrID(store, m.store, subnet))
	}
	if len(subnets) > 0 {
		node.SetProperty("SubnetIds", subnets)
	}

	rc.Adopt(store, rec, types.AseaTransitGatewayAttachment)
	rc.Emit(store, types.NewRef(rec.LogicalResourceID), params.TransitGatewayAttach, m.cfg.Name, att.Name)
	return nil
}

type TransitGatewayAssociations struct{}

func (r *TransitGatewayAssociations) Metadata() Metadata {
	return Metadata{
		Name:          "tgw-associations",
		Description:   "Keep the route table associations and propagations of attachments that are still configured",
		Category:      CategoryTransitGateway,
		Phases:        vpcPhases,
		ResourceTypes: []string{types.CfnTransitGatewayRTAssoc, types.CfnTransitGatewayRTPropag},
	}
}

func (r *TransitGatewayAssociations) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	vpcs, err := rc.localVpcs(false)
	if err != nil {
		return err
	}

	for _, m := range vpcs {
		for _, att := range m.cfg.TransitGatewayAttachments {
			store, rec := rc.attachment(m, att)
			if rec == nil {
				continue
			}
			err := r.reconcile(ctx, rc, store, rec, att.TransitGateway.Name, att.RouteTableAssociations,
				types.CfnTransitGatewayRTAssoc, types.AseaTransitGatewayAssociation)
			if err != nil {
				return err
			}
			err = r.reconcile(ctx, rc, store, rec, att.TransitGateway.Name, att.RouteTablePropagations,
				types.CfnTransitGatewayRTPropag, types.AseaTransitGatewayPropagation)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcile keeps the records of resourceType hanging off attachment whose
// route table is one of routeTables and flags the others.
func (r *TransitGatewayAssociations) reconcile(ctx context.Context, rc *Context, store *inventory.Store, attachment *types.Record, tgwName string, routeTables []string, resourceType string, asea types.AseaResourceType) error {
	wanted := make(map[string]bool, len(routeTables))
	for _, name := range routeTables {
		id, err := rc.Resolver.RouteTableID(ctx, tgwName, name)
		if err != nil {
			if err := rc.Missing(SiteRouteTable, tgwName+"/"+name, err); err != nil {
				return err
			}
			continue
		}
		wanted[id] = true
	}

	for _, rec := range store.FilterByRef(resourceType, "TransitGatewayAttachmentId", attachment.LogicalResourceID) {
		v, _ := rec.Property("TransitGatewayRouteTableId")
		id, ok := valueID(store, v)
		if ok && wanted[id] {
			rc.Adopt(store, rec, asea)
			continue
		}
		if err := rc.Delete(store, rec.LogicalResourceID); err != nil {
			return err
		}
	}
	return nil
}

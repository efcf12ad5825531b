package reconcilers

import (
	"context"

	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// inventoryDocument is the SSM document ASEA associates to collect
// software inventory.
const inventoryDocument = "AWS-GatherSoftwareInventory"

type SsmInventory struct{}

func (r *SsmInventory) Metadata() Metadata {
	return Metadata{
		Name:          "ssm-inventory",
		Description:   "Keep SSM inventory collection where it is still enabled",
		Category:      CategorySSM,
		Phases:        []types.Phase{3},
		ResourceTypes: []string{types.CfnSsmResourceDataSync, types.CfnSsmAssociation},
	}
}

func (r *SsmInventory) enabled(rc *Context) bool {
	inv := rc.Config.Global.SsmInventory
	return inv != nil && inv.Enable && rc.Includes(inv.DeploymentTargets)
}

func (r *SsmInventory) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	enabled := r.enabled(rc)

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnSsmResourceDataSync) {
			if enabled {
				rc.Adopt(store, rec, types.AseaSsmResourceDataSync)
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID); err != nil {
				return err
			}
		}
		for _, rec := range store.ByType(types.CfnSsmAssociation) {
			if name, _ := rec.StringProperty("Name"); name != inventoryDocument {
				continue
			}
			if enabled {
				rc.Adopt(store, rec, types.AseaSsmAssociation)
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID); err != nil {
				return err
			}
		}
	}
	return nil
}

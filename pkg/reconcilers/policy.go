package reconcilers

import "github.com/praetorian-inc/asea-lza/pkg/types"

// MissingPolicy decides what happens when a lookup comes back empty.
type MissingPolicy int

const (
	// SkipMissing logs at info and moves on.
	SkipMissing MissingPolicy = iota
	// WarnMissing logs a warning and omits the dependent output.
	WarnMissing
	// FailMissing aborts the run with a configuration inconsistency.
	FailMissing
)

func (p MissingPolicy) String() string {
	switch p {
	case SkipMissing:
		return "skip"
	case WarnMissing:
		return "warn"
	case FailMissing:
		return "fail"
	}
	return "unknown"
}

// Site names a kind of lookup made by reconcilers.
type Site string

const (
	// a configured item has no legacy resource
	SiteNoLegacyResource Site = "no-legacy-resource"
	// a stack another stack depends on is absent, like the network account's
	// phase 0 stack
	SiteUpstreamStack Site = "upstream-stack"
	// a resource referenced by an adopted resource is absent
	SiteReferencedResource Site = "referenced-resource"
	// a hosted zone or record set of an interface endpoint is absent
	SiteEndpointDNS Site = "endpoint-dns"
	// a configured transit gateway route has no live route record
	SiteRouteRecord Site = "route-record"
	// a transit gateway route targets an attachment that cannot be found
	SiteRouteAttachment Site = "route-attachment"
	// a configured transit gateway route table cannot be found
	SiteRouteTable Site = "route-table"
)

// Policies is the policy applied at every lookup site.
var Policies = map[Site]MissingPolicy{
	SiteNoLegacyResource:   SkipMissing,
	SiteUpstreamStack:      WarnMissing,
	SiteReferencedResource: WarnMissing,
	SiteEndpointDNS:        WarnMissing,
	SiteRouteRecord:        SkipMissing,
	SiteRouteAttachment:    FailMissing,
	SiteRouteTable:         FailMissing,
}

// Missing applies the policy of site to err. Fatal errors pass through
// untouched; absences are logged or turned into a configuration
// inconsistency naming item.
func (rc *Context) Missing(site Site, item string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	if types.IsFatal(err) {
		return err
	}

	attrs = append([]any{"item", item, "site", string(site), "reason", err.Error()}, attrs...)
	switch Policies[site] {
	case FailMissing:
		// the sentinel is dropped so the error stays fatal
		return types.NewConfigurationInconsistency(item, "required resource could not be resolved: %v", err)
	case WarnMissing:
		rc.Logger.Warn("skipping "+item, attrs...)
	default:
		rc.Logger.Info("skipping "+item, attrs...)
	}
	return nil
}

// absent wraps ErrExpectedAbsence with a description.
func absent(what string) error {
	return &absence{what: what, err: types.ErrExpectedAbsence}
}

type absence struct {
	what string
	err  error
}

func (a *absence) Error() string { return a.what + ": " + a.err.Error() }
func (a *absence) Unwrap() error { return a.err }

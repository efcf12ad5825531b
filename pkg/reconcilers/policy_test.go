package reconcilers

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietContext() *Context {
	return &Context{Logger: slog.New(slog.DiscardHandler)}
}

func TestMissingAppliesSitePolicy(t *testing.T) {
	rc := quietContext()
	upstream := fmt.Errorf("phase 0 stack: %w", types.ErrUpstreamIncomplete)

	testCases := []struct {
		site  Site
		err   error
		fatal bool
	}{
		{site: SiteNoLegacyResource, err: absent("role Ops"), fatal: false},
		{site: SiteUpstreamStack, err: upstream, fatal: false},
		{site: SiteReferencedResource, err: absent("subnet Web"), fatal: false},
		{site: SiteEndpointDNS, err: absent("hosted zone"), fatal: false},
		{site: SiteRouteRecord, err: absent("live route"), fatal: false},
		{site: SiteRouteAttachment, err: upstream, fatal: true},
		{site: SiteRouteTable, err: upstream, fatal: true},
	}
	for _, tc := range testCases {
		t.Run(string(tc.site), func(t *testing.T) {
			err := rc.Missing(tc.site, "item", tc.err)
			if !tc.fatal {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var inconsistent *types.ConfigurationInconsistencyError
			assert.True(t, errors.As(err, &inconsistent))
			assert.Equal(t, "item", inconsistent.Item)
			assert.True(t, types.IsFatal(err))
		})
	}
}

func TestMissingPassesFatalErrorsThrough(t *testing.T) {
	rc := quietContext()
	fatal := types.NewConfigurationInconsistency("Main", "transit gateway is not configured")

	for site := range Policies {
		assert.Same(t, fatal, rc.Missing(site, "Main", fatal))
	}
	assert.NoError(t, rc.Missing(SiteRouteTable, "core", nil))
}

func TestAbsentUnwrapsToSentinel(t *testing.T) {
	err := absent("vpc App_vpc")
	assert.ErrorIs(t, err, types.ErrExpectedAbsence)
	assert.False(t, types.IsFatal(err))
	assert.Contains(t, err.Error(), "vpc App_vpc")
}

func TestPolicyArnResolutionOrder(t *testing.T) {
	rc := &Context{
		Partition:        "aws",
		PolicyArns:       map[string]string{"Shared": "arn:aws:iam::111111111111:policy/Shared-ABC"},
		customerPolicies: map[string]localRef{"Local": {scope: "stack", logicalID: "LocalPolicy", physical: "arn:aws:iam::222222222222:policy/Local"}},
	}

	testCases := []struct {
		name, scope string
		expected    any
	}{
		{name: "Local", scope: "stack", expected: types.NewRef("LocalPolicy")},
		{name: "Local", scope: "stack/Nested", expected: "arn:aws:iam::222222222222:policy/Local"},
		{name: "Shared", scope: "stack", expected: "arn:aws:iam::111111111111:policy/Shared-ABC"},
		{name: "ReadOnlyAccess", scope: "stack", expected: "arn:aws:iam::aws:policy/ReadOnlyAccess"},
	}
	for _, tc := range testCases {
		t.Run(tc.name+"@"+tc.scope, func(t *testing.T) {
			assert.Equal(t, tc.expected, rc.policyArn(tc.scope, tc.name))
		})
	}

	arns := rc.policyArns("stack", &config.PoliciesConfig{AwsManaged: []string{"AdministratorAccess"}, CustomerManaged: []string{"Local"}})
	assert.Equal(t, []any{"arn:aws:iam::aws:policy/AdministratorAccess", types.NewRef("LocalPolicy")}, arns)
	assert.Nil(t, rc.policyArns("stack", nil))
}

func TestAccountPrincipal(t *testing.T) {
	rc := &Context{Partition: "aws", Config: testConfig()}

	testCases := []struct {
		principal string
		expected  string
		fails     bool
	}{
		{principal: workloadID, expected: "arn:aws:iam::222222222222:root"},
		{principal: "Network", expected: "arn:aws:iam::111111111111:root"},
		{principal: "arn:aws:iam::333333333333:root", expected: "arn:aws:iam::333333333333:root"},
		{principal: "arn:aws:s3:::bucket", fails: true},
		{principal: "arn:aws:iam::111111111111:role/x", fails: true},
		{principal: "arn:aws:iam::111111111111:user/admin", fails: true},
		{principal: "Unknown", fails: true},
	}
	for _, tc := range testCases {
		t.Run(tc.principal, func(t *testing.T) {
			got, err := rc.accountPrincipal(tc.principal)
			if tc.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

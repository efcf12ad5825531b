package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/praetorian-inc/asea-lza/internal/logs"
)

const DefaultPartition = "aws"

func GetAWSCfg(ctx context.Context, region string, profile string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithClientLogMode(aws.LogRetries),
		config.WithLogger(logs.AwsLogger()),
		config.WithRegion(region),
		config.WithRetryMode(aws.RetryModeAdaptive),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

func NewArn(identifier string) (arn.ARN, error) {
	if !arn.IsARN(identifier) {
		return arn.ARN{}, fmt.Errorf("this is not a valid arn %v", identifier)
	}
	return arn.Parse(identifier)
}

type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type Identity struct {
	Account   string
	Arn       string
	Partition string
}

// GetCallerIdentity returns the operator's account and the partition read
// out of the caller ARN.
func GetCallerIdentity(ctx context.Context, client CallerIdentityAPI) (Identity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get caller identity: %w", err)
	}
	a, err := NewArn(aws.ToString(out.Arn))
	if err != nil {
		return Identity{}, err
	}
	id := Identity{Account: aws.ToString(out.Account), Arn: a.String(), Partition: a.Partition}
	slog.Debug("caller identity", "arn", id.Arn, "account", id.Account, "partition", id.Partition)
	return id, nil
}

// LookupAccountIDs lists the organization's active accounts, keyed by
// lower-cased email.
func LookupAccountIDs(ctx context.Context, client organizations.ListAccountsAPIClient) (map[string]string, error) {
	ids := make(map[string]string)
	paginator := organizations.NewListAccountsPaginator(client, &organizations.ListAccountsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list organization accounts: %w", err)
		}
		for _, acct := range page.Accounts {
			if acct.Status != orgtypes.AccountStatusActive {
				continue
			}
			ids[strings.ToLower(aws.ToString(acct.Email))] = aws.ToString(acct.Id)
		}
	}
	return ids, nil
}

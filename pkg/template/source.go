package template

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// Source returns the template of a legacy stack, or nil when it has none.
type Source interface {
	Template(ctx context.Context, stack *types.StackMapping) (*Template, error)
}

// FileSource reads templatePath through a mapping source.
type FileSource struct {
	Files mapping.Source
}

func (s FileSource) Template(ctx context.Context, stack *types.StackMapping) (*Template, error) {
	if stack.TemplatePath == "" {
		return nil, nil
	}
	data, err := s.Files.Read(ctx, stack.TemplatePath)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, &types.LoadError{Path: stack.TemplatePath, Err: err}
	}
	return t, nil
}

// GetTemplateAPI is the part of the CloudFormation client the source needs.
type GetTemplateAPI interface {
	GetTemplate(ctx context.Context, params *cloudformation.GetTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error)
}

// CloudFormationSource fetches the deployed template of top-level stacks in
// the client's region. Nested stacks are skipped since their physical names
// are not part of the mapping table. A non-empty AccountID limits the source
// to stacks of that account.
type CloudFormationSource struct {
	Client    GetTemplateAPI
	Region    string
	AccountID string
}

func NewCloudFormationSource(client *cloudformation.Client, region, accountID string) *CloudFormationSource {
	return &CloudFormationSource{Client: client, Region: region, AccountID: accountID}
}

func (s *CloudFormationSource) Template(ctx context.Context, stack *types.StackMapping) (*Template, error) {
	if stack.Parent() != nil || stack.Region != s.Region {
		return nil, nil
	}
	if s.AccountID != "" && stack.AccountID != s.AccountID {
		return nil, nil
	}
	out, err := s.Client.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(stack.StackName),
		TemplateStage: cfntypes.TemplateStageOriginal,
	})
	if err != nil {
		return nil, &types.LoadError{Path: "cloudformation://" + stack.StackName, Err: err}
	}
	t, err := Parse([]byte(aws.ToString(out.TemplateBody)))
	if err != nil {
		return nil, &types.LoadError{Path: "cloudformation://" + stack.StackName, Err: err}
	}
	return t, nil
}

// Chain tries each source in order and returns the first template found.
type Chain []Source

func (c Chain) Template(ctx context.Context, stack *types.StackMapping) (*Template, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		t, err := src.Template(ctx, stack)
		if err != nil {
			return nil, fmt.Errorf("template for %s: %w", stack.Key(), err)
		}
		if t != nil {
			return t, nil
		}
	}
	slog.Debug("no template source for stack", "stack", stack.Key())
	return nil, nil
}

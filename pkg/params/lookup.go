package params

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// LoadPolicyArnTable reads the customer managed policy ARNs published under
// {prefix}/iam/policy/ and returns them keyed by policy name. Roles and
// groups in other stacks use it to reference policies they cannot Ref.
func LoadPolicyArnTable(ctx context.Context, client ssm.GetParametersByPathAPIClient, paths Paths) (map[string]string, error) {
	root := paths.Prefix + "/iam/policy/"
	table := make(map[string]string)

	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:      aws.String(root),
		Recursive: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing parameters under %s: %w", root, err)
		}
		for _, p := range page.Parameters {
			name, ok := policyNameFromPath(root, aws.ToString(p.Name))
			if !ok {
				continue
			}
			table[name] = aws.ToString(p.Value)
		}
	}

	slog.Debug("loaded policy arn lookup table", "path", root, "policies", len(table))
	return table, nil
}

func policyNameFromPath(root, path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, root)
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "/arn")
	return name, ok && name != ""
}

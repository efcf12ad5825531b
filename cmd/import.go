package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/praetorian-inc/asea-lza/internal/helpers"
	"github.com/praetorian-inc/asea-lza/internal/message"
	outputproviders "github.com/praetorian-inc/asea-lza/internal/output_providers"
	"github.com/praetorian-inc/asea-lza/internal/registry"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/reconcilers"
	"github.com/praetorian-inc/asea-lza/pkg/template"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Adopt ASEA stack resources into LZA and write the resource mapping",
	Long: `Reads the ASEA mapping table and resource files, reconciles every legacy
stack against the LZA configuration and writes resource-mapping.json,
deletions.json and the updated templates to the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runImport(ctx)
	},
}

func init() {
	flags := importCmd.Flags()
	flags.String("config-dir", "", "directory holding the LZA configuration files")
	flags.String("mapping", "", "mapping table, a local path or s3://bucket/key")
	flags.StringP("output", "o", "asea-lza-output", "output directory")
	flags.StringSlice("reconcilers", nil, "run only these reconcilers (see list-reconcilers)")
	flags.Bool("ssm-policy-lookup", false, "read customer policy ARNs from SSM")
	flags.Bool("org-account-lookup", false, "resolve account ids through AWS Organizations")
	flags.Bool("fetch-templates", false, "fetch templates of stacks without templatePath from CloudFormation")
	flags.String("region", "", "AWS region for API calls (default is the home region)")
	flags.String("profile", "", "AWS shared config profile")
	flags.String("partition", "", "AWS partition (default is detected from the caller)")

	bindFlags(flags)
	rootCmd.AddCommand(importCmd)
}

type importSettings struct {
	ConfigDir        string
	Mapping          string
	Output           string
	Reconcilers      []string
	SsmPolicyLookup  bool
	OrgAccountLookup bool
	FetchTemplates   bool
	Region           string
	Profile          string
	Partition        string
}

func loadImportSettings() (importSettings, error) {
	s := importSettings{
		ConfigDir:        viper.GetString("config-dir"),
		Mapping:          viper.GetString("mapping"),
		Output:           viper.GetString("output"),
		Reconcilers:      viper.GetStringSlice("reconcilers"),
		SsmPolicyLookup:  viper.GetBool("ssm-policy-lookup"),
		OrgAccountLookup: viper.GetBool("org-account-lookup"),
		FetchTemplates:   viper.GetBool("fetch-templates"),
		Region:           viper.GetString("region"),
		Profile:          viper.GetString("profile"),
		Partition:        viper.GetString("partition"),
	}
	if s.ConfigDir == "" {
		return s, fmt.Errorf("--config-dir is required")
	}
	if s.Mapping == "" {
		return s, fmt.Errorf("--mapping is required")
	}
	return s, nil
}

func (s importSettings) needsAWS() bool {
	_, _, remote := mapping.ParseS3URI(s.Mapping)
	return remote || s.SsmPolicyLookup || s.OrgAccountLookup || s.FetchTemplates
}

func runImport(ctx context.Context) error {
	start := time.Now()
	message.Banner()

	settings, err := loadImportSettings()
	if err != nil {
		return err
	}
	selected, err := registry.Registry.Select(settings.Reconcilers)
	if err != nil {
		return err
	}

	cfg, err := config.Load(settings.ConfigDir)
	if err != nil {
		return err
	}
	message.Info("Loaded configuration from %s", settings.ConfigDir)

	region := settings.Region
	if region == "" {
		region = cfg.Global.HomeRegion
	}

	var awsCfg aws.Config
	var identity helpers.Identity
	if settings.needsAWS() {
		if awsCfg, err = helpers.GetAWSCfg(ctx, region, settings.Profile); err != nil {
			return err
		}
		if identity, err = helpers.GetCallerIdentity(ctx, sts.NewFromConfig(awsCfg)); err != nil {
			return err
		}
		message.Info("Running as %s", identity.Arn)
	}

	partition := settings.Partition
	if partition == "" {
		partition = identity.Partition
	}
	if partition == "" {
		partition = helpers.DefaultPartition
	}

	if settings.OrgAccountLookup {
		ids, err := helpers.LookupAccountIDs(ctx, organizations.NewFromConfig(awsCfg))
		if err != nil {
			return err
		}
		added := cfg.Accounts.MergeAccountIDs(ids)
		slog.Info("merged organization account ids", "accounts", len(ids), "added", added)
	}

	files, mappingPath := mappingSource(settings.Mapping, awsCfg)
	mappings, err := mapping.Load(ctx, files, mappingPath)
	if err != nil {
		return err
	}
	message.Info("Loaded %d stacks from %s", mappings.Len(), settings.Mapping)

	var policyArns map[string]string
	if settings.SsmPolicyLookup {
		paths := params.NewPaths(cfg.Global.SsmParameterPrefix)
		if policyArns, err = params.LoadPolicyArnTable(ctx, ssm.NewFromConfig(awsCfg), paths); err != nil {
			return err
		}
	}

	opts := reconcilers.Options{
		Config:      cfg,
		Mappings:    mappings,
		Files:       files,
		Reconcilers: selected,
		Partition:   partition,
		PolicyArns:  policyArns,
		Logger:      slog.Default(),
	}
	if settings.FetchTemplates {
		opts.Templates = template.NewCloudFormationSource(cloudformation.NewFromConfig(awsCfg), region, identity.Account)
	}

	result, err := reconcilers.NewEngine(opts).Run(ctx)
	if err != nil {
		slog.Error("import failed", "error", err)
		return err
	}

	written, err := outputproviders.NewJsonFileProvider(settings.Output).WriteResult(result)
	if err != nil {
		return err
	}
	outputproviders.NewConsoleProvider().Write(result)
	message.Success("Wrote %d files to %s in %s", len(written), settings.Output, time.Since(start).Round(time.Millisecond))
	return nil
}

// mappingSource returns the source serving the mapping table and the files
// it references, and the table's path within that source.
func mappingSource(uri string, awsCfg aws.Config) (mapping.Source, string) {
	if bucket, key, ok := mapping.ParseS3URI(uri); ok {
		prefix := path.Dir(key)
		if prefix == "." {
			prefix = ""
		}
		return mapping.NewS3Source(s3.NewFromConfig(awsCfg), bucket, prefix), path.Base(key)
	}
	return mapping.FileSource{Root: filepath.Dir(uri)}, filepath.Base(uri)
}

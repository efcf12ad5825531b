package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/praetorian-inc/asea-lza/internal/logs"
	"github.com/praetorian-inc/asea-lza/internal/message"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "asea-lza",
	Short:         "Reconciles ASEA CloudFormation stacks with an LZA configuration.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupOutput()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		message.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.asea-lza.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-file", "", "write JSON logs to this file instead of stderr")
	flags.BoolP("quiet", "q", false, "only print warnings and errors")
	flags.Bool("no-color", false, "disable coloured output")

	bindFlags(flags)
}

// bindFlags makes every flag of fs readable through viper under its own name.
func bindFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		cobra.CheckErr(viper.BindPFlag(f.Name, f))
	})
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".asea-lza")
	}

	// ASEA_LZA_CONFIG_DIR binds to config-dir
	viper.SetEnvPrefix("ASEA_LZA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupOutput() error {
	level, err := logs.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}

	noColor := viper.GetBool("no-color")
	message.SetNoColor(noColor)
	message.SetQuiet(viper.GetBool("quiet"))

	if path := viper.GetString("log-file"); path != "" {
		_, closer, err := logs.FileLogger(path, level)
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	}
	logs.ConsoleLogger(level, noColor)
	return nil
}

// Package main provides the viraldaily CLI entry point.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/viraldaily/internal/config"
	"github.com/gauthierbraillon/viraldaily/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveVersion prefers the ldflags value, then the module version recorded by go install.
func resolveVersion(v string, bi *debug.BuildInfo) string {
	if v != "dev" {
		return v
	}
	if bi == nil || bi.Main.Version == "" || bi.Main.Version == "(devel)" {
		return "dev"
	}
	return bi.Main.Version
}

// app carries state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	verbose    bool
}

// load resolves configuration and installs the logger.
func (a *app) load(cmd *cobra.Command) (*config.Config, error) {
	logging.Init(cmd.ErrOrStderr(), a.verbose)
	return config.Load(a.v, config.Options{ConfigFile: a.configFile})
}

// bind maps flags onto configuration keys.
func (a *app) bind(flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return nil
}

// newRootCmd creates the root command for viraldaily CLI.
func newRootCmd() *cobra.Command {
	info, _ := debug.ReadBuildInfo()
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:          "viraldaily",
		Short:        "Collect today's most viral videos",
		Long:         "Viraldaily collects the most viral videos from YouTube, TikTok, X and Instagram into one ranked list.",
		Version:      resolveVersion(version, info),
		SilenceUsage: true,
	}

	rootCmd.SetVersionTemplate("viraldaily version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default ./config.yaml or $VIRALDAILY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// newConfigCmd creates the config subcommand.
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long:  "Print the configuration after defaults, config file, .env and environment are applied. Credentials are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return fmt.Errorf("failed to print configuration: %w", err)
			}
			return enc.Close()
		},
	}

	return cmd
}

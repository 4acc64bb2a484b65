// Package cli wires the tool's commands: interactive layout editing,
// dataset inspection, and batch synthesis.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ocarinaa/formweaver/config"
	"github.com/ocarinaa/formweaver/fonts"
	"github.com/ocarinaa/formweaver/observability"
	"github.com/ocarinaa/formweaver/recovery"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

// RootCmd assembles the command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formweaver",
		Short:         "Place data-bound fields on a document template and synthesize one document per dataset row",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "formweaver.yaml", "Path to the YAML configuration file")
	root.PersistentFlags().Bool("verbose", false, "Log at debug level")

	root.AddCommand(SynthesizeCmd())
	root.AddCommand(ColumnsCmd())
	root.AddCommand(EditCmd())
	return root
}

// loadEnvironment resolves the pieces every command shares from flags and
// the config file.
func loadEnvironment(cmd *cobra.Command) (config.Config, observability.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.Level()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = observability.LevelDebug
	}
	log := observability.NewConsoleLogger(cmd.ErrOrStderr(), level)
	return cfg, log, nil
}

func fontCache(cfg config.Config) *fonts.Cache {
	if cfg.FontDir == "" && len(cfg.Fonts) == 0 {
		return fonts.NewCache(nil)
	}
	return fonts.NewCache(fonts.DirSource{Dir: cfg.FontDir, Mapping: cfg.Fonts})
}

func strategyFor(cfg config.Config) recovery.Strategy {
	if cfg.Strict {
		return recovery.NewStrictStrategy()
	}
	return recovery.NewLenientStrategy()
}

// Package cli wires the fieldbridge commands.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fieldbridge/internal/config"
	"fieldbridge/internal/registry"
)

type rootFlags struct {
	ConfigFile string
}

var rf rootFlags

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   "fieldbridge",
		Short: "Trigger-to-action middleware: hotkeys in, field insertions out",
	}

	rootCmd.PersistentFlags().StringVar(&rf.ConfigFile, "config", os.Getenv("FIELDBRIDGE_CONFIG"), "path to config.yaml (defaults to ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(triggerCmd())

	return rootCmd.Execute()
}

// loadConfig reads the application config and derives the definition file
// paths.
func loadConfig() (*config.Config, registry.Sources, error) {
	cfg, err := config.Load(rf.ConfigFile)
	if err != nil {
		return nil, registry.Sources{}, err
	}
	src := registry.Sources{
		WorkflowsPath:  filepath.Join(cfg.Definitions.Dir, cfg.Definitions.WorkflowsFile),
		ConnectorsPath: filepath.Join(cfg.Definitions.Dir, cfg.Definitions.ConnectorsFile),
	}
	if cfg.Definitions.CatalogFile != "" {
		src.CatalogPath = filepath.Join(cfg.Definitions.Dir, cfg.Definitions.CatalogFile)
	}
	return cfg, src, nil
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fieldbridge/internal/registry"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect workflow and connector definitions",
	}
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the definition files and report every problem found",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, src, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := registry.Load(src)
			if err != nil {
				var cfgErr *registry.ConfigError
				if errors.As(err, &cfgErr) {
					for _, p := range cfgErr.Problems {
						fmt.Fprintln(cmd.ErrOrStderr(), "problem:", p)
					}
					return fmt.Errorf("%d problem(s) found", len(cfgErr.Problems))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d workflow(s), %d connector(s), %d catalog code(s)\n",
				len(reg.Workflows()), len(reg.Connectors()), len(reg.Catalog()))
			return nil
		},
	}
}

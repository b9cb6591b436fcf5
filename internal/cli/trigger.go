package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fieldbridge/internal/audit"
	"fieldbridge/internal/engine"
	"fieldbridge/internal/logging"
	"fieldbridge/internal/registry"
	"fieldbridge/pkg/models"
)

func triggerCmd() *cobra.Command {
	var (
		text   string
		userID string
		window string
		field  string
	)
	cmd := &cobra.Command{
		Use:   "trigger <combo>",
		Short: "Fire one trigger against the local definitions and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, src, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := registry.Load(src)
			if err != nil {
				return err
			}
			eng, err := engine.New(reg, audit.NewLogSink(logging.NewLogger()), logging.NewLogger())
			if err != nil {
				return err
			}

			result := eng.Execute(cmd.Context(), args[0], models.Context{
				Text:        text,
				ActiveField: field,
				WindowLabel: window,
				UserID:      userID,
				Timestamp:   time.Now().UTC(),
			})

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if result.Status == models.ExecStatusError {
				return fmt.Errorf("execution failed: %s", result.ErrorKind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "captured text to run the workflow against")
	cmd.Flags().StringVar(&userID, "user", "", "user identifier recorded in the audit trail")
	cmd.Flags().StringVar(&window, "window", "", "active window label")
	cmd.Flags().StringVar(&field, "field", "", "active field content")
	return cmd
}

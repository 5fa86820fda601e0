package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/hookstate/internal/app"
	"github.com/dotcommander/hookstate/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:           "hookstate",
		Short:         "Session coordination and observability for host-spawned hooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			// Wire --session-root into the app-level resolver.
			if root, err := cmd.Flags().GetString("session-root"); err == nil && root != "" {
				app.SetSessionRootOverride(root)
			}

			return nil
		},
	}

	root.PersistentFlags().String("session-root", "", "Override session namespace directory")
	root.PersistentFlags().StringP("plugin", "p", "", "Plugin name (default: $HOOKSTATE_PLUGIN)")
	root.Flags().BoolP("version", "v", false, "version for hookstate")

	root.AddCommand(NewHookCmd())
	root.AddCommand(NewSessionCmd())
	root.AddCommand(NewLogCmd())
	root.AddCommand(NewDoctorCmd())

	err := root.Execute()
	if err != nil {
		slog.Error("command failed", "error", err.Error())
	}
	return err
}

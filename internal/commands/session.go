package commands

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dotcommander/hookstate/internal/app"
	"github.com/dotcommander/hookstate/internal/models"
	"github.com/dotcommander/hookstate/internal/output"
	"github.com/dotcommander/hookstate/internal/session"
)

// NewSessionCmd creates the session inspection and housekeeping command.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and clean up session state",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionPathCmd())
	cmd.AddCommand(newSessionCleanupCmd())

	return cmd
}

func sessionStoreFromFlags(flags *pflag.FlagSet) (*session.Store, error) {
	pid, _ := flags.GetInt("pid")
	if pid == 0 {
		pid = session.HostPID()
	}
	return session.New(pid)
}

func newSessionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show",
		Short:         "Print the current session document",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionStoreFromFlags(cmd.Flags())
			if err != nil {
				return err
			}

			doc, err := store.Load()
			if err != nil {
				return err
			}
			if doc == nil {
				type resp struct {
					Path   string `json:"path"`
					Exists bool   `json:"exists"`
				}
				return output.PrintSuccess(resp{Path: store.Path(), Exists: false})
			}

			type resp struct {
				Path    string          `json:"path"`
				Exists  bool            `json:"exists"`
				Session *models.Session `json:"session"`
			}
			return output.PrintSuccess(resp{Path: store.Path(), Exists: true, Session: doc})
		},
	}
	cmd.Flags().Int("pid", 0, "Session owner pid (default: parent pid)")
	return cmd
}

func newSessionPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "path",
		Short:         "Print the session artifact paths",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionStoreFromFlags(cmd.Flags())
			if err != nil {
				return err
			}

			type resp struct {
				Session      string `json:"session"`
				Log          string `json:"log"`
				ErrorJournal string `json:"error_journal"`
			}
			return output.PrintSuccess(resp{
				Session:      store.Path(),
				Log:          store.LogPath(),
				ErrorJournal: store.JournalPath(),
			})
		},
	}
	cmd.Flags().Int("pid", 0, "Session owner pid (default: parent pid)")
	return cmd
}

func newSessionCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cleanup",
		Short:         "Sweep stale sessions whose owner process has exited",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxAgeSecs, _ := cmd.Flags().GetInt("max-age")
			maxAge := app.EffectiveStaleMaxAge()
			if maxAgeSecs > 0 {
				maxAge = time.Duration(maxAgeSecs) * time.Second
			}

			removed, err := session.CleanupStaleSessions("", maxAge)
			if err != nil {
				return err
			}

			type resp struct {
				Removed       int `json:"removed"`
				MaxAgeSeconds int `json:"max_age_seconds"`
			}
			return output.PrintSuccess(resp{Removed: removed, MaxAgeSeconds: int(maxAge.Seconds())})
		},
	}
	cmd.Flags().Int("max-age", 0, "Stale threshold in seconds (default: config stale_max_age_seconds)")
	return cmd
}

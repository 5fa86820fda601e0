package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/hookstate/internal/output"
	"github.com/dotcommander/hookstate/internal/platform"
	"github.com/dotcommander/hookstate/internal/session"
)

// NewDoctorCmd creates the environment diagnostic command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose the session environment",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			type check struct {
				Name   string `json:"name"`
				OK     bool   `json:"ok"`
				Detail string `json:"detail,omitempty"`
			}
			var checks []check

			checks = append(checks, check{
				Name:   "platform",
				OK:     platform.Detect() != platform.Unknown,
				Detail: string(platform.Detect()),
			})

			root, err := platform.SessionRoot()
			if err != nil {
				checks = append(checks, check{Name: "session_root", Detail: err.Error()})
			} else {
				probe := filepath.Join(root, ".doctor-probe")
				writable := os.WriteFile(probe, []byte("ok"), 0o600) == nil
				_ = os.Remove(probe)
				checks = append(checks, check{Name: "session_root", OK: writable, Detail: root})
			}

			// Lock round-trip against a throwaway target.
			lockTarget := filepath.Join(os.TempDir(), "hookstate-doctor-lock")
			lock, err := session.Acquire(lockTarget, 2*time.Second)
			if err != nil {
				checks = append(checks, check{Name: "advisory_lock", Detail: err.Error()})
			} else {
				lock.Release()
				checks = append(checks, check{Name: "advisory_lock", OK: true})
			}
			_ = os.Remove(lockTarget + ".lock")

			checks = append(checks, check{
				Name: "remote_execution",
				OK:   true,
				Detail: map[bool]string{
					true:  "remote",
					false: "local",
				}[platform.IsRemoteExecution()],
			})

			type resp struct {
				Checks  []check `json:"checks"`
				Healthy bool    `json:"healthy"`
			}
			healthy := true
			for _, c := range checks {
				if !c.OK {
					healthy = false
				}
			}
			return output.PrintSuccess(resp{Checks: checks, Healthy: healthy})
		},
	}
}

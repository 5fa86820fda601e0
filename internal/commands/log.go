package commands

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/hookstate/internal/output"
)

// NewLogCmd creates the log inspection command.
func NewLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the session log and error journal",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newLogTailCmd())
	cmd.AddCommand(newJournalTailCmd())

	return cmd
}

func newLogTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tail",
		Short:         "Print the last lines of the session log",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionStoreFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")

			lines, err := readTailLines(store.LogPath(), n)
			if err != nil && !os.IsNotExist(err) {
				return err
			}

			type resp struct {
				Path  string   `json:"path"`
				Lines []string `json:"lines"`
			}
			return output.PrintSuccess(resp{Path: store.LogPath(), Lines: lines})
		},
	}
	cmd.Flags().Int("pid", 0, "Session owner pid (default: parent pid)")
	cmd.Flags().IntP("lines", "n", 20, "Number of lines to print")
	return cmd
}

func newJournalTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "errors",
		Short:         "Print the last records of the error journal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sessionStoreFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")

			lines, err := readTailLines(store.JournalPath(), n)
			if err != nil && !os.IsNotExist(err) {
				return err
			}

			type resp struct {
				Path    string   `json:"path"`
				Records []string `json:"records"`
			}
			return output.PrintSuccess(resp{Path: store.JournalPath(), Records: lines})
		},
	}
	cmd.Flags().Int("pid", 0, "Session owner pid (default: parent pid)")
	cmd.Flags().IntP("lines", "n", 20, "Number of records to print")
	return cmd
}

// readTailLines reads the last N lines from a file without loading the
// entire file into memory. Seeks to the tail region and scans backward
// for newlines. Falls back to reading the whole file if it's smaller than
// the tail buffer.
func readTailLines(path string, maxLines int) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path derived from the session namespace
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	const tailBufSize = 64 * 1024 // 64 KB
	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	offset := int64(0)
	readSize := size
	if size > tailBufSize {
		offset = size - tailBufSize
		readSize = tailBufSize
	}

	buf := make([]byte, readSize)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	buf = buf[:n]

	raw := strings.TrimRight(string(buf), "\n")
	if raw == "" {
		return nil, nil
	}
	lines := strings.Split(raw, "\n")

	// If we seeked into the middle of the file, the first "line" is likely
	// a partial line — discard it.
	if offset > 0 && len(lines) > 0 {
		lines = lines[1:]
	}

	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	return lines, nil
}

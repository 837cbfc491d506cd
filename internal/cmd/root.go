package cmd

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ferroterm/ferroterm/internal/config"
	"github.com/ferroterm/ferroterm/internal/obslog"
	"github.com/ferroterm/ferroterm/internal/version"
)

// NewRootCmd builds the ferroterm command tree: run wraps a shell in the
// VT/grid/streaming pipeline, models inspects and exercises the
// configured Model Host registry, render previews a composed frame, and
// keys checks remote-adapter credentials.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ferroterm",
		Short: "GPU-fed terminal core with an in-process AI streaming path",
		Long: `ferroterm wraps a child shell in a PTY, parses its output into a cell
grid, and fuses that pipeline with a Model Host so agent commands
stream tokens straight into the same grid the terminal content lives
in.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			refreshTerminalHintsCache()
			return nil
		},
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newModelsCmd(),
		newRenderCmd(),
		newKeysCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ferroterm version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write([]byte(version.DisplayVersion() + "\n"))
			return err
		},
	}
}

// newSessionLogger builds the obslog.Logger a run/models invocation
// shares: one JSONL file per process, keyed by a fresh session ID,
// under the config directory's logs/ subdirectory.
func newSessionLogger(cfg *config.Config) *obslog.Logger {
	sessionID := uuid.NewString()
	dir := filepath.Join(config.ConfigDir(), "logs")
	_ = os.MkdirAll(dir, 0o755)
	return obslog.New(true, filepath.Join(dir, sessionID+".jsonl"), "ferroterm", sessionID)
}

// totalVramMB is the Model Host's VRAM budget. Ferroterm has no GPU
// introspection of its own (the GPU backend is an external renderer,
// not this core's concern), so the budget is the sum of what the
// configured models declare needing; a config with no models gets a
// generous default so registering none never starves a later one.
func totalVramMB(cfg *config.Config) int64 {
	var total int64
	for _, m := range cfg.Models {
		total += m.VramRequiredMB
	}
	if total == 0 {
		return 1 << 20
	}
	return total
}

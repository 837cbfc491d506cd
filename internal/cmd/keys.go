package cmd

import (
	"fmt"
	"os"

	isatty "github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ferroterm/ferroterm/internal/config"
)

// newKeysCmd reports which configured remote models have their
// credential environment variable set, without ever printing the
// credential value itself (adapter.SecureAPIKey's Reveal is never
// called here, only os.LookupEnv's presence check).
func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Check which configured models have a credential available",
	}
	cmd.AddCommand(newKeysCheckCmd())
	return cmd
}

func newKeysCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List each configured model's credential env var and whether it is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			interactive := isatty.IsTerminal(os.Stdout.Fd())
			missing := 0
			for _, m := range cfg.Models {
				if m.APIKeyEnv == "" {
					continue
				}
				if _, ok := os.LookupEnv(m.APIKeyEnv); ok {
					fmt.Fprintf(out, "%-20s %-24s set\n", m.Name, m.APIKeyEnv)
					continue
				}
				missing++
				fmt.Fprintf(out, "%-20s %-24s MISSING\n", m.Name, m.APIKeyEnv)
			}

			if missing > 0 && interactive {
				fmt.Fprintf(out, "\n%d credential(s) missing; export them before running those models.\n", missing)
			}
			return nil
		},
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCmd(version, commit, date string) *cobra.Command {
	var (
		jsonOutput bool
		short      bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			}

			info := map[string]string{
				"module":     modulePath(),
				"version":    version,
				"commit":     commit,
				"built":      date,
				"go_version": runtime.Version(),
				"platform":   runtime.GOOS + "/" + runtime.GOARCH,
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "floodgate %s (%s, built %s)\n", version, commit, date)
			fmt.Fprintf(cmd.OutOrStdout(), "  module:   %s\n", info["module"])
			fmt.Fprintf(cmd.OutOrStdout(), "  go:       %s\n", info["go_version"])
			fmt.Fprintf(cmd.OutOrStdout(), "  platform: %s\n", info["platform"])
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")

	return cmd
}

// modulePath reads the main module path from build info, falling back to the
// canonical path for binaries built without module metadata.
func modulePath() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Path != "" {
		return bi.Main.Path
	}
	return "github.com/floodgatehq/floodgate"
}

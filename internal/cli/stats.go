package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/memori-store/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show namespace statistics",
		Run:   runStats,
	}

	cmd.Flags().Bool("include-expired", false, "Count expired short-term memories as active")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	includeExpired, _ := cmd.Flags().GetBool("include-expired")

	e, cfg := openEngine()
	defer e.Close()

	stats, err := e.GetStats(cmd.Context(), cfg.Namespace, memory.StatsOptions{IncludeExpired: includeExpired})
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(cmd, stats)
}

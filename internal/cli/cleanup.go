package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired short-term memories",
		Run:   runCleanup,
	}

	RootCmd.AddCommand(cmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	e, cfg := openEngine()
	defer e.Close()

	n, err := e.CleanupExpired(cmd.Context(), cfg.Namespace)
	if err != nil {
		exitErr("cleanup", err)
	}
	printJSON(cmd, map[string]any{"ok": true, "namespace": cfg.Namespace, "deleted": n})
}

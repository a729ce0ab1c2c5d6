package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve a long-term memory by ID",
		Run:   runGet,
	}

	cmd.Flags().String("id", "", "Memory ID (required)")
	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")

	e, cfg := openEngine()
	defer e.Close()

	m, err := e.GetLongTermMemory(cmd.Context(), cfg.Namespace, id)
	if err != nil {
		exitErr("get", err)
	}
	printJSON(cmd, m)
}

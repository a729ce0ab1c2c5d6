package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent chat interactions",
		Run:   runHistory,
	}

	cmd.Flags().StringP("session", "s", "", "Filter by session ID")
	cmd.Flags().IntP("limit", "l", 10, "Max results")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	limit, _ := cmd.Flags().GetInt("limit")

	e, cfg := openEngine()
	defer e.Close()

	chats, err := e.GetChatHistory(cmd.Context(), cfg.Namespace, session, limit)
	if err != nil {
		exitErr("history", err)
	}
	if chats == nil {
		printJSON(cmd, []any{})
		return
	}
	printJSON(cmd, chats)
}

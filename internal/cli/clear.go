package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/memori-store/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all records in a namespace",
		Long:  "Delete every record of one kind, or of all kinds, in the namespace. Irreversible.",
		Run:   runClear,
	}

	cmd.Flags().StringP("kind", "k", "", "Kind: chat_history, short_term or long_term (default: all)")
	cmd.Flags().Bool("yes", false, "Confirm deletion")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	kindStr, _ := cmd.Flags().GetString("kind")
	yes, _ := cmd.Flags().GetBool("yes")

	var kind model.Kind
	if kindStr != "" {
		k, err := model.ParseKind(kindStr)
		if err != nil {
			exitErr("clear", err)
		}
		kind = k
	}
	if !yes {
		exitErr("clear", fmt.Errorf("refusing to delete without --yes"))
	}

	e, cfg := openEngine()
	defer e.Close()

	n, err := e.Clear(cmd.Context(), cfg.Namespace, kind)
	if err != nil {
		exitErr("clear", err)
	}
	printJSON(cmd, map[string]any{"ok": true, "namespace": cfg.Namespace, "deleted": n})
}

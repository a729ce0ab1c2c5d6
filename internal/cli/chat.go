package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rcliao/memori-store/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Record a chat interaction",
		Long:  "Record one user/assistant exchange. Re-using --id replaces the earlier record.",
		Run:   runChat,
	}

	cmd.Flags().String("id", "", "Chat ID (generated if empty)")
	cmd.Flags().StringP("user", "u", "", "User input (required)")
	cmd.Flags().StringP("ai", "a", "", "AI output (required)")
	cmd.Flags().StringP("model", "m", "", "Model name")
	cmd.Flags().StringP("session", "s", "", "Session ID")
	cmd.Flags().Int("tokens", 0, "Tokens used")
	cmd.Flags().String("meta", "", "JSON metadata object")

	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("ai")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	user, _ := cmd.Flags().GetString("user")
	ai, _ := cmd.Flags().GetString("ai")
	modelName, _ := cmd.Flags().GetString("model")
	session, _ := cmd.Flags().GetString("session")
	tokens, _ := cmd.Flags().GetInt("tokens")
	meta, _ := cmd.Flags().GetString("meta")

	var metadata map[string]any
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			exitErr("parse --meta", err)
		}
	}

	e, cfg := openEngine()
	defer e.Close()

	chatID, err := e.StoreChatInteraction(cmd.Context(), model.ChatInteraction{
		ChatID:     id,
		UserInput:  user,
		AIOutput:   ai,
		Model:      modelName,
		SessionID:  session,
		Namespace:  cfg.Namespace,
		TokensUsed: tokens,
		Metadata:   metadata,
	})
	if err != nil {
		exitErr("chat", err)
	}

	printJSON(cmd, map[string]any{"ok": true, "chat_id": chatID, "namespace": cfg.Namespace})
}

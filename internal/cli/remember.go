package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/memori-store/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a memory",
		Long:  "Store a short-term or long-term memory. Content can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("kind", "k", "short_term", "Kind: short_term or long_term")
	cmd.Flags().String("category", "", "Primary category")
	cmd.Flags().Float64P("importance", "i", 0.5, "Importance between 0 and 1")
	cmd.Flags().String("summary", "", "Summary (defaults to the content)")
	cmd.Flags().String("chat", "", "Originating chat ID")
	cmd.Flags().Bool("permanent", false, "Mark as permanent context")
	cmd.Flags().String("ttl", "", "Short-term expiry, e.g. 7d, 24h, 30m")
	cmd.Flags().String("topic", "", "Long-term topic")
	cmd.Flags().String("classification", "", "Long-term classification")
	cmd.Flags().StringSlice("entities", nil, "Long-term entities (comma-separated)")
	cmd.Flags().StringSlice("keywords", nil, "Long-term keywords (comma-separated)")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	kindStr, _ := cmd.Flags().GetString("kind")
	category, _ := cmd.Flags().GetString("category")
	importance, _ := cmd.Flags().GetFloat64("importance")
	summary, _ := cmd.Flags().GetString("summary")
	chatID, _ := cmd.Flags().GetString("chat")
	permanent, _ := cmd.Flags().GetBool("permanent")
	ttl, _ := cmd.Flags().GetString("ttl")
	topic, _ := cmd.Flags().GetString("topic")
	classification, _ := cmd.Flags().GetString("classification")
	entities, _ := cmd.Flags().GetStringSlice("entities")
	keywords, _ := cmd.Flags().GetStringSlice("keywords")

	kind, err := model.ParseKind(kindStr)
	if err != nil || kind == model.KindChat {
		exitErr("remember", fmt.Errorf("--kind must be short_term or long_term, got %q", kindStr))
	}

	content := readContent(args)
	if content == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}
	if summary == "" {
		summary = content
	}

	e, cfg := openEngine()
	defer e.Close()

	base := model.Memory{
		ChatID:             chatID,
		Namespace:          cfg.Namespace,
		CategoryPrimary:    category,
		ImportanceScore:    importance,
		SearchableContent:  content,
		Summary:            summary,
		IsPermanentContext: permanent,
	}

	var id string
	if kind == model.KindShortTerm {
		m := model.ShortTermMemory{Memory: base}
		if ttl != "" {
			d, err := parseTTL(ttl)
			if err != nil {
				exitErr("remember", err)
			}
			at := time.Now().Add(d).UTC()
			m.ExpiresAt = &at
		}
		id, err = e.StoreShortTermMemory(cmd.Context(), m)
	} else {
		id, err = e.StoreLongTermMemory(cmd.Context(), model.LongTermMemory{
			Memory:         base,
			Topic:          topic,
			Classification: classification,
			Entities:       entities,
			Keywords:       keywords,
		})
	}
	if err != nil {
		exitErr("remember", err)
	}

	printJSON(cmd, map[string]any{"ok": true, "memory_id": id, "memory_type": kind, "namespace": cfg.Namespace})
}

// readContent joins the positional args, or reads stdin when it is piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return strings.TrimSpace(string(b))
	}
	return ""
}

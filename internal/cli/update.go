package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/memori-store/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update fields of a long-term memory",
		Long:  "Update fields of a long-term memory. Only flags that are given are changed.",
		Run:   runUpdate,
	}

	cmd.Flags().String("id", "", "Memory ID (required)")
	cmd.Flags().String("content", "", "Searchable content")
	cmd.Flags().String("summary", "", "Summary")
	cmd.Flags().String("category", "", "Primary category")
	cmd.Flags().String("topic", "", "Topic")
	cmd.Flags().Float64("importance", 0, "Importance between 0 and 1")
	cmd.Flags().Bool("conscious-processed", false, "Mark as processed by conscious ingestion")
	cmd.Flags().Bool("duplicates-processed", false, "Mark as checked for duplicates")
	cmd.Flags().Bool("promotion-eligible", false, "Mark as eligible for promotion")
	cmd.Flags().String("duplicate-of", "", "ID of the memory this duplicates")

	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	flags := cmd.Flags()

	var patch model.LongTermPatch
	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	boolean := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetBool(name)
		return &v
	}

	patch.SearchableContent = str("content")
	patch.Summary = str("summary")
	patch.CategoryPrimary = str("category")
	patch.Topic = str("topic")
	patch.DuplicateOf = str("duplicate-of")
	patch.ConsciousProcessed = boolean("conscious-processed")
	patch.ProcessedForDuplicates = boolean("duplicates-processed")
	patch.PromotionEligible = boolean("promotion-eligible")
	if flags.Changed("importance") {
		v, _ := flags.GetFloat64("importance")
		patch.ImportanceScore = &v
	}

	if patch.Empty() {
		exitErr("update", fmt.Errorf("nothing to update"))
	}

	e, cfg := openEngine()
	defer e.Close()

	ok, err := e.UpdateLongTermMemory(cmd.Context(), cfg.Namespace, id, patch)
	if err != nil {
		exitErr("update", err)
	}
	printJSON(cmd, map[string]any{"ok": ok, "memory_id": id, "namespace": cfg.Namespace})
}

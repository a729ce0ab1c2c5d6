package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memori-store/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories",
		Long:  "Search short-term and long-term memories. Without a query, returns the most important recent memories.",
		Run:   runSearch,
	}

	cmd.Flags().StringSlice("category", nil, "Filter by primary category (repeatable)")
	cmd.Flags().IntP("limit", "l", memory.DefaultSearchLimit, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	categories, _ := cmd.Flags().GetStringSlice("category")
	limit, _ := cmd.Flags().GetInt("limit")

	e, cfg := openEngine()
	defer e.Close()

	results, err := e.Search(cmd.Context(), memory.SearchRequest{
		Query:      strings.Join(args, " "),
		Namespace:  cfg.Namespace,
		Categories: categories,
		Limit:      limit,
	})
	if err != nil {
		exitErr("search", err)
	}
	if len(results) == 0 {
		printJSON(cmd, []any{})
		return
	}
	printJSON(cmd, results)
}

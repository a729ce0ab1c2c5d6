package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the connected store",
		Run:   runInfo,
	}

	RootCmd.AddCommand(cmd)
}

func runInfo(cmd *cobra.Command, args []string) {
	e, _ := openEngine()
	defer e.Close()

	info, err := e.Info(cmd.Context())
	if err != nil {
		exitErr("info", err)
	}
	printJSON(cmd, info)
}

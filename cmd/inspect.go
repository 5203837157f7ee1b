package cmd

import (
	"github.com/spf13/cobra"

	"tracegen/internal/cli"
)

var (
	inspectPlatform string
	inspectWorkload string
	inspectCSV      string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Check and summarise existing documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Inspect(inspectPlatform, inspectWorkload, inspectCSV, cmd.OutOrStdout())
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectWorkload, "workload", "w", "", "Workload JSON to read")
	inspectCmd.Flags().StringVarP(&inspectPlatform, "platform", "p", "", "Platform XML to read")
	inspectCmd.Flags().StringVar(&inspectCSV, "csv", "", "Also write the job table as CSV")
	inspectCmd.MarkFlagRequired("workload")
}

package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tracegen/internal/cli"
	"tracegen/internal/tui/history"
)

var (
	historyPlain bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyPlain {
			return cli.PrintHistory(historyPath, historyLimit, cmd.OutOrStdout())
		}

		items, err := cli.ListHistory(historyPath, historyLimit)
		if err != nil {
			return err
		}
		p := tea.NewProgram(history.NewModel(items), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return errors.Wrap(err, "running history browser")
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run and check its files against the recorded digests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ShowItem(historyPath, args[0], cmd.OutOrStdout())
	},
}

var (
	replayPlatform string
	replayWorkload string
)

var historyReplayCmd = &cobra.Command{
	Use:   "replay <id>",
	Short: "Regenerate a recorded run from its stored parameters and seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cli.Replay(args[0], replayPlatform, replayWorkload, cli.Options{
			HistoryPath: historyPath,
			Quiet:       quiet,
			Out:         cmd.OutOrStdout(),
		})
		return err
	},
}

func init() {
	historyCmd.AddCommand(historyShowCmd, historyReplayCmd)
	historyReplayCmd.Flags().StringVarP(&replayPlatform, "platform", "p", "", "Platform output path (default is the recorded path)")
	historyReplayCmd.Flags().StringVarP(&replayWorkload, "workload", "w", "", "Workload output path (default is the recorded path)")
	historyReplayCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the report")
	historyCmd.Flags().BoolVar(&historyPlain, "plain", false, "Print a plain table instead of the browser")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Show at most this many runs (0 for all)")
}

package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tracegen/internal/banner"
	"tracegen/internal/cli"
	"tracegen/internal/config"
)

var (
	cfgFile     string
	historyPath string
	noHistory   bool
	verbose     bool
	quiet       bool

	// CLI Flags
	machines     int
	jobs         int
	seed         uint64
	platformPath string
	workloadPath string
	rejectLimit  int
)

var rootCmd = &cobra.Command{
	Use:   "tracegen",
	Short: "tracegen - synthetic platforms and workloads for Batsim",
	Long: `
tracegen draws a random SimGrid platform and a heavy-tailed job trace for it.

Both documents come from one seeded generator, so the same seed and
parameter table always produce the same files. The run is summarised on
stdout and recorded in ~/.tracegen/history.db.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		_, err = cli.Generate(cfg, cli.Options{
			HistoryPath: historyPath,
			NoHistory:   noHistory,
			Quiet:       quiet,
			Out:         cmd.OutOrStdout(),
		})
		return err
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("tracegen failed")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(paramsCmd, inspectCmd, historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.tracegen.yaml or $HOME/.tracegen.yaml)")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "history database (default is $HOME/.tracegen/history.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	addGenerateFlags(rootCmd)
	addGenerateFlags(paramsCmd)
	rootCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the run")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the report")
}

// addGenerateFlags registers the parameter overrides on c. Commands that
// print or use the effective table share them.
func addGenerateFlags(c *cobra.Command) {
	c.Flags().IntVarP(&machines, "machines", "n", config.DefaultMachines, "Number of compute hosts")
	c.Flags().IntVarP(&jobs, "jobs", "j", config.DefaultJobs, "Number of jobs")
	c.Flags().Uint64Var(&seed, "seed", 0, "Generator seed (default draws one from system entropy)")
	c.Flags().StringVarP(&platformPath, "platform", "p", "", "Platform output path (default <n>machines.xml)")
	c.Flags().StringVarP(&workloadPath, "workload", "w", "", "Workload output path (default <m>jobs.json)")
	c.Flags().IntVar(&rejectLimit, "reject-limit", 0, "Clamp a bounded draw after this many rejections (0 never clamps)")
}

func initLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// loadConfig layers the config file and TRACEGEN_* variables over the
// defaults, then applies the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v, err := config.NewViper()
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ReadFile(v, cfgFile); err != nil {
		return config.Config{}, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.WithField("path", used).Debug("config file loaded")
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("machines") {
		cfg.Machines = machines
	}
	if flags.Changed("jobs") {
		cfg.Jobs = jobs
	}
	if flags.Changed("seed") {
		s := seed
		cfg.Seed = &s
	}
	if flags.Changed("platform") {
		cfg.PlatformPath = platformPath
	}
	if flags.Changed("workload") {
		cfg.WorkloadPath = workloadPath
	}
	if flags.Changed("reject-limit") {
		cfg.RejectLimit = rejectLimit
	}
	return cfg, nil
}

package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tracegen/internal/config"
)

var paramsOut string

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the effective parameter table as YAML",
	Long: `Print the parameter table after the config file, TRACEGEN_* variables
and flags have been applied. The output is a valid --config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			log.WithError(err).Warn("parameter table would be rejected by generate")
		}

		if paramsOut != "" {
			if err := config.WriteFile(paramsOut, cfg); err != nil {
				return err
			}
			log.WithField("path", paramsOut).Info("parameters written")
			return nil
		}

		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	paramsCmd.Flags().StringVarP(&paramsOut, "out", "o", "", "Write the table to a file instead of stdout")
}

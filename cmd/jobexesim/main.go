package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobexesim",
		Short: "jobexesim runs job executions task by task in a simulated cluster",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		interval   time.Duration
		timeout    time.Duration
		logCfg     LogConfig
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the job executions of a config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(logCfg)
			defer log.Sync()

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			results, err := simulate(ctx, cfg, interval, log)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	defaultConfig := os.Getenv("JOBEXESIM_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config/sim.toml"
	}
	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", defaultConfig, "simulation config file")
	flags.DurationVar(&interval, "interval", 100*time.Millisecond, "interval between scheduling rounds")
	flags.DurationVar(&timeout, "timeout", time.Minute, "maximum time for the simulation")
	flags.BoolVar(&logCfg.Debug, "debug", false, "print debug logs")
	flags.BoolVar(&logCfg.JSON, "json", false, "print logs as json")
	flags.StringVar(&logCfg.File, "log-file", "", "additionally write logs to the file")
	flags.IntVar(&logCfg.MaxSize, "log-max-size", 100, "rotate the log file when it grows bigger than this, in megabytes")
	flags.IntVar(&logCfg.MaxBackups, "log-max-backups", 3, "number of rotated log files to keep")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/dominicf2001/comfyforum/internal/config"
	"github.com/dominicf2001/comfyforum/internal/logging"
)

// NewRootCmd creates the root command. Every subcommand accepts the
// configuration flags.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "comfyforum",
		Short:         "Threaded discussion forum",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

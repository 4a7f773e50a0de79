package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dominicf2001/comfyforum/internal/database"
	"github.com/dominicf2001/comfyforum/internal/forum"
)

type seedConfig struct {
	id   string
	name string
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a forum",
		Long: `Creates a forum document. Running it again with the same id
leaves the existing forum untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.id, "id", "", "forum id, used in URLs")
	cmd.Flags().StringVar(&cfg.name, "name", "", "forum display name")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runSeed(cmd *cobra.Command, cfg *seedConfig) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(appCfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := forum.NewThreads(store).CreateForum(cmd.Context(), cfg.id, cfg.name)
	if errors.Is(err, database.ErrConflict) {
		cmd.Printf("Forum %q already exists, skipping seed\n", cfg.id)
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Printf("Created forum %q (%s)\n", f.Id, f.Name)
	return nil
}

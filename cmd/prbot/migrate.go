package main

import (
	"github.com/spf13/cobra"

	"github.com/sharingcloud/prbot/config"
	storagesql "github.com/sharingcloud/prbot/storage/sql"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the storage schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" && cfg.Storage.Driver != "sql" {
				return nil
			}
			store, err := storagesql.Open(cfg.Storage.ConnectionString)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Migrate()
		},
	}
}

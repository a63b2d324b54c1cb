package cmd

import (
	"fmt"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/db"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSQL()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(); err != nil {
				return fmt.Errorf("error initializing database schema: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", store.Driver())
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo campus into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSQL()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(); err != nil {
				return fmt.Errorf("error initializing database schema: %w", err)
			}
			if err := db.SeedData(store.DB(), store.Driver(), db.DemoFixture(time.Now())); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "demo data loaded")
			return nil
		},
	}
}

// openSQL opens the configured SQL store. The memory driver has nothing to
// migrate or seed.
func openSQL() (*db.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == db.DriverMemory {
		return nil, fmt.Errorf("database.driver is memory; nothing to persist")
	}
	return db.Open(dbConfig(cfg))
}

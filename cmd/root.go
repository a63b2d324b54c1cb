package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/config"
	"github.com/dev-brewery/koinon-rms-sub010/db"
	"github.com/dev-brewery/koinon-rms-sub010/models"
	"github.com/dev-brewery/koinon-rms-sub010/routes"

	"github.com/spf13/cobra"
)

var Version = "dev"

var configPath string

// backend is a store that serves check-in, the HTTP layer and kiosk
// registration. Implementations: db.Store, db.MemoryStore.
type backend interface {
	checkin.Store
	routes.Backend
	InsertKiosk(ctx context.Context, k *models.Kiosk) error
	GetKiosk(ctx context.Context, id string) (*models.Kiosk, error)
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "checkin",
		Short:         "Children's ministry check-in service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a yaml config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(kioskCmd())
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBackend connects to the configured store, applies the schema and
// seeds the demo campus when database.seed is set. The memory driver is
// always seeded since it starts empty.
func openBackend(cfg *config.Config) (backend, func() error, error) {
	if cfg.Database.Driver == db.DriverMemory {
		store := db.NewMemoryStore()
		store.Load(db.DemoFixture(time.Now()))
		log.Println("using in-memory store with demo data")
		return store, func() error { return nil }, nil
	}

	store, err := db.Open(dbConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	if cfg.Database.Seed {
		if err := db.SeedData(store.DB(), store.Driver(), db.DemoFixture(time.Now())); err != nil {
			log.Printf("Warning: Error seeding initial data: %v", err)
		}
	}
	return store, store.Close, nil
}

func dbConfig(cfg *config.Config) db.Config {
	return db.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
	}
}

func serviceOptions(cfg *config.Config) (checkin.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return checkin.Options{}, err
	}
	return checkin.Options{
		Location:           loc,
		SearchFloor:        cfg.Checkin.SearchFloor,
		CodeLength:         cfg.Checkin.CodeLength,
		CodeAttempts:       cfg.Checkin.CodeAttempts,
		OccurrenceAttempts: cfg.Checkin.OccurrenceAttempts,
		PickupMaxFailures:  cfg.Pickup.MaxFailures,
		PickupWindow:       cfg.Pickup.Window,
	}, nil
}

var (
	_ backend = (*db.Store)(nil)
	_ backend = (*db.MemoryStore)(nil)
)

package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func kioskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kiosk",
		Short: "Manage kiosk registrations",
	}

	var campusID int64
	var locationIDs []int64
	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Register a kiosk and print its id and secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openBackend(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			kiosk, secret, err := registerKiosk(cmd.Context(), store, args[0], campusID, locationIDs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kiosk id: %s\nsecret:   %s\n", kiosk.ID, secret)
			return nil
		},
	}
	addCmd.Flags().Int64Var(&campusID, "campus", 0, "campus id the kiosk serves (0 = all)")
	addCmd.Flags().Int64SliceVar(&locationIDs, "location", nil, "room ids the kiosk may check into (repeatable)")
	cmd.AddCommand(addCmd)

	return cmd
}

type kioskWriter interface {
	InsertKiosk(ctx context.Context, k *models.Kiosk) error
}

func registerKiosk(ctx context.Context, store kioskWriter, name string, campusID int64, locationIDs []int64) (*models.Kiosk, string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("error generating secret: %w", err)
	}
	secret := hex.EncodeToString(raw)

	hash, err := middleware.HashPassword(secret)
	if err != nil {
		return nil, "", fmt.Errorf("error hashing secret: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	kiosk := &models.Kiosk{
		ID:          uuid.NewString(),
		Name:        name,
		CampusID:    campusID,
		LocationIDs: locationIDs,
		SecretHash:  hash,
		CreatedAt:   time.Now(),
	}
	if err := store.InsertKiosk(ctx, kiosk); err != nil {
		return nil, "", fmt.Errorf("error registering kiosk: %w", err)
	}
	return kiosk, secret, nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

func (s *Store) InsertKiosk(ctx context.Context, k *models.Kiosk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kiosks (id, name, campus_id, secret_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, k.ID, k.Name, k.CampusID, k.SecretHash, k.CreatedAt.UTC())
	if s.d.isUniqueViolation(err) {
		return models.ErrUniqueViolation
	}
	if err != nil {
		return fmt.Errorf("error creating kiosk: %w", err)
	}

	for _, locationID := range uniqueIDs(k.LocationIDs) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kiosk_locations (kiosk_id, location_id) VALUES ($1, $2)
		`, k.ID, locationID); err != nil {
			return fmt.Errorf("error assigning kiosk location: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (s *Store) GetKiosk(ctx context.Context, id string) (*models.Kiosk, error) {
	var k models.Kiosk
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, campus_id, secret_hash, created_at FROM kiosks WHERE id = $1
	`, id).Scan(&k.ID, &k.Name, &k.CampusID, &k.SecretHash, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT location_id FROM kiosk_locations WHERE kiosk_id = $1 ORDER BY location_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	k.LocationIDs = []int64{}
	for rows.Next() {
		var locationID int64
		if err := rows.Scan(&locationID); err != nil {
			return nil, err
		}
		k.LocationIDs = append(k.LocationIDs, locationID)
	}
	return &k, rows.Err()
}

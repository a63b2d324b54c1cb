package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleKiosk = "kiosk"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Claims scope a bearer token to a campus and a set of rooms. A zero
// CampusID or an empty LocationIDs list means unrestricted.
type Claims struct {
	Subject     string  `json:"sub_id"`
	Role        string  `json:"role"`
	CampusID    int64   `json:"campus_id,omitempty"`
	LocationIDs []int64 `json:"location_ids,omitempty"`
	jwt.RegisteredClaims
}

type Kiosk struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CampusID    int64     `json:"campus_id"`
	LocationIDs []int64   `json:"location_ids"`
	SecretHash  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type KioskTokenRequest struct {
	KioskID string `json:"kiosk_id" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const claimsKey = "claims"

var ErrInvalidCredentials = errors.New("invalid kiosk credentials")

// AuthMiddleware creates a gin middleware for JWT authentication
func AuthMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be in the format: Bearer {token}"})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1], jwtSecret)
		if err != nil {
			log.Printf("Token validation error: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects tokens whose role is not in roles. Must run after
// AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims != nil {
			for _, role := range roles {
				if claims.Role == role {
					c.Next()
					return
				}
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}

// ClaimsFrom returns the claims set by AuthMiddleware, or nil.
func ClaimsFrom(c *gin.Context) *models.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*models.Claims)
	return claims
}

func ParseToken(tokenString string, jwtSecret []byte) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type KioskStore interface {
	GetKiosk(ctx context.Context, id string) (*models.Kiosk, error)
}

// TokenService handles token generation for kiosks and operators
type TokenService struct {
	Kiosks    KioskStore
	JWTSecret []byte
	TTL       time.Duration
	Now       func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(kiosks KioskStore, jwtSecret []byte, ttl time.Duration) *TokenService {
	return &TokenService{
		Kiosks:    kiosks,
		JWTSecret: jwtSecret,
		TTL:       ttl,
		Now:       time.Now,
	}
}

// Issue signs claims with the service TTL.
func (s *TokenService) Issue(claims models.Claims) (*models.TokenResponse, error) {
	now := s.Now()
	expiresAt := now.Add(s.TTL)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("error signing token: %w", err)
	}
	return &models.TokenResponse{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

// IssueKioskToken exchanges a kiosk id and secret for a token scoped to the
// kiosk's campus and rooms. Unknown kiosks and bad secrets give the same
// error.
func (s *TokenService) IssueKioskToken(ctx context.Context, kioskID, secret string) (*models.TokenResponse, error) {
	kiosk, err := s.Kiosks.GetKiosk(ctx, kioskID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("error loading kiosk: %w", err)
	}
	if !VerifyPassword(kiosk.SecretHash, secret) {
		return nil, ErrInvalidCredentials
	}
	return s.Issue(models.Claims{
		Subject:     kiosk.ID,
		Role:        models.RoleKiosk,
		CampusID:    kiosk.CampusID,
		LocationIDs: kiosk.LocationIDs,
	})
}

// VerifyPassword checks if a password matches the hashed version
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// HashPassword creates a bcrypt hash of a password
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

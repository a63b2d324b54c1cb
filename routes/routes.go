package routes

import (
	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/handlers"
	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Backend is what the HTTP layer needs from a store beyond the check-in
// service. Implementations: db.Store, db.MemoryStore.
type Backend interface {
	middleware.ScopeLookup
	handlers.Pinger
}

type Dependencies struct {
	Service        *checkin.Service
	Backend        Backend
	Tokens         *middleware.TokenService
	JWTSecret      []byte
	AllowedOrigins []string
}

// NewRouter builds the engine with CORS and every route.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	config := cors.DefaultConfig()
	if len(deps.AllowedOrigins) == 0 || (len(deps.AllowedOrigins) == 1 && deps.AllowedOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = deps.AllowedOrigins
	}
	config.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
	}
	config.AllowMethods = []string{
		"GET",
		"POST",
	}
	config.ExposeHeaders = []string{"Retry-After"}
	r.Use(cors.New(config))

	SetupRoutes(r, deps)
	return r
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.Backend, func() string { return deps.Service.Today().String() })
	authHandler := handlers.NewAuthHandler(deps.Tokens)
	checkinHandler := handlers.NewCheckinHandler(deps.Service, deps.Backend)
	searchHandler := handlers.NewSearchHandler(deps.Service, deps.Backend)
	pickupHandler := handlers.NewPickupHandler(deps.Service, deps.Backend)
	locationHandler := handlers.NewLocationHandler(deps.Service, deps.Backend)

	// Public routes
	r.GET("/health", healthHandler.HealthCheck)
	r.POST("/kiosk/token", authHandler.KioskToken)

	// Protected routes
	protected := r.Group("/")
	protected.Use(
		middleware.AuthMiddleware(deps.JWTSecret),
		middleware.RequireRole(models.RoleKiosk, models.RoleStaff, models.RoleAdmin),
	)
	{
		// Search and labels
		protected.GET("/search", searchHandler.Search)
		protected.POST("/labels", searchHandler.Labels)

		// Check-in routes
		protected.POST("/checkin", checkinHandler.CheckIn)
		protected.POST("/checkin/family", checkinHandler.FamilyCheckIn)
		protected.POST("/attendance/:id/checkout", checkinHandler.CheckOut)

		// Pickup
		protected.POST("/pickup/verify", pickupHandler.Verify)

		// Rooms
		protected.GET("/locations/:id/occupancy", locationHandler.Occupancy)
	}
}

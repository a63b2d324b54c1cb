package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/config"
	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the check-in HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	store, closeStore, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts, err := serviceOptions(cfg)
	if err != nil {
		return err
	}
	svc := checkin.NewService(store, checkin.SystemClock(), opts)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtSecret := []byte(cfg.Auth.JWTSecret)
	r := routes.NewRouter(routes.Dependencies{
		Service:        svc,
		Backend:        store,
		Tokens:         middleware.NewTokenService(store, jwtSecret, cfg.Auth.TokenTTL),
		JWTSecret:      jwtSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go pruneLimiter(ctx, svc.Limiter, cfg.Pickup.PruneInterval)

	// Run server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return err
	}
	return nil
}

func pruneLimiter(ctx context.Context, limiter *checkin.PickupRateLimiter, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(); n > 0 {
				log.Printf("pickup limiter: pruned %d idle entries", n)
			}
		}
	}
}

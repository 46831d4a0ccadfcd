package main // Entry point package

import (
	"context" // Context for startup deadlines
	"log"     // Logging library
	"time"    // Timeouts

	"github.com/joho/godotenv" // Loads .env files into the environment
	"github.com/labstack/echo/v4"

	"github.com/davidfromkent/coffee-ratings/internal/config"     // Internal config loader
	"github.com/davidfromkent/coffee-ratings/internal/database"   // Database connection and schema
	"github.com/davidfromkent/coffee-ratings/internal/geocode"    // Reverse geocoding client
	"github.com/davidfromkent/coffee-ratings/internal/handler"    // HTTP handlers
	"github.com/davidfromkent/coffee-ratings/internal/middleware" // Identity, cache and rate-limit middleware
	"github.com/davidfromkent/coffee-ratings/internal/queue"      // Review event consumer
	"github.com/davidfromkent/coffee-ratings/internal/repository" // Data access layer
	"github.com/davidfromkent/coffee-ratings/internal/router"     // Route registration
	queue_publisher "github.com/davidfromkent/coffee-ratings/internal/service"
)

func main() {
	// Load variables from a local .env file when present. Missing files
	// are fine; production supplies real environment variables.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema setup failed: %v", err)
	}
	cancel()

	// Redis is optional. A nil client disables response caching, rate
	// limiting and the geocoder's lookup cache but never blocks startup.
	rdb := config.NewRedisClient()

	// The consumer appends committed review events to a local log. It
	// reconnects on its own; a missing broker only disables the feed.
	go func() {
		if err := queue.StartReviewConsumer(); err != nil {
			log.Printf("review consumer stopped: %v", err)
		}
	}()

	venues := repository.NewVenueRepo(db)
	reviews := repository.NewReviewRepo(db)

	// geocode.New returns a nil *Client when the geocoder is disabled.
	// Assign through the interface only when non-nil so the handler's
	// nil check keeps working.
	var geo handler.Geocoder
	if gc := geocode.New(config.LoadGeocoderConfig(), rdb); gc != nil {
		geo = gc
	}

	reviewHandler := handler.NewReviewHandler(venues, reviews, geo, queue_publisher.PublishReviewRecorded)
	identityHandler := &handler.IdentityHandler{Secret: cfg.IdentitySecret}
	publicHandler := &handler.PublicHandler{Venues: venues, Reviews: reviews}

	e := echo.New()
	e.Use(middleware.ExtractIdentity()) // Make X-Identity-Token visible to handlers and the rate limiter

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)                                          // Health check
	router.RegisterReviews(e, reviewHandler, identityHandler, rateLimit) // Identity minting and review mutations
	router.RegisterPublic(e, publicHandler, cache)                    // Read-only browse endpoints

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}

package main // Entry point package

import (
	"context"
	"log" // Logging library
	"time"

	"github.com/joho/godotenv"    // Loads variables from a .env file in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/train-seat-booking/internal/booking"
	"github.com/iliyamo/train-seat-booking/internal/config" // Internal config loader
	"github.com/iliyamo/train-seat-booking/internal/database"
	"github.com/iliyamo/train-seat-booking/internal/handler"
	"github.com/iliyamo/train-seat-booking/internal/queue"
	"github.com/iliyamo/train-seat-booking/internal/repository"
	"github.com/iliyamo/train-seat-booking/internal/router" // Internal router setup
)

func main() {
	// Load .env if present; in production the variables come from the
	// environment directly, so a missing file is not an error.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	seatRepo := repository.NewSeatRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	// Seed the seat ledger on first start.  EnsureLayout is a no-op when
	// the table already holds rows, so restarts never duplicate seats.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := seatRepo.EnsureLayout(ctx, cfg.TotalSeats, cfg.SeatsPerRow); err != nil {
			cancel()
			log.Fatalf("seat layout: %v", err)
		}
		cancel()
	}

	engine := booking.NewEngine(db, seatRepo)

	// Redis is optional: a nil client turns off the occupancy cache and
	// the rate limiter degrades to a passthrough.
	rdb := config.NewRedisClient()
	rlCfg := config.LoadRateLimitConfig()

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	bookingHandler := handler.NewBookingHandler(engine, rdb, cfg.SeatsPerRow)
	occupancyHandler := handler.NewOccupancyHandler(seatRepo, rdb)

	// The consumer reconnects on its own; it must never take the API down.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterBooking(e, bookingHandler, occupancyHandler, cfg.JWTSecret, rlCfg, rdb)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}

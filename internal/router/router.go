package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/train-seat-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session (register, login, refresh).  Each of
	// these handlers is responsible for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to refresh access tokens at /v1/auth/refresh.
	// This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to log out using a refresh token.  The handler
	// accepts a JSON body containing a `refresh_token` and invalidates it, so
	// no JWT is required.
	g.POST("/logout", a.Logout)

	// Create another group for routes that require a valid access token.  All
	// handlers registered on this group will execute the JWTAuth middleware
	// before being invoked.  Protected endpoints live under /v1.
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Reject requests whose tokens carry a missing or unknown role.
	auth.Use(middleware.RequireRole("PASSENGER", "ADMIN"))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)
}

// RegisterBooking registers the seat booking endpoints.  Mutating routes
// require a valid access token; book and cancel additionally pass through
// the redis rate limiter, and reset is restricted to admins.  The occupancy
// listing is public so that anyone can inspect availability before
// registering.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, o *handler.OccupancyHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	// Public read-only seat map.  No JWT, no rate limit.
	e.GET("/v1/seats", o.List)

	// Protected booking group.  Both roles may book and cancel their own
	// seats; the limiter throttles per caller so one hot client cannot
	// starve the row locks for everyone else.
	seats := e.Group("/v1/seats")
	seats.Use(middleware.JWTAuth(jwtSecret))
	seats.Use(middleware.RequireRole("PASSENGER", "ADMIN"))
	seats.Use(middleware.RateLimit(rlCfg, rdb))
	seats.POST("/book", b.BookSeats)
	seats.DELETE("/:id", b.Cancel)

	// Bulk reset wipes every occupancy in one transaction.  Admin only,
	// and deliberately outside the rate-limited group: an operator
	// recovering the coach should never be throttled.
	admin := e.Group("/v1/seats/reset")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("", b.Reset)
}

package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/curbshare/parking-backend/internal/api"
	"github.com/curbshare/parking-backend/internal/auth"
	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/booking"
	bookingHttp "github.com/curbshare/parking-backend/internal/booking/http"
	"github.com/curbshare/parking-backend/internal/db"
	"github.com/curbshare/parking-backend/internal/listing"
	"github.com/curbshare/parking-backend/internal/payment"
	"github.com/curbshare/parking-backend/internal/rule"
	"github.com/curbshare/parking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *slog.Logger

	DBPool *pgxpool.Pool
	Caps   db.Capabilities
	// Redis is optional. Rate limits stay per-instance without it.
	Redis *redis.Client

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	OpenGate     availability.GateMode
	SearchLimits listing.Limits

	StripeSecretKey        string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
	WebBaseURL             string
	Currency               string
	PlatformFeeBps         int

	BookingRateMax  int
	AuthRateMax     int
	RateLimitWindow time.Duration
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	resolver := availability.NewResolver(cfg.OpenGate)

	var checkout payment.Checkout
	if cfg.StripeSecretKey != "" {
		checkout = payment.NewStripeCheckout(cfg.StripeSecretKey, cfg.WebBaseURL)
	} else {
		cfg.Logger.Warn("STRIPE_SECRET_KEY not set, using mock checkout")
		checkout = payment.NewMockCheckout(cfg.WebBaseURL)
	}

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	// Listing Module
	listingRepo := listing.NewPgxRepository(cfg.DBPool, cfg.Caps)
	listingService := listing.NewService(listingRepo, resolver, cfg.SearchLimits)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool, cfg.Caps)
	bookingService := booking.NewService(bookingRepo, resolver, checkout, cfg.Logger, booking.Options{
		Currency:       cfg.Currency,
		PlatformFeeBps: cfg.PlatformFeeBps,
	})

	// Availability rule Module
	ruleRepo := rule.NewPgxRepository(cfg.DBPool)
	ruleService := rule.NewService(ruleRepo, cfg.Caps.AvailabilityRules)

	newLimiter := api.NewLimiterFactory(cfg.Redis)

	// API Router Config
	routerParams := api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         cfg.Logger,
		JWTManager:     jwtManager,
		UserService:    userService,
		ListingService: listingService,
		BookingService: bookingService,
		RuleService:    ruleService,
		Webhook: bookingHttp.WebhookConfig{
			Secret:    cfg.StripeWebhookSecret,
			Tolerance: cfg.StripeWebhookTolerance,
		},
		BookingLimiter: newLimiter(cfg.BookingRateMax, cfg.RateLimitWindow),
		AuthLimiter:    newLimiter(cfg.AuthRateMax, cfg.RateLimitWindow),
	}

	// Router
	router, err := api.NewRouter(routerParams)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}, nil
}

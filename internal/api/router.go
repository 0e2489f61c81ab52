package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/curbshare/parking-backend/internal/auth"
	"github.com/curbshare/parking-backend/internal/booking"
	bookingHttp "github.com/curbshare/parking-backend/internal/booking/http"
	"github.com/curbshare/parking-backend/internal/listing"
	listingHttp "github.com/curbshare/parking-backend/internal/listing/http"
	"github.com/curbshare/parking-backend/internal/rule"
	ruleHttp "github.com/curbshare/parking-backend/internal/rule/http"
	"github.com/curbshare/parking-backend/internal/user"
	userHttp "github.com/curbshare/parking-backend/internal/user/http"
)

// Config holds everything the router wires into handlers.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *slog.Logger

	JWTManager     *auth.JWTManager
	UserService    user.Service
	ListingService listing.Service
	BookingService booking.Service
	RuleService    rule.Service

	Webhook        bookingHttp.WebhookConfig
	BookingLimiter Limiter
	AuthLimiter    Limiter
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (request id, access log, CORS, auth) and registering routes for various modules.
func NewRouter(cfg Config) (*gin.Engine, error) {
	if err := ruleHttp.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	r := gin.New()
	r.Use(RequestID(), AccessLog(cfg.Logger), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	if cfg.IsProduction {
		config.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		config.AllowOrigins = []string{
			"http://localhost:3000", // Web app
			"http://localhost:8081", // Swagger
		}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
	config.ExposeHeaders = []string{RequestIDHeader}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	authLimiter := RateLimit(cfg.AuthLimiter, "auth", cfg.Logger)
	bookingLimiter := RateLimit(cfg.BookingLimiter, "booking", cfg.Logger)

	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	listingHandler := listingHttp.NewHandler(cfg.ListingService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.UserService, cfg.Webhook, cfg.Logger)
	ruleHandler := ruleHttp.NewHandler(cfg.RuleService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, authLimiter)
		// Listing reads are public; a token, when sent, still identifies the caller in logs.
		listingHttp.RegisterRoutes(v1.Group("", auth.OptionalAuth(cfg.JWTManager)), listingHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, bookingLimiter)
		ruleHttp.RegisterRoutes(v1, ruleHandler, authMiddleware)
	}

	return r, nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

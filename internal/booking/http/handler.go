package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/curbshare/parking-backend/internal/auth"
	"github.com/curbshare/parking-backend/internal/booking"
	"github.com/curbshare/parking-backend/internal/payment"
	"github.com/curbshare/parking-backend/internal/pkg/request"
	"github.com/curbshare/parking-backend/internal/pkg/response"
	"github.com/curbshare/parking-backend/internal/user"
)

// maxWebhookBody caps the webhook payload read into memory.
const maxWebhookBody = 1 << 20

type WebhookConfig struct {
	Secret    string
	Tolerance time.Duration
}

type Handler struct {
	service     booking.Service
	userService user.Service
	webhook     WebhookConfig
	logger      *slog.Logger
}

func NewHandler(service booking.Service, userService user.Service, webhook WebhookConfig, logger *slog.Logger) *Handler {
	return &Handler{
		service:     service,
		userService: userService,
		webhook:     webhook,
		logger:      logger,
	}
}

func isAdmin(c *gin.Context) bool {
	return auth.GetUserRole(c) == string(user.RoleAdmin)
}

func bookingID(c *gin.Context) (string, bool) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid booking id"})
		return "", false
	}
	return req.ID, true
}

// Create reserves a slot as pending and returns the checkout page for it.
func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	driver, err := h.userService.GetByID(ctx, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.service.Create(ctx, booking.CreateRequest{
		DriverID:    driver.ID,
		DriverEmail: driver.Email,
		ListingID:   body.ListingID,
		From:        body.From,
		To:          body.To,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateBookingResponse{
		Booking:     NewBookingResponse(created.Booking),
		CheckoutURL: created.CheckoutURL,
	})
}

func (h *Handler) ListMine(c *gin.Context) {
	var page request.ListParams
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, err)
		return
	}
	page.Normalize()

	bookings, total, err := h.service.ListByDriver(c.Request.Context(), auth.GetUserID(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, page.Page, page.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), id, auth.GetUserID(c), isAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, already, err := h.service.Cancel(c.Request.Context(), id, auth.GetUserID(c), isAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, CancelBookingResponse{
		Booking:         NewBookingResponse(b),
		AlreadyCanceled: already,
	})
}

// Webhook receives Stripe events. The signature is the authentication.
func (h *Handler) Webhook(c *gin.Context) {
	if strings.TrimSpace(h.webhook.Secret) == "" {
		h.logger.WarnContext(c.Request.Context(), "stripe webhook skipped, no secret configured")
		c.JSON(http.StatusOK, gin.H{"received": true, "skipped": true})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "missing Stripe-Signature header"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "failed to read request body"})
		return
	}

	out, err := payment.ParseWebhook(payload, sig, h.webhook.Secret, h.webhook.Tolerance)
	if err != nil {
		if !errors.Is(err, payment.ErrInvalidSignature) {
			h.logger.WarnContext(c.Request.Context(), "stripe webhook rejected", "err", err)
		}
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid webhook"})
		return
	}

	h.logger.InfoContext(c.Request.Context(), "stripe event received",
		"event_id", out.EventID,
		"event_type", out.EventType,
	)
	if err := h.service.ApplyPayment(c.Request.Context(), out); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

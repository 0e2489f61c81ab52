package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/curbshare/parking-backend/internal/auth"
	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/listing"
	"github.com/curbshare/parking-backend/internal/pkg/request"
	"github.com/curbshare/parking-backend/internal/pkg/response"
)

type Handler struct {
	service listing.Service
}

func NewHandler(service listing.Service) *Handler {
	return &Handler{service: service}
}

// listingID reads and validates the :id path parameter.
func listingID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid listing id"})
		return "", false
	}
	return id, true
}

// Search lists listings near a point, resolved against [from, to).
func (h *Handler) Search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err)
		return
	}

	mode, err := availability.ParseSearchMode(q.Mode)
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	radius := q.RadiusKm
	if radius == 0 {
		radius = DefaultRadiusKm
	}

	results, err := h.service.Search(c.Request.Context(), listing.SearchRequest{
		Lat:       *q.Lat,
		Lng:       *q.Lng,
		RadiusKm:  radius,
		From:      q.From,
		To:        q.To,
		Mode:      mode,
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		Amenities: splitAmenities(q.Amenities),
		Text:      q.Q,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SearchResultResponse, len(results))
	for i, r := range results {
		items[i] = SearchResultResponse{
			ListingResponse: NewListingResponse(r.Listing),
			DistanceKm:      r.DistanceKm,
			IsAvailable:     r.IsAvailable,
			Reason:          string(r.Reason),
		}
	}
	c.JSON(http.StatusOK, SearchResponse{Items: items, Count: len(items)})
}

// Get returns one listing. Passing both from and to adds is_available.
func (h *Handler) Get(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	var q WindowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err)
		return
	}

	var window *availability.Interval
	switch {
	case q.From != nil && q.To != nil:
		iv, err := availability.NewInterval(*q.From, *q.To)
		if err != nil {
			response.Error(c, listing.ErrInvalidInterval)
			return
		}
		window = &iv
	case q.From != nil || q.To != nil:
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "from and to must be given together"})
		return
	}

	d, err := h.service.Get(c.Request.Context(), id, window)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, DetailResponse{
		ListingResponse: NewListingResponse(d.Listing),
		IsAvailable:     d.IsAvailable,
		Reason:          string(d.Reason),
	})
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateListingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	l, err := h.service.Create(c.Request.Context(), listing.CreateRequest{
		HostID:           auth.GetUserID(c),
		Title:            body.Title,
		Address:          body.Address,
		AvailabilityText: body.AvailabilityText,
		PricePerDay:      body.PricePerDay,
		Latitude:         *body.Latitude,
		Longitude:        *body.Longitude,
		Amenities:        body.Amenities,
		ImageURLs:        body.ImageURLs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewListingResponse(l))
}

// ListMine lists the caller's own listings, archived ones included.
func (h *Handler) ListMine(c *gin.Context) {
	var page request.ListParams
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, err)
		return
	}
	page.Normalize()

	listings, total, err := h.service.ListByHost(c.Request.Context(), auth.GetUserID(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ListingResponse, len(listings))
	for i, l := range listings {
		items[i] = NewListingResponse(l)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, page.Page, page.PageSize, total))
}

func (h *Handler) Archive(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	if err := h.service.Archive(c.Request.Context(), id, auth.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, auth.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStatus lets an admin moderate a listing.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	l, err := h.service.SetStatus(c.Request.Context(), id, listing.Status(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewListingResponse(l))
}

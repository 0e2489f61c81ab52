package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/curbshare/parking-backend/internal/auth"
	"github.com/curbshare/parking-backend/internal/pkg/response"
	"github.com/curbshare/parking-backend/internal/rule"
	"github.com/curbshare/parking-backend/internal/user"
)

type Handler struct {
	service rule.Service
}

func NewHandler(service rule.Service) *Handler {
	return &Handler{service: service}
}

func actor(c *gin.Context) rule.Actor {
	return rule.Actor{
		UserID:  auth.GetUserID(c),
		IsAdmin: auth.GetUserRole(c) == string(user.RoleAdmin),
	}
}

func uuidParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid " + name})
		return "", false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	listingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.List(c.Request.Context(), actor(c), listingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = NewEntryResponse(e)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Create(c *gin.Context) {
	listingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var body CreateEntryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}
	in, err := body.toInput()
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	e, err := h.service.Create(c.Request.Context(), actor(c), listingID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewEntryResponse(e))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "availabilityId")
	if !ok {
		return
	}

	var body UpdateEntryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}
	p, err := body.toPatch()
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	e, err := h.service.Update(c.Request.Context(), actor(c), id, p)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewEntryResponse(e))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "availabilityId")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

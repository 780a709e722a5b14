package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"key2rent_backend/internal/ports"
	"key2rent_backend/internal/services"
)

// ListingHandler exposes the listing endpoints gated by payment grants
type ListingHandler struct {
	service *services.PaymentService
}

func NewListingHandler(service *services.PaymentService) *ListingHandler {
	return &ListingHandler{service: service}
}

// ListingContact returns the landlord's contact phone for a listing, but
// only while the caller holds an unexpired contact-access grant. The caller
// identity comes from the auth middleware.
func (h *ListingHandler) ListingContact(c echo.Context) error {
	uid, _ := c.Get("userUID").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid listing id"})
	}

	listing, err := h.service.ListingByID(c.Request().Context(), uint(id))
	if errors.Is(err, ports.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
	}
	if err != nil {
		log.Printf("listing lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup failed"})
	}

	user, err := h.service.UserByUID(c.Request().Context(), uid)
	if errors.Is(err, ports.ErrNotFound) || (err == nil && !user.HasContactAccess(time.Now())) {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "contact access requires an active CONTACT_ACCESS payment"})
	}
	if err != nil {
		log.Printf("user lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"listingId":    listing.ID,
		"contactPhone": listing.ContactPhone,
		"expiresAt":    user.ContactAccessExpiresAt,
	})
}

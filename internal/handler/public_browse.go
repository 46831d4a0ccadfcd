package handler

// public_browse.go defines handlers for the public browsing API: venue
// listings with search/sort/proximity filters, venue detail with
// aggregate scores, and review listings. These routes require no
// identity token; identity tokens stored on reviews are never exposed.

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/davidfromkent/coffee-ratings/internal/model"
	"github.com/davidfromkent/coffee-ratings/internal/repository"
)

// PublicHandler aggregates repositories needed for unauthenticated browsing.
type PublicHandler struct {
	Venues  *repository.VenueRepo
	Reviews *repository.ReviewRepo
}

// PublicVenue represents a venue in detail responses.
type PublicVenue struct {
	ID        uint64              `json:"id"`
	Name      string              `json:"name"`
	Location  string              `json:"location"`
	Postcode  *string             `json:"postcode,omitempty"`
	Latitude  *float64            `json:"latitude,omitempty"`
	Longitude *float64            `json:"longitude,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	Averages  model.VenueAverages `json:"averages"`
}

func publicVenue(v *model.Venue) PublicVenue {
	return PublicVenue{
		ID:        v.ID,
		Name:      v.Name,
		Location:  v.Location,
		Postcode:  v.Postcode,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		CreatedAt: v.CreatedAt,
		Averages:  v.Averages,
	}
}

func pageParams(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// GetVenues handles GET /v1/venues. Supported query parameters:
// q (name/location substring), postcode, sort
// (name|rating|newest|reviews|distance), lat+lon with optional
// radius_km for proximity filtering, page and page_size.
func (h *PublicHandler) GetVenues(c echo.Context) error {
	page, pageSize := pageParams(c)
	q := repository.VenueSearchQuery{
		Text:     strings.TrimSpace(c.QueryParam("q")),
		Postcode: strings.TrimSpace(c.QueryParam("postcode")),
		Sort:     strings.ToLower(strings.TrimSpace(c.QueryParam("sort"))),
		Page:     page,
		PageSize: pageSize,
	}
	if latStr, lonStr := c.QueryParam("lat"), c.QueryParam("lon"); latStr != "" && lonStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		if errLat != nil || errLon != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coordinates"})
		}
		q.Lat, q.Lon = &lat, &lon
		if r, err := strconv.ParseFloat(c.QueryParam("radius_km"), 64); err == nil && r > 0 {
			q.RadiusKM = r
		}
	}

	items, total, err := h.Venues.Search(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetVenue handles GET /v1/venues/:id and returns venue details
// including the derived averages (absent fields mean "unknown").
func (h *PublicHandler) GetVenue(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	v, err := h.Venues.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrVenueNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, publicVenue(v))
}

// GetVenueReviews handles GET /v1/venues/:id/reviews. It validates the
// venue exists, then returns its reviews newest visit first.
func (h *PublicHandler) GetVenueReviews(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Venues.GetByID(ctx, id); err != nil {
		if err == repository.ErrVenueNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	reviews, err := h.Reviews.ListByVenue(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]ReviewView, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, reviewView(rv))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetReviews handles GET /v1/reviews. Supported query parameters:
// venue_id, reviewer (substring match), sort (newest|oldest|score),
// page and page_size.
func (h *PublicHandler) GetReviews(c echo.Context) error {
	page, pageSize := pageParams(c)
	q := repository.ReviewListQuery{
		Reviewer: strings.TrimSpace(c.QueryParam("reviewer")),
		Sort:     strings.ToLower(strings.TrimSpace(c.QueryParam("sort"))),
		Page:     page,
		PageSize: pageSize,
	}
	if vidStr := c.QueryParam("venue_id"); vidStr != "" {
		vid, err := strconv.ParseUint(vidStr, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue_id"})
		}
		q.VenueID = vid
	}

	reviews, total, err := h.Reviews.List(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]ReviewView, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, reviewView(rv))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetReview handles GET /v1/reviews/:id.
func (h *PublicHandler) GetReview(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	rv, err := h.Reviews.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrReviewNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, reviewView(rv))
}

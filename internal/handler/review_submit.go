package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/davidfromkent/coffee-ratings/internal/model"
	"github.com/davidfromkent/coffee-ratings/internal/repository"
)

// submitReviewRequest is the body of POST /v1/reviews. Scores are
// unbounded non-negative integers; no 1-5 range is enforced, matching
// the historical behavior of the system. A food score of 0 means "not
// applicable".
type submitReviewRequest struct {
	VenueName     string   `json:"venue_name" validate:"required"`
	Location      string   `json:"location" validate:"required"`
	VisitDate     string   `json:"visit_date" validate:"required"`
	ReviewerName  string   `json:"reviewer_name" validate:"required"`
	IdentityToken string   `json:"identity_token"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Coffee        int      `json:"coffee" validate:"min=0"`
	Cost          int      `json:"cost" validate:"min=0"`
	Service       int      `json:"service" validate:"min=0"`
	Hygiene       int      `json:"hygiene" validate:"min=0"`
	Ambience      int      `json:"ambience" validate:"min=0"`
	Food          int      `json:"food" validate:"min=0"`
	Notes         string   `json:"notes"`
}

// Submit handles POST /v1/reviews. The full flow per submission:
//
//  1. validate the payload and the visit date (future dates rejected
//     before any write)
//  2. resolve coordinates to a postcode, best effort
//  3. in one transaction: resolve the venue (create if absent), run the
//     duplicate guard, insert the review with the venue name/location
//     snapshot, recompute the venue's averages
//
// An ambiguous venue or a duplicate review answers 409 without writing
// anything; the duplicate response carries the existing review and the
// resolution URL so the client can drive overwrite-or-discard.
func (h *ReviewHandler) Submit(c echo.Context) error {
	var body submitReviewRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": err.Error()})
	}
	token := requestIdentity(c, body.IdentityToken)
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identity token is required"})
	}
	visitDate, err := parseVisitDate(body.VisitDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_date", "message": "visit date must be YYYY-MM-DD and not in the future"})
	}

	ctx := c.Request().Context()

	// Best-effort postcode resolution; lookup failures degrade to "no
	// postcode" and never block or fail the submission.
	var postcode *string
	if h.Geocoder != nil && body.Latitude != nil && body.Longitude != nil {
		if pc, err := h.Geocoder.ReversePostcode(ctx, *body.Latitude, *body.Longitude); err == nil && pc != "" {
			postcode = &pc
		}
	}

	tx, err := h.Venues.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	venue, err := h.Venues.Resolve(ctx, tx, repository.ResolveInput{
		Name:      body.VenueName,
		Location:  body.Location,
		Postcode:  postcode,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		CreatedBy: token,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAmbiguousVenue) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":   "ambiguous_venue",
				"message": "several venues match this name and location; resubmit with coordinates so the right branch can be picked",
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	existing, err := h.Reviews.FindConflicting(ctx, tx, token, venue.ID, visitDate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if existing != nil {
		// One review per submitter per venue per day. Nothing has been
		// written; the client decides between overwrite and discard.
		return c.JSON(http.StatusConflict, echo.Map{
			"error":          "duplicate_review",
			"message":        "you already reviewed this venue for this visit date",
			"existing":       reviewView(existing),
			"resolution_url": fmt.Sprintf("/v1/reviews/%d/resolution", existing.ID),
		})
	}

	scores := model.Scores{
		Coffee:   body.Coffee,
		Cost:     body.Cost,
		Service:  body.Service,
		Hygiene:  body.Hygiene,
		Ambience: body.Ambience,
		Food:     body.Food,
	}
	total, count := scores.Totals()
	review := &model.Review{
		VenueID:          venue.ID,
		VenueNameRaw:     venue.Name,
		VenueLocationRaw: venue.Location,
		ReviewerName:     body.ReviewerName,
		IdentityToken:    token,
		VisitDate:        visitDate,
		Scores:           scores,
		TotalScore:       total,
		CategoryCount:    count,
		Notes:            body.Notes,
	}
	if err := h.Reviews.Create(ctx, tx, review); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create review"})
	}
	if err := h.Venues.RecomputeAverages(ctx, tx, venue.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute averages"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishEvent(ctx, "created", review)
	return c.JSON(http.StatusCreated, echo.Map{
		"review":      reviewView(review),
		"reviews_url": "/v1/reviews",
	})
}

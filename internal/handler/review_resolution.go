package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/davidfromkent/coffee-ratings/internal/model"
	"github.com/davidfromkent/coffee-ratings/internal/repository"
)

// resolutionRequest is the body of POST /v1/reviews/:id/resolution: the
// submitter's decision after a duplicate was detected. On "overwrite"
// it carries the fields of the new submission; "discard" needs nothing
// beyond the action.
type resolutionRequest struct {
	Action        string `json:"action" validate:"required,oneof=overwrite discard"`
	VenueID       uint64 `json:"venue_id"`
	VisitDate     string `json:"visit_date"`
	ReviewerName  string `json:"reviewer_name"`
	IdentityToken string `json:"identity_token"`
	Coffee        int    `json:"coffee" validate:"min=0"`
	Cost          int    `json:"cost" validate:"min=0"`
	Service       int    `json:"service" validate:"min=0"`
	Hygiene       int    `json:"hygiene" validate:"min=0"`
	Ambience      int    `json:"ambience" validate:"min=0"`
	Food          int    `json:"food" validate:"min=0"`
	Notes         string `json:"notes"`
}

// ResolveDuplicate handles POST /v1/reviews/:id/resolution. An
// overwrite confirmation is only honored when the identity token, venue
// and visit date all still match the stored review; anything else is
// refused with permission_denied so a forged or stale confirmation
// cannot alter another submitter's review. Discard acknowledges the
// decision without writing.
func (h *ReviewHandler) ResolveDuplicate(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}
	var body resolutionRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": err.Error()})
	}

	ctx := c.Request().Context()
	existing, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrReviewNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "reviews_url": "/v1/reviews"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if body.Action == "discard" {
		// The new submission is dropped unchanged; the stored review stands.
		return c.JSON(http.StatusOK, echo.Map{"status": "discarded", "reviews_url": "/v1/reviews"})
	}

	if body.ReviewerName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reviewer_name is required for overwrite"})
	}
	token := requestIdentity(c, body.IdentityToken)
	if authorize(existing, token) != nil ||
		body.VenueID != existing.VenueID ||
		strings.TrimSpace(body.VisitDate) != existing.VisitDate {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":       "permission_denied",
			"message":     "this confirmation does not match the stored review",
			"reviews_url": "/v1/reviews",
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
	existing.Scores = scores
	existing.TotalScore, existing.CategoryCount = scores.Totals()
	existing.ReviewerName = body.ReviewerName
	existing.Notes = body.Notes

	tx, err := h.Reviews.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Reviews.Update(ctx, tx, existing); err != nil {
		if err == repository.ErrReviewNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "reviews_url": "/v1/reviews"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update review"})
	}
	if err := h.Venues.RecomputeAverages(ctx, tx, existing.VenueID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute averages"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishEvent(ctx, "updated", existing)
	return c.JSON(http.StatusOK, echo.Map{
		"status":      "updated",
		"review":      reviewView(existing),
		"reviews_url": "/v1/reviews",
	})
}

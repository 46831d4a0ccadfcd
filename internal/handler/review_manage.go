package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/davidfromkent/coffee-ratings/internal/model"
	"github.com/davidfromkent/coffee-ratings/internal/repository"
)

// updateReviewRequest is the body of PUT /v1/reviews/:id. The venue
// reference cannot be changed after creation; re-review a different
// venue with a new submission instead.
type updateReviewRequest struct {
	VisitDate     string `json:"visit_date" validate:"required"`
	ReviewerName  string `json:"reviewer_name" validate:"required"`
	IdentityToken string `json:"identity_token"`
	Coffee        int    `json:"coffee" validate:"min=0"`
	Cost          int    `json:"cost" validate:"min=0"`
	Service       int    `json:"service" validate:"min=0"`
	Hygiene       int    `json:"hygiene" validate:"min=0"`
	Ambience      int    `json:"ambience" validate:"min=0"`
	Food          int    `json:"food" validate:"min=0"`
	Notes         string `json:"notes"`
}

// Update handles PUT /v1/reviews/:id. Only the original submitter may
// edit, verified by identity-token equality. Moving the visit date onto
// another of the submitter's reviews for the same venue trips the
// duplicate guard, same as on submission.
func (h *ReviewHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}
	var body updateReviewRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": err.Error()})
	}

	ctx := c.Request().Context()
	review, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrReviewNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "reviews_url": "/v1/reviews"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	token := requestIdentity(c, body.IdentityToken)
	if err := authorize(review, token); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "permission_denied", "reviews_url": "/v1/reviews"})
	}

	visitDate, err := parseVisitDate(body.VisitDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_date", "message": "visit date must be YYYY-MM-DD and not in the future"})
	}
	if visitDate != review.VisitDate {
		conflict, err := h.Reviews.FindConflicting(ctx, h.Reviews.DB(), token, review.VenueID, visitDate)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if conflict != nil && conflict.ID != review.ID {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":          "duplicate_review",
				"message":        "you already reviewed this venue for that visit date",
				"existing":       reviewView(conflict),
				"resolution_url": fmt.Sprintf("/v1/reviews/%d/resolution", conflict.ID),
			})
		}
	}

	scores := model.Scores{
		Coffee:   body.Coffee,
		Cost:     body.Cost,
		Service:  body.Service,
		Hygiene:  body.Hygiene,
		Ambience: body.Ambience,
		Food:     body.Food,
	}
	review.Scores = scores
	review.TotalScore, review.CategoryCount = scores.Totals()
	review.ReviewerName = body.ReviewerName
	review.VisitDate = visitDate
	review.Notes = body.Notes

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

	if err := h.Reviews.Update(ctx, tx, review); err != nil {
		if err == repository.ErrReviewNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "reviews_url": "/v1/reviews"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update review"})
	}
	if err := h.Venues.RecomputeAverages(ctx, tx, review.VenueID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute averages"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishEvent(ctx, "updated", review)
	return c.JSON(http.StatusOK, echo.Map{"review": reviewView(review), "reviews_url": "/v1/reviews"})
}

// Delete handles DELETE /v1/reviews/:id. Only the original submitter
// may delete. Removing a venue's only review resets every stored
// average back to unknown via the same recomputation path as any other
// write.
func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}

	ctx := c.Request().Context()
	review, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrReviewNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "reviews_url": "/v1/reviews"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var body struct {
		IdentityToken string `json:"identity_token"`
	}
	_ = c.Bind(&body) // body is optional when the header is set

	token := requestIdentity(c, body.IdentityToken)
	if err := authorize(review, token); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "permission_denied", "reviews_url": "/v1/reviews"})
	}

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

	if err := h.Reviews.Delete(ctx, tx, id); err != nil {
		if err == repository.ErrReviewNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "reviews_url": "/v1/reviews"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete review"})
	}
	if err := h.Venues.RecomputeAverages(ctx, tx, review.VenueID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute averages"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishEvent(ctx, "deleted", review)
	return c.JSON(http.StatusOK, echo.Map{"status": "deleted", "reviews_url": "/v1/reviews"})
}

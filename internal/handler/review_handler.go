// Package handler exposes HTTP handlers for review submission,
// duplicate resolution, review management and public browsing. The
// handlers orchestrate the venue resolver, duplicate guard and average
// recomputation inside a single transaction per mutating request, then
// publish a domain event once the transaction has committed.
package handler

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/davidfromkent/coffee-ratings/internal/model"
	"github.com/davidfromkent/coffee-ratings/internal/queue"
	"github.com/davidfromkent/coffee-ratings/internal/repository"
)

// Geocoder resolves coordinates to a postcode. A nil Geocoder, or any
// error from it, means the submission proceeds without a postcode.
type Geocoder interface {
	ReversePostcode(ctx context.Context, lat, lon float64) (string, error)
}

// PublishFunc publishes a domain event after a successful mutation.
// Publish failures are logged by the publisher and otherwise ignored.
type PublishFunc func(ctx context.Context, ev queue.ReviewRecordedEvent) error

// ReviewHandler groups the dependencies for all review mutations.
type ReviewHandler struct {
	Venues   *repository.VenueRepo
	Reviews  *repository.ReviewRepo
	Geocoder Geocoder    // may be nil
	Publish  PublishFunc // may be nil
	validate *validator.Validate
}

// NewReviewHandler constructs a ReviewHandler. Venue and review
// repositories must be non-nil; geocoder and publisher are optional.
func NewReviewHandler(venues *repository.VenueRepo, reviews *repository.ReviewRepo, geo Geocoder, publish PublishFunc) *ReviewHandler {
	if venues == nil || reviews == nil {
		panic("nil repository passed to NewReviewHandler")
	}
	return &ReviewHandler{
		Venues:   venues,
		Reviews:  reviews,
		Geocoder: geo,
		Publish:  publish,
		validate: validator.New(),
	}
}

// ReviewView is a review as exposed over the API. The identity token is
// deliberately omitted: it scopes permissions and must not leak to
// other readers of the listing.
type ReviewView struct {
	ID            uint64    `json:"id"`
	VenueID       uint64    `json:"venue_id"`
	VenueName     string    `json:"venue_name"`
	VenueLocation string    `json:"venue_location"`
	ReviewerName  string    `json:"reviewer_name"`
	VisitDate     string    `json:"visit_date"`
	Coffee        int       `json:"coffee"`
	Cost          int       `json:"cost"`
	Service       int       `json:"service"`
	Hygiene       int       `json:"hygiene"`
	Ambience      int       `json:"ambience"`
	Food          int       `json:"food"`
	TotalScore    int       `json:"total_score"`
	CategoryCount int       `json:"category_count"`
	Average       float64   `json:"average"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func reviewView(rv *model.Review) ReviewView {
	var avg float64
	if rv.CategoryCount > 0 {
		avg = float64(rv.TotalScore) / float64(rv.CategoryCount)
	}
	return ReviewView{
		ID:            rv.ID,
		VenueID:       rv.VenueID,
		VenueName:     rv.VenueNameRaw,
		VenueLocation: rv.VenueLocationRaw,
		ReviewerName:  rv.ReviewerName,
		VisitDate:     rv.VisitDate,
		Coffee:        rv.Coffee,
		Cost:          rv.Cost,
		Service:       rv.Service,
		Hygiene:       rv.Hygiene,
		Ambience:      rv.Ambience,
		Food:          rv.Food,
		TotalScore:    rv.TotalScore,
		CategoryCount: rv.CategoryCount,
		Average:       avg,
		Notes:         rv.Notes,
		CreatedAt:     rv.CreatedAt,
		UpdatedAt:     rv.UpdatedAt,
	}
}

// requestIdentity returns the submitter's identity token, preferring
// the X-Identity-Token header (stored in context by middleware) over a
// body field for clients that cannot set headers.
func requestIdentity(c echo.Context, bodyToken string) string {
	if v, ok := c.Get("identity_token").(string); ok && v != "" {
		return v
	}
	return strings.TrimSpace(bodyToken)
}

// authorize checks that the caller's identity token matches the token
// stored on the review. Equality is the whole permission model.
func authorize(rv *model.Review, token string) error {
	if token == "" || token != rv.IdentityToken {
		return repository.ErrForbidden
	}
	return nil
}

var errFutureDate = errors.New("visit date is in the future")

// parseVisitDate validates a visit date. It must be a bare ISO calendar
// date and must not lie in the future; today counts as valid.
func parseVisitDate(s string) (string, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if d.After(today) {
		return "", errFutureDate
	}
	return d.Format("2006-01-02"), nil
}

// publishEvent emits a ReviewRecordedEvent after a committed mutation.
// The venue is re-read so the event carries the just-recomputed overall
// average; if that read fails the event goes out without it.
func (h *ReviewHandler) publishEvent(ctx context.Context, action string, rv *model.Review) {
	if h.Publish == nil {
		return
	}
	ev := queue.ReviewRecordedEvent{
		Action:        action,
		ReviewID:      rv.ID,
		VenueID:       rv.VenueID,
		VenueName:     rv.VenueNameRaw,
		ReviewerName:  rv.ReviewerName,
		VisitDate:     rv.VisitDate,
		TotalScore:    rv.TotalScore,
		CategoryCount: rv.CategoryCount,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if v, err := h.Venues.GetByID(ctx, rv.VenueID); err == nil {
		ev.VenueName = v.Name
		ev.VenueOverall = v.Averages.Overall
	}
	if err := h.Publish(ctx, ev); err != nil {
		log.Printf("review event publish failed (ignored): %v", err)
	}
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/davidfromkent/coffee-ratings/internal/handler" // import the handlers that implement business logic
)

// RegisterRoutes registers routes that carry no review semantics on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterReviews registers identity minting and every review mutation.
// The optional middleware (typically the rate limiter) is applied to the
// whole mutating surface so a single device cannot flood submissions.
func RegisterReviews(e *echo.Echo, h *handler.ReviewHandler, ih *handler.IdentityHandler, mw ...echo.MiddlewareFunc) {
	// Identity minting sits outside the /v1/reviews group: a client needs
	// a token before it can submit anything.
	e.POST("/v1/identity", ih.Mint, mw...)

	g := e.Group("/v1/reviews", mw...)
	// Submit a new review; may answer 409 for ambiguous venues or duplicates.
	g.POST("", h.Submit)
	// Resolve a previously reported duplicate with overwrite or discard.
	g.POST("/:id/resolution", h.ResolveDuplicate)
	// Edit an existing review; only the original submitter may do this.
	g.PUT("/:id", h.Update)
	// Delete an existing review; only the original submitter may do this.
	g.DELETE("/:id", h.Delete)
}

// RegisterPublic registers unauthenticated browse endpoints on the provided
// Echo instance.  The optional middleware (typically the response cache) is
// applied to all of them; these routes are read-only and safe to cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
	// Search and list venues with their aggregate scores.
	e.GET("/v1/venues", p.GetVenues, mw...)
	// Venue details including averages ("unknown" categories are omitted).
	e.GET("/v1/venues/:id", p.GetVenue, mw...)
	// All reviews for one venue, newest visit first.
	e.GET("/v1/venues/:id/reviews", p.GetVenueReviews, mw...)
	// Browse reviews across venues with filtering and paging.
	e.GET("/v1/reviews", p.GetReviews, mw...)
	// A single review by id.
	e.GET("/v1/reviews/:id", p.GetReview, mw...)
}

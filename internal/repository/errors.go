// Package repository defines error values and query types reused across
// the venue and review repositories. These sentinel values let handlers
// distinguish failure scenarios: ErrAmbiguousVenue means a submission
// matched several venues and the submitter must be re-prompted for a
// disambiguator, while ErrForbidden means the caller's identity token
// does not match the review they tried to touch.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrVenueNotFound is returned when a venue cannot be found in the DB.
var ErrVenueNotFound = errors.New("venue not found")

// ErrReviewNotFound is returned when a review cannot be found in the DB.
var ErrReviewNotFound = errors.New("review not found")

// ErrForbidden is returned when the caller attempts an operation on a
// review submitted under a different identity token. Handlers should
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrAmbiguousVenue is returned by the venue resolver when a name and
// location match more than one existing venue and no postcode was
// available to pick between them. The resolver never guesses; handlers
// should surface this so the submitter can supply a location or
// geolocation that narrows the match.
var ErrAmbiguousVenue = errors.New("ambiguous venue")

// Queryer is satisfied by both *sql.DB and *sql.Tx, so venue resolution
// and average recomputation can run inside a caller-managed transaction
// alongside the review write they belong to.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

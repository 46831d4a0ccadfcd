package repository

// venue_repository.go defines the VenueRepo: lookup, creation and
// resolution of venues plus recomputation of their stored averages.
// Venue resolution is the only way venues come into existence; averages
// are only ever written by RecomputeAverages so there is exactly one
// code path that touches the avg_* columns.

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/davidfromkent/coffee-ratings/internal/model"
)

// VenueRepo encapsulates all database queries related to venues. It
// depends on a sql.DB connection which should be configured elsewhere.
type VenueRepo struct {
	db *sql.DB // underlying connection pool
}

// NewVenueRepo constructs a VenueRepo with the provided DB handle. This
// allows dependency injection of the database in tests and at startup.
func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

// DB exposes the underlying pool so handlers can open transactions that
// span venue resolution, review writes and average recomputation.
func (r *VenueRepo) DB() *sql.DB { return r.db }

const venueColumns = `id, name, location, postcode, latitude, longitude, created_at, created_by,
	avg_coffee, avg_cost, avg_service, avg_hygiene, avg_ambience, avg_food, avg_overall`

func scanVenue(row interface{ Scan(dest ...any) error }) (*model.Venue, error) {
	var v model.Venue
	err := row.Scan(
		&v.ID, &v.Name, &v.Location, &v.Postcode, &v.Latitude, &v.Longitude,
		&v.CreatedAt, &v.CreatedBy,
		&v.Averages.Coffee, &v.Averages.Cost, &v.Averages.Service,
		&v.Averages.Hygiene, &v.Averages.Ambience, &v.Averages.Food,
		&v.Averages.Overall,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID fetches a venue by its ID. It returns ErrVenueNotFound if no
// row is found.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	const q = `SELECT ` + venueColumns + ` FROM venues WHERE id = ?`
	v, err := scanVenue(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return v, nil
}

// ResolveInput carries the raw submission fields the resolver works
// from. Postcode is the value already resolved from coordinates by the
// geocoder (nil when no postcode could be determined); the resolver
// itself never performs network lookups.
type ResolveInput struct {
	Name      string
	Location  string
	Postcode  *string
	Latitude  *float64
	Longitude *float64
	CreatedBy string
}

// Resolve finds or creates the canonical venue for a submission. The
// caller passes its open transaction so the create-if-absent step is
// atomic with the review insert that follows.
//
// Matching order:
//  1. postcode resolved and a venue matches name+postcode -> that venue
//  2. postcode resolved and exactly one postcode-less name+location
//     match -> that venue, with the postcode backfilled onto it
//  3. no postcode and exactly one name+location match -> that venue
//  4. several candidate matches -> ErrAmbiguousVenue
//  5. otherwise -> create a new venue from the normalized input
//
// Venues whose stored postcode differs from the resolved one are other
// branches and never candidates. A matched venue missing postcode or
// coordinates that this submission supplies is backfilled; present
// values are never overwritten.
func (r *VenueRepo) Resolve(ctx context.Context, q Queryer, in ResolveInput) (*model.Venue, error) {
	name := strings.TrimSpace(in.Name)
	location := strings.TrimSpace(in.Location)

	if in.Postcode != nil {
		const byPostcode = `SELECT ` + venueColumns + ` FROM venues
			WHERE LOWER(name) = LOWER(?) AND postcode IS NOT NULL AND LOWER(postcode) = LOWER(?)
			LIMIT 1`
		v, err := scanVenue(q.QueryRowContext(ctx, byPostcode, name, *in.Postcode))
		if err == nil {
			return r.backfill(ctx, q, v, in)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		// No venue carries this postcode yet. A venue recorded earlier from
		// a submission without coordinates may still be the same place, so
		// consult the postcode-less name+location candidates before creating.
		const byNameNoPostcode = `SELECT ` + venueColumns + ` FROM venues
			WHERE LOWER(name) = LOWER(?) AND LOWER(location) = LOWER(?) AND postcode IS NULL
			ORDER BY id LIMIT 2`
		matches, err := collectVenues(q.QueryContext(ctx, byNameNoPostcode, name, location))
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			return r.create(ctx, q, name, location, in)
		case 1:
			return r.backfill(ctx, q, matches[0], in)
		default:
			return nil, ErrAmbiguousVenue
		}
	}

	const byNameLocation = `SELECT ` + venueColumns + ` FROM venues
		WHERE LOWER(name) = LOWER(?) AND LOWER(location) = LOWER(?)
		ORDER BY id LIMIT 2`
	matches, err := collectVenues(q.QueryContext(ctx, byNameLocation, name, location))
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return r.create(ctx, q, name, location, in)
	case 1:
		return r.backfill(ctx, q, matches[0], in)
	default:
		return nil, ErrAmbiguousVenue
	}
}

func collectVenues(rows *sql.Rows, err error) ([]*model.Venue, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// create inserts a new venue from the normalized submission fields and
// reads the row back so the caller receives generated timestamps.
func (r *VenueRepo) create(ctx context.Context, q Queryer, name, location string, in ResolveInput) (*model.Venue, error) {
	const qInsert = `INSERT INTO venues (name, location, postcode, latitude, longitude, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, qInsert, name, location, in.Postcode, in.Latitude, in.Longitude, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	const qSelect = `SELECT ` + venueColumns + ` FROM venues WHERE id = ?`
	return scanVenue(q.QueryRowContext(ctx, qSelect, uint64(id)))
}

// backfill fills in postcode and coordinates the venue is missing and
// the current submission supplies. COALESCE keeps whatever is already
// stored, so present values win over the new submission.
func (r *VenueRepo) backfill(ctx context.Context, q Queryer, v *model.Venue, in ResolveInput) (*model.Venue, error) {
	needsPostcode := v.Postcode == nil && in.Postcode != nil
	needsGeo := (v.Latitude == nil || v.Longitude == nil) && in.Latitude != nil && in.Longitude != nil
	if !needsPostcode && !needsGeo {
		return v, nil
	}

	const qUpdate = `UPDATE venues
		SET postcode = COALESCE(postcode, ?),
		    latitude = COALESCE(latitude, ?),
		    longitude = COALESCE(longitude, ?)
		WHERE id = ?`
	if _, err := q.ExecContext(ctx, qUpdate, in.Postcode, in.Latitude, in.Longitude, v.ID); err != nil {
		return nil, err
	}
	if needsPostcode {
		v.Postcode = in.Postcode
	}
	if needsGeo {
		v.Latitude = in.Latitude
		v.Longitude = in.Longitude
	}
	return v, nil
}

// RecomputeAverages reloads the venue's full review set and rewrites
// the stored averages from scratch. It is called after every review
// create, update or delete and is idempotent; incremental patching of
// the averages is deliberately not supported. A venue with no remaining
// reviews has all averages reset to NULL, and a venue id that no longer
// exists is a silent no-op.
func (r *VenueRepo) RecomputeAverages(ctx context.Context, q Queryer, venueID uint64) error {
	const qReviews = `SELECT coffee, cost, service, hygiene, ambience, food, total_score, category_count
		FROM reviews WHERE venue_id = ?`
	rows, err := q.QueryContext(ctx, qReviews, venueID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		rv := new(model.Review)
		if err := rows.Scan(&rv.Coffee, &rv.Cost, &rv.Service, &rv.Hygiene,
			&rv.Ambience, &rv.Food, &rv.TotalScore, &rv.CategoryCount); err != nil {
			return err
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	avgs := computeAverages(reviews)

	const qUpdate = `UPDATE venues
		SET avg_coffee = ?, avg_cost = ?, avg_service = ?, avg_hygiene = ?,
		    avg_ambience = ?, avg_food = ?, avg_overall = ?
		WHERE id = ?`
	_, err = q.ExecContext(ctx, qUpdate,
		avgs.Coffee, avgs.Cost, avgs.Service, avgs.Hygiene,
		avgs.Ambience, avgs.Food, avgs.Overall, venueID)
	return err
}

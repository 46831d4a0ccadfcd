package repository

// review_repository.go defines the ReviewRepo: persistence for reviews
// plus the duplicate-review guard. A review is keyed for duplicate
// purposes by (identity token, venue, visit date). FindConflicting only
// reads; the overwrite-or-discard decision it feeds belongs to the
// handler layer.

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/davidfromkent/coffee-ratings/internal/model"
)

// ReviewRepo encapsulates all database queries related to reviews.
type ReviewRepo struct {
	db *sql.DB // underlying connection pool
}

// NewReviewRepo constructs a ReviewRepo with the provided DB handle.
func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// DB exposes the underlying pool for transaction management in handlers.
func (r *ReviewRepo) DB() *sql.DB { return r.db }

const reviewColumns = `id, venue_id, venue_name_raw, venue_location_raw, reviewer_name,
	identity_token, visit_date, coffee, cost, service, hygiene, ambience, food,
	total_score, category_count, notes, photo_path, created_at, updated_at`

func scanReview(row interface{ Scan(dest ...any) error }) (*model.Review, error) {
	var rv model.Review
	err := row.Scan(
		&rv.ID, &rv.VenueID, &rv.VenueNameRaw, &rv.VenueLocationRaw, &rv.ReviewerName,
		&rv.IdentityToken, &rv.VisitDate, &rv.Coffee, &rv.Cost, &rv.Service,
		&rv.Hygiene, &rv.Ambience, &rv.Food, &rv.TotalScore, &rv.CategoryCount,
		&rv.Notes, &rv.PhotoPath, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// GetByID fetches a review by its ID. It returns ErrReviewNotFound if
// no row is found.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (*model.Review, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`
	rv, err := scanReview(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return rv, nil
}

// FindConflicting looks up an existing review by the duplicate key
// (identity token, venue, visit date). It returns (nil, nil) when no
// conflict exists; absence is the normal case, not an error. The guard
// performs no writes.
func (r *ReviewRepo) FindConflicting(ctx context.Context, q Queryer, identityToken string, venueID uint64, visitDate string) (*model.Review, error) {
	const qConflict = `SELECT ` + reviewColumns + ` FROM reviews
		WHERE identity_token = ? AND venue_id = ? AND visit_date = ?
		LIMIT 1`
	rv, err := scanReview(q.QueryRowContext(ctx, qConflict, identityToken, venueID, visitDate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rv, nil
}

// Create inserts a new review inside the caller's transaction. The
// venue name/location snapshot and the derived total/count must already
// be set by the caller. On success the ID and timestamps are populated.
func (r *ReviewRepo) Create(ctx context.Context, q Queryer, rv *model.Review) error {
	const qInsert = `INSERT INTO reviews (venue_id, venue_name_raw, venue_location_raw,
		reviewer_name, identity_token, visit_date, coffee, cost, service, hygiene,
		ambience, food, total_score, category_count, notes, photo_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, qInsert,
		rv.VenueID, rv.VenueNameRaw, rv.VenueLocationRaw,
		strings.TrimSpace(rv.ReviewerName), rv.IdentityToken, rv.VisitDate,
		rv.Coffee, rv.Cost, rv.Service, rv.Hygiene, rv.Ambience, rv.Food,
		rv.TotalScore, rv.CategoryCount, strings.TrimSpace(rv.Notes), rv.PhotoPath)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)

	const qSelect = `SELECT created_at, updated_at FROM reviews WHERE id = ?`
	return q.QueryRowContext(ctx, qSelect, rv.ID).Scan(&rv.CreatedAt, &rv.UpdatedAt)
}

// Update rewrites the mutable fields of a review inside the caller's
// transaction. The venue reference and the frozen name/location
// snapshot are deliberately not touched. Returns ErrReviewNotFound when
// the row no longer exists.
func (r *ReviewRepo) Update(ctx context.Context, q Queryer, rv *model.Review) error {
	const qUpdate = `UPDATE reviews
		SET reviewer_name = ?, visit_date = ?, coffee = ?, cost = ?, service = ?,
		    hygiene = ?, ambience = ?, food = ?, total_score = ?, category_count = ?,
		    notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	res, err := q.ExecContext(ctx, qUpdate,
		strings.TrimSpace(rv.ReviewerName), rv.VisitDate,
		rv.Coffee, rv.Cost, rv.Service, rv.Hygiene, rv.Ambience, rv.Food,
		rv.TotalScore, rv.CategoryCount, strings.TrimSpace(rv.Notes), rv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is also 0 when nothing changed; treat that as success
		// only if the row still exists.
		var exists int
		if err := q.QueryRowContext(ctx, `SELECT 1 FROM reviews WHERE id = ?`, rv.ID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReviewNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a review inside the caller's transaction. Returns
// ErrReviewNotFound when no row was deleted.
func (r *ReviewRepo) Delete(ctx context.Context, q Queryer, id uint64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// ListByVenue returns all reviews for a venue, newest visit first.
func (r *ReviewRepo) ListByVenue(ctx context.Context, venueID uint64) ([]*model.Review, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews
		WHERE venue_id = ? ORDER BY visit_date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReviewListQuery defines filters & pagination for the reviews listing.
type ReviewListQuery struct {
	VenueID  uint64 // 0 means all venues
	Reviewer string // case-insensitive substring match on reviewer_name
	Sort     string // newest | oldest | score
	Page     int
	PageSize int
}

// List returns a page of reviews plus the total match count.
func (r *ReviewRepo) List(ctx context.Context, q ReviewListQuery) ([]*model.Review, int64, error) {
	where := []string{}
	args := []any{}

	if q.VenueID != 0 {
		where = append(where, "venue_id = ?")
		args = append(args, q.VenueID)
	}
	if q.Reviewer != "" {
		where = append(where, "LOWER(reviewer_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Reviewer)+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "created_at DESC, id DESC"
	switch strings.ToLower(q.Sort) {
	case "oldest":
		order = "created_at ASC, id ASC"
	case "score":
		order = "(total_score / category_count) DESC, id DESC"
	}

	dataSQL := `SELECT ` + reviewColumns + ` FROM reviews
		WHERE ` + cond + `
		ORDER BY ` + order + `
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.Review, 0, q.PageSize)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

package repository

import (
	"context"
	"strings"

	"github.com/davidfromkent/coffee-ratings/internal/model"
)

// VenueSearchQuery defines filters, sorting & pagination for browsing venues.
type VenueSearchQuery struct {
	Text     string // matches name or location, case-insensitive
	Postcode string
	Sort     string // name | rating | newest | reviews | distance
	Lat      *float64
	Lon      *float64
	RadiusKM float64 // only applied when Lat/Lon are set; 0 means no radius cap
	Page     int
	PageSize int
}

// VenueRow is one venue in a listing response, with its derived
// averages, review count and (when the caller supplied coordinates)
// distance from the caller in kilometres.
type VenueRow struct {
	ID          uint64              `json:"id"`
	Name        string              `json:"name"`
	Location    string              `json:"location"`
	Postcode    *string             `json:"postcode,omitempty"`
	Latitude    *float64            `json:"latitude,omitempty"`
	Longitude   *float64            `json:"longitude,omitempty"`
	ReviewCount int64               `json:"review_count"`
	Averages    model.VenueAverages `json:"averages"`
	DistanceKM  *float64            `json:"distance_km,omitempty"`
}

// haversineExpr computes great-circle distance in km between the two
// placeholder coordinates and a venue's stored position. LEAST guards
// ACOS against floating point drift just above 1.
const haversineExpr = `(6371 * ACOS(LEAST(1.0,
	COS(RADIANS(?)) * COS(RADIANS(v.latitude)) * COS(RADIANS(v.longitude) - RADIANS(?)) +
	SIN(RADIANS(?)) * SIN(RADIANS(v.latitude)))))`

func (r *VenueRepo) Search(ctx context.Context, q VenueSearchQuery) ([]VenueRow, int64, error) {
	where := []string{}
	args := []any{}

	if q.Text != "" {
		where = append(where, "(LOWER(v.name) LIKE ? OR LOWER(v.location) LIKE ?)")
		pat := "%" + strings.ToLower(q.Text) + "%"
		args = append(args, pat, pat)
	}
	if q.Postcode != "" {
		where = append(where, "LOWER(v.postcode) = LOWER(?)")
		args = append(args, q.Postcode)
	}

	withDistance := q.Lat != nil && q.Lon != nil
	if withDistance {
		where = append(where, "v.latitude IS NOT NULL AND v.longitude IS NOT NULL")
		if q.RadiusKM > 0 {
			where = append(where, haversineExpr+" <= ?")
			args = append(args, *q.Lat, *q.Lon, *q.Lat, q.RadiusKM)
		}
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM venues v WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	selectCols := `v.id, v.name, v.location, v.postcode, v.latitude, v.longitude,
			v.avg_coffee, v.avg_cost, v.avg_service, v.avg_hygiene, v.avg_ambience,
			v.avg_food, v.avg_overall,
			(SELECT COUNT(*) FROM reviews rv WHERE rv.venue_id = v.id) AS review_count`
	// Placeholders bind in textual order, so the distance expression's
	// arguments in the select list come before the WHERE arguments.
	argsData := []any{}
	if withDistance {
		selectCols += `, ` + haversineExpr + ` AS distance_km`
		argsData = append(argsData, *q.Lat, *q.Lon, *q.Lat)
	}
	argsData = append(argsData, args...)

	order := "LOWER(v.name) ASC, v.id ASC"
	switch strings.ToLower(q.Sort) {
	case "rating":
		order = "v.avg_overall IS NULL, v.avg_overall DESC, v.id ASC"
	case "newest":
		order = "v.created_at DESC, v.id DESC"
	case "reviews":
		order = "review_count DESC, v.id ASC"
	case "distance":
		if withDistance {
			order = "distance_km ASC, v.id ASC"
		}
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT ` + selectCols + `
		FROM venues v
		WHERE ` + cond + `
		ORDER BY ` + order + `
		LIMIT ? OFFSET ?`
	argsData = append(argsData, limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]VenueRow, 0, limit)
	for rows.Next() {
		var d VenueRow
		dest := []any{
			&d.ID, &d.Name, &d.Location, &d.Postcode, &d.Latitude, &d.Longitude,
			&d.Averages.Coffee, &d.Averages.Cost, &d.Averages.Service,
			&d.Averages.Hygiene, &d.Averages.Ambience, &d.Averages.Food,
			&d.Averages.Overall, &d.ReviewCount,
		}
		if withDistance {
			dest = append(dest, &d.DistanceKM)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

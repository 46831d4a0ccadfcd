package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVenueFixture(t *testing.T) (*VenueRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewVenueRepo(db), mock
}

func venueCols() []string {
	return []string{
		"id", "name", "location", "postcode", "latitude", "longitude",
		"created_at", "created_by",
		"avg_coffee", "avg_cost", "avg_service", "avg_hygiene",
		"avg_ambience", "avg_food", "avg_overall",
	}
}

func venueRow(id uint64, name, location string, postcode *string, lat, lon *float64) *sqlmock.Rows {
	return sqlmock.NewRows(venueCols()).AddRow(
		id, name, location, postcode, lat, lon,
		time.Now(), nil,
		nil, nil, nil, nil, nil, nil, nil,
	)
}

func strptr(s string) *string   { return &s }
func f64ptr(f float64) *float64 { return &f }

func TestVenueGetByID_NotFound(t *testing.T) {
	repo, mock := newVenueFixture(t)
	mock.ExpectQuery(`FROM venues WHERE id = `).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(venueCols()))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrVenueNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueResolve_PostcodeMatch(t *testing.T) {
	repo, mock := newVenueFixture(t)
	pc := strptr("CT1 2AB")
	mock.ExpectQuery(`postcode IS NOT NULL`).
		WithArgs("The Grind", "CT1 2AB").
		WillReturnRows(venueRow(7, "The Grind", "Canterbury", pc, f64ptr(51.28), f64ptr(1.08)))

	v, err := repo.Resolve(context.Background(), repo.DB(), ResolveInput{
		Name:     "The Grind",
		Location: "Canterbury",
		Postcode: pc,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueResolve_PostcodeUnmatchedCreatesNewBranch(t *testing.T) {
	// A resolved postcode matching no venue, with every same-named venue
	// for the location carrying a different postcode, means a new branch.
	// Those other branches never show up as candidates.
	repo, mock := newVenueFixture(t)
	pc := strptr("ME14 1XX")
	mock.ExpectQuery(`postcode IS NOT NULL`).
		WithArgs("The Grind", "ME14 1XX").
		WillReturnRows(sqlmock.NewRows(venueCols()))
	mock.ExpectQuery(`postcode IS NULL`).
		WithArgs("The Grind", "Maidstone").
		WillReturnRows(sqlmock.NewRows(venueCols()))
	mock.ExpectExec(`INSERT INTO venues`).
		WithArgs("The Grind", "Maidstone", pc, f64ptr(51.27), f64ptr(0.52), "tok-1").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery(`FROM venues WHERE id = `).
		WithArgs(uint64(12)).
		WillReturnRows(venueRow(12, "The Grind", "Maidstone", pc, f64ptr(51.27), f64ptr(0.52)))

	v, err := repo.Resolve(context.Background(), repo.DB(), ResolveInput{
		Name:      "The Grind",
		Location:  "Maidstone",
		Postcode:  pc,
		Latitude:  f64ptr(51.27),
		Longitude: f64ptr(0.52),
		CreatedBy: "tok-1",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueResolve_PostcodeBackfillsPostcodelessMatch(t *testing.T) {
	// A venue recorded earlier without coordinates has no postcode. The
	// next submission for the same name+location that resolves a postcode
	// must find that venue and fill in the postcode, not duplicate it.
	repo, mock := newVenueFixture(t)
	pc := strptr("CT1 2AB")
	lat, lon := f64ptr(51.28), f64ptr(1.08)
	mock.ExpectQuery(`postcode IS NOT NULL`).
		WithArgs("The Grind", "CT1 2AB").
		WillReturnRows(sqlmock.NewRows(venueCols()))
	mock.ExpectQuery(`postcode IS NULL`).
		WithArgs("The Grind", "Canterbury").
		WillReturnRows(venueRow(7, "The Grind", "Canterbury", nil, nil, nil))
	mock.ExpectExec(`COALESCE`).
		WithArgs(pc, lat, lon, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	v, err := repo.Resolve(context.Background(), repo.DB(), ResolveInput{
		Name:      "The Grind",
		Location:  "Canterbury",
		Postcode:  pc,
		Latitude:  lat,
		Longitude: lon,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v.ID)
	require.NotNil(t, v.Postcode)
	assert.Equal(t, "CT1 2AB", *v.Postcode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueResolve_PostcodeTwoPostcodelessCandidatesAmbiguous(t *testing.T) {
	repo, mock := newVenueFixture(t)
	pc := strptr("TN23 1AA")
	mock.ExpectQuery(`postcode IS NOT NULL`).
		WithArgs("Costa", "TN23 1AA").
		WillReturnRows(sqlmock.NewRows(venueCols()))
	rows := sqlmock.NewRows(venueCols()).
		AddRow(uint64(1), "Costa", "Ashford", nil, nil, nil, time.Now(), nil, nil, nil, nil, nil, nil, nil, nil).
		AddRow(uint64(2), "Costa", "Ashford", nil, nil, nil, time.Now(), nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(`postcode IS NULL`).
		WithArgs("Costa", "Ashford").
		WillReturnRows(rows)

	_, err := repo.Resolve(context.Background(), repo.DB(), ResolveInput{
		Name:     "Costa",
		Location: "Ashford",
		Postcode: pc,
	})
	assert.ErrorIs(t, err, ErrAmbiguousVenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueResolve_SingleNameLocationMatch(t *testing.T) {
	repo, mock := newVenueFixture(t)
	mock.ExpectQuery(`LOWER\(location\)`).
		WithArgs("Beanery", "Dover").
		WillReturnRows(venueRow(3, "Beanery", "Dover", strptr("CT16 1AA"), f64ptr(51.12), f64ptr(1.31)))

	v, err := repo.Resolve(context.Background(), repo.DB(), ResolveInput{
		Name:     "Beanery",
		Location: "Dover",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueResolve_AmbiguousWithoutPostcode(t *testing.T) {
	repo, mock := newVenueFixture(t)
	rows := sqlmock.NewRows(venueCols()).
		AddRow(uint64(1), "Costa", "Ashford", strptr("TN23 1AA"), nil, nil, time.Now(), nil, nil, nil, nil, nil, nil, nil, nil).
		AddRow(uint64(2), "Costa", "Ashford", strptr("TN24 8DN"), nil, nil, time.Now(), nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(`LOWER\(location\)`).
		WithArgs("Costa", "Ashford").
		WillReturnRows(rows)

	_, err := repo.Resolve(context.Background(), repo.DB(), ResolveInput{
		Name:     "Costa",
		Location: "Ashford",
	})
	assert.ErrorIs(t, err, ErrAmbiguousVenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueResolve_NoMatchCreates(t *testing.T) {
	repo, mock := newVenueFixture(t)
	mock.ExpectQuery(`LOWER\(location\)`).
		WithArgs("New Cafe", "Whitstable").
		WillReturnRows(sqlmock.NewRows(venueCols()))
	mock.ExpectExec(`INSERT INTO venues`).
		WithArgs("New Cafe", "Whitstable", nil, nil, nil, "tok-2").
		WillReturnResult(sqlmock.NewResult(20, 1))
	mock.ExpectQuery(`FROM venues WHERE id = `).
		WithArgs(uint64(20)).
		WillReturnRows(venueRow(20, "New Cafe", "Whitstable", nil, nil, nil))

	v, err := repo.Resolve(context.Background(), repo.DB(), ResolveInput{
		Name:      "New Cafe",
		Location:  "Whitstable",
		CreatedBy: "tok-2",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), v.ID)
	assert.Nil(t, v.Postcode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueResolve_BackfillsMissingCoordinates(t *testing.T) {
	repo, mock := newVenueFixture(t)
	lat, lon := f64ptr(51.36), f64ptr(1.44)
	mock.ExpectQuery(`LOWER\(location\)`).
		WithArgs("Beanery", "Margate").
		WillReturnRows(venueRow(5, "Beanery", "Margate", strptr("CT9 1AA"), nil, nil))
	mock.ExpectExec(`COALESCE`).
		WithArgs(nil, lat, lon, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	v, err := repo.Resolve(context.Background(), repo.DB(), ResolveInput{
		Name:      "Beanery",
		Location:  "Margate",
		Latitude:  lat,
		Longitude: lon,
	})
	require.NoError(t, err)
	require.NotNil(t, v.Latitude)
	assert.InDelta(t, 51.36, *v.Latitude, 1e-9)
	// Stored postcode survives the backfill untouched.
	require.NotNil(t, v.Postcode)
	assert.Equal(t, "CT9 1AA", *v.Postcode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeAverages_NoReviewsResetsToNull(t *testing.T) {
	repo, mock := newVenueFixture(t)
	mock.ExpectQuery(`FROM reviews WHERE venue_id = `).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{
			"coffee", "cost", "service", "hygiene", "ambience", "food",
			"total_score", "category_count",
		}))
	mock.ExpectExec(`UPDATE venues`).
		WithArgs(nil, nil, nil, nil, nil, nil, nil, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecomputeAverages(context.Background(), repo.DB(), 4)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeAverages_WritesDerivedValues(t *testing.T) {
	repo, mock := newVenueFixture(t)
	rows := sqlmock.NewRows([]string{
		"coffee", "cost", "service", "hygiene", "ambience", "food",
		"total_score", "category_count",
	}).
		AddRow(5, 4, 5, 5, 5, 0, 24, 5).
		AddRow(3, 3, 3, 3, 3, 3, 18, 6)
	mock.ExpectQuery(`FROM reviews WHERE venue_id = `).
		WithArgs(uint64(4)).
		WillReturnRows(rows)
	mock.ExpectExec(`UPDATE venues`).
		WithArgs(4.0, 3.5, 4.0, 4.0, 4.0, 3.0, 3.9, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecomputeAverages(context.Background(), repo.DB(), 4)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeAverages_MissingVenueIsNoop(t *testing.T) {
	// The UPDATE touching zero rows is not an error; the venue is gone
	// and there is nothing to keep consistent.
	repo, mock := newVenueFixture(t)
	mock.ExpectQuery(`FROM reviews WHERE venue_id = `).
		WithArgs(uint64(999)).
		WillReturnRows(sqlmock.NewRows([]string{
			"coffee", "cost", "service", "hygiene", "ambience", "food",
			"total_score", "category_count",
		}))
	mock.ExpectExec(`UPDATE venues`).
		WithArgs(nil, nil, nil, nil, nil, nil, nil, uint64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecomputeAverages(context.Background(), repo.DB(), 999)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

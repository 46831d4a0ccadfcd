package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidfromkent/coffee-ratings/internal/repository"
)

func newHandlerFixture(t *testing.T) (*ReviewHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	venues := repository.NewVenueRepo(db)
	reviews := repository.NewReviewRepo(db)
	return NewReviewHandler(venues, reviews, nil, nil), mock
}

func jsonRequest(t *testing.T, method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func responseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func venueTestCols() []string {
	return []string{
		"id", "name", "location", "postcode", "latitude", "longitude",
		"created_at", "created_by",
		"avg_coffee", "avg_cost", "avg_service", "avg_hygiene",
		"avg_ambience", "avg_food", "avg_overall",
	}
}

func reviewTestCols() []string {
	return []string{
		"id", "venue_id", "venue_name_raw", "venue_location_raw", "reviewer_name",
		"identity_token", "visit_date", "coffee", "cost", "service", "hygiene",
		"ambience", "food", "total_score", "category_count", "notes", "photo_path",
		"created_at", "updated_at",
	}
}

func storedReviewRow(id, venueID uint64, token, visitDate string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(reviewTestCols()).AddRow(
		id, venueID, "The Grind", "Canterbury", "Dave",
		token, visitDate, 5, 4, 5, 5, 5, 0, 24, 5, "", nil,
		now, now,
	)
}

func submitBody(token, visitDate string) map[string]any {
	return map[string]any{
		"venue_name":     "The Grind",
		"location":       "Canterbury",
		"visit_date":     visitDate,
		"reviewer_name":  "Dave",
		"identity_token": token,
		"coffee":         5,
		"cost":           4,
		"service":        5,
		"hygiene":        5,
		"ambience":       5,
		"food":           0,
	}
}

func TestParseVisitDate(t *testing.T) {
	got, err := parseVisitDate(" 2026-08-20 ")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-20", got)

	_, err = parseVisitDate("20/08/2026")
	assert.Error(t, err)

	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	_, err = parseVisitDate(tomorrow)
	assert.ErrorIs(t, err, errFutureDate)

	today := time.Now().UTC().Format("2006-01-02")
	got, err = parseVisitDate(today)
	require.NoError(t, err)
	assert.Equal(t, today, got)
}

func TestSubmit_FutureDateRejectedBeforeAnyWrite(t *testing.T) {
	h, mock := newHandlerFixture(t)
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	c, rec := jsonRequest(t, http.MethodPost, "/v1/reviews", submitBody("tok-1", tomorrow))

	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", responseBody(t, rec)["error"])
	// No expectations registered: the date check fires before the
	// database is touched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_MissingIdentityToken(t *testing.T) {
	h, mock := newHandlerFixture(t)
	c, rec := jsonRequest(t, http.MethodPost, "/v1/reviews", submitBody("", "2026-08-20"))

	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_DuplicateAnswers409WithoutWriting(t *testing.T) {
	h, mock := newHandlerFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`LOWER\(location\)`).
		WithArgs("The Grind", "Canterbury").
		WillReturnRows(sqlmock.NewRows(venueTestCols()).AddRow(
			uint64(7), "The Grind", "Canterbury", nil, nil, nil,
			time.Now(), nil, nil, nil, nil, nil, nil, nil, nil,
		))
	mock.ExpectQuery(`identity_token = \?`).
		WithArgs("tok-1", uint64(7), "2026-08-20").
		WillReturnRows(storedReviewRow(11, 7, "tok-1", "2026-08-20"))
	mock.ExpectRollback()

	c, rec := jsonRequest(t, http.MethodPost, "/v1/reviews", submitBody("tok-1", "2026-08-20"))
	require.NoError(t, h.Submit(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := responseBody(t, rec)
	assert.Equal(t, "duplicate_review", body["error"])
	assert.Equal(t, "/v1/reviews/11/resolution", body["resolution_url"])
	assert.NotNil(t, body["existing"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_AmbiguousVenueAnswers409(t *testing.T) {
	h, mock := newHandlerFixture(t)

	mock.ExpectBegin()
	rows := sqlmock.NewRows(venueTestCols()).
		AddRow(uint64(1), "The Grind", "Canterbury", nil, nil, nil, time.Now(), nil, nil, nil, nil, nil, nil, nil, nil).
		AddRow(uint64(2), "The Grind", "Canterbury", nil, nil, nil, time.Now(), nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(`LOWER\(location\)`).
		WithArgs("The Grind", "Canterbury").
		WillReturnRows(rows)
	mock.ExpectRollback()

	c, rec := jsonRequest(t, http.MethodPost, "/v1/reviews", submitBody("tok-1", "2026-08-20"))
	require.NoError(t, h.Submit(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ambiguous_venue", responseBody(t, rec)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDuplicate_Discard(t *testing.T) {
	h, mock := newHandlerFixture(t)

	mock.ExpectQuery(`FROM reviews WHERE id = `).
		WithArgs(uint64(11)).
		WillReturnRows(storedReviewRow(11, 7, "tok-1", "2026-08-20"))

	c, rec := jsonRequest(t, http.MethodPost, "/v1/reviews/11/resolution", map[string]any{
		"action":         "discard",
		"identity_token": "tok-1",
	})
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.ResolveDuplicate(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "discarded", responseBody(t, rec)["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDuplicate_MismatchedConfirmationRefused(t *testing.T) {
	h, mock := newHandlerFixture(t)

	mock.ExpectQuery(`FROM reviews WHERE id = `).
		WithArgs(uint64(11)).
		WillReturnRows(storedReviewRow(11, 7, "tok-1", "2026-08-20"))

	// Right token but wrong venue: the confirmation is stale or forged
	// and must not touch the stored review.
	c, rec := jsonRequest(t, http.MethodPost, "/v1/reviews/11/resolution", map[string]any{
		"action":         "overwrite",
		"venue_id":       99,
		"visit_date":     "2026-08-20",
		"reviewer_name":  "Dave",
		"identity_token": "tok-1",
		"coffee":         1, "cost": 1, "service": 1, "hygiene": 1, "ambience": 1,
	})
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.ResolveDuplicate(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", responseBody(t, rec)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDuplicate_UnknownReview(t *testing.T) {
	h, mock := newHandlerFixture(t)

	mock.ExpectQuery(`FROM reviews WHERE id = `).
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows(reviewTestCols()))

	c, rec := jsonRequest(t, http.MethodPost, "/v1/reviews/404/resolution", map[string]any{
		"action": "discard",
	})
	c.SetParamNames("id")
	c.SetParamValues("404")
	require.NoError(t, h.ResolveDuplicate(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_WrongTokenRefused(t *testing.T) {
	h, mock := newHandlerFixture(t)

	mock.ExpectQuery(`FROM reviews WHERE id = `).
		WithArgs(uint64(11)).
		WillReturnRows(storedReviewRow(11, 7, "tok-1", "2026-08-20"))

	c, rec := jsonRequest(t, http.MethodDelete, "/v1/reviews/11", map[string]any{
		"identity_token": "someone-else",
	})
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", responseBody(t, rec)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_HeaderTokenPreferredOverBody(t *testing.T) {
	h, mock := newHandlerFixture(t)

	mock.ExpectQuery(`FROM reviews WHERE id = `).
		WithArgs(uint64(11)).
		WillReturnRows(storedReviewRow(11, 7, "tok-1", "2026-08-20"))

	// The body claims the right token but the header says otherwise; the
	// header wins and the edit is refused.
	c, rec := jsonRequest(t, http.MethodPut, "/v1/reviews/11", map[string]any{
		"visit_date":     "2026-08-20",
		"reviewer_name":  "Dave",
		"identity_token": "tok-1",
		"coffee":         2, "cost": 2, "service": 2, "hygiene": 2, "ambience": 2,
	})
	c.Set("identity_token", "intruder")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewView_OmitsIdentityToken(t *testing.T) {
	h, mock := newHandlerFixture(t)

	mock.ExpectQuery(`FROM reviews WHERE id = `).
		WithArgs(uint64(11)).
		WillReturnRows(storedReviewRow(11, 7, "secret-token", "2026-08-20"))

	rv, err := h.Reviews.GetByID(context.Background(), 11)
	require.NoError(t, err)
	raw, err := json.Marshal(reviewView(rv))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")
	assert.NoError(t, mock.ExpectationsWereMet())
}

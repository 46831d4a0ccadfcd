package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoresTotals_AllCategoriesRated(t *testing.T) {
	s := Scores{Coffee: 3, Cost: 3, Service: 3, Hygiene: 3, Ambience: 3, Food: 3}
	total, count := s.Totals()
	assert.Equal(t, 18, total)
	assert.Equal(t, 6, count)
}

func TestScoresTotals_FoodNotApplicable(t *testing.T) {
	s := Scores{Coffee: 5, Cost: 4, Service: 5, Hygiene: 5, Ambience: 5, Food: 0}
	total, count := s.Totals()
	assert.Equal(t, 24, total)
	assert.Equal(t, 5, count)
}

func TestScoresTotals_ZeroValueScores(t *testing.T) {
	// All-zero scores still count the five mandatory categories.
	total, count := Scores{}.Totals()
	assert.Equal(t, 0, total)
	assert.Equal(t, 5, count)
}

func TestScoresAverage(t *testing.T) {
	withFood := Scores{Coffee: 3, Cost: 3, Service: 3, Hygiene: 3, Ambience: 3, Food: 3}
	assert.InDelta(t, 3.0, withFood.Average(), 1e-9)

	withoutFood := Scores{Coffee: 5, Cost: 4, Service: 5, Hygiene: 5, Ambience: 5}
	assert.InDelta(t, 4.8, withoutFood.Average(), 1e-9)
}

func TestScoresAverage_HighScoresAllowed(t *testing.T) {
	// Scores are not clamped to a 1-5 range.
	s := Scores{Coffee: 10, Cost: 10, Service: 10, Hygiene: 10, Ambience: 10, Food: 0}
	total, count := s.Totals()
	assert.Equal(t, 50, total)
	assert.Equal(t, 5, count)
	assert.InDelta(t, 10.0, s.Average(), 1e-9)
}

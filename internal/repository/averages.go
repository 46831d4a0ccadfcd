package repository

import "github.com/davidfromkent/coffee-ratings/internal/model"

// computeAverages folds a venue's full review set into its stored
// averages. It is a pure function with no retained state, so running it
// twice over the same reviews yields identical results.
//
// Rules:
//   - no reviews at all -> every field nil ("unknown", never zero)
//   - the five always-present categories average across all reviews
//   - food averages only across reviews where food participated (score != 0);
//     nil when no review rated food
//   - overall is the mean of each review's own per-review average, so a
//     five-category review carries the same weight as a six-category one
func computeAverages(reviews []*model.Review) model.VenueAverages {
	if len(reviews) == 0 {
		return model.VenueAverages{}
	}

	var coffee, cost, service, hygiene, ambience, overall float64
	var food float64
	foodN := 0

	for _, r := range reviews {
		coffee += float64(r.Coffee)
		cost += float64(r.Cost)
		service += float64(r.Service)
		hygiene += float64(r.Hygiene)
		ambience += float64(r.Ambience)
		overall += float64(r.TotalScore) / float64(r.CategoryCount)
		if r.Food != 0 {
			food += float64(r.Food)
			foodN++
		}
	}

	n := float64(len(reviews))
	avg := func(sum float64) *float64 {
		v := sum / n
		return &v
	}

	out := model.VenueAverages{
		Coffee:   avg(coffee),
		Cost:     avg(cost),
		Service:  avg(service),
		Hygiene:  avg(hygiene),
		Ambience: avg(ambience),
		Overall:  avg(overall),
	}
	if foodN > 0 {
		v := food / float64(foodN)
		out.Food = &v
	}
	return out
}

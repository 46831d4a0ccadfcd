package model

import "time"

// Scores groups the six rated categories of a single review. The five
// categories coffee, cost, service, hygiene and ambience are always
// rated. Food is optional: a value of exactly 0 means the category did
// not apply to the visit and is excluded from the total and the count.
type Scores struct {
	Coffee   int `json:"coffee"`
	Cost     int `json:"cost"`
	Service  int `json:"service"`
	Hygiene  int `json:"hygiene"`
	Ambience int `json:"ambience"`
	Food     int `json:"food"`
}

// Totals returns the sum of the participating category scores and the
// number of categories that participated (5 when food is 0, else 6).
func (s Scores) Totals() (total, count int) {
	total = s.Coffee + s.Cost + s.Service + s.Hygiene + s.Ambience
	count = 5
	if s.Food != 0 {
		total += s.Food
		count++
	}
	return total, count
}

// Average returns the review's own mean score, total over participating
// count. This per-review mean is the unit the venue overall average is
// built from, so a five-category review weighs the same as a six-category one.
func (s Scores) Average() float64 {
	total, count := s.Totals()
	return float64(total) / float64(count)
}

// Review is a single submitter's dated rating of a venue. It belongs to
// exactly one venue but also freezes the venue name and location text as
// they stood at submission time, for history. A review may only be
// edited or deleted by the submitter holding the same identity token.
//
// Fields:
//  ID               – primary key identifier.
//  VenueID          – venue being reviewed.
//  VenueNameRaw     – venue name snapshot, never updated after creation.
//  VenueLocationRaw – venue location snapshot, never updated after creation.
//  ReviewerName     – display name entered by the submitter.
//  IdentityToken    – opaque per-device token scoping edit/delete permission.
//  VisitDate        – calendar date of the visit (YYYY-MM-DD, no time part).
//  Scores           – the six category scores (embedded).
//  TotalScore       – sum of participating scores, derived via Totals().
//  CategoryCount    – participating category count, derived via Totals().
//  Notes            – free-text notes.
//  PhotoPath        – optional path of an uploaded photo.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Review struct {
	ID               uint64  // reviews.id
	VenueID          uint64  // reviews.venue_id
	VenueNameRaw     string  // reviews.venue_name_raw
	VenueLocationRaw string  // reviews.venue_location_raw
	ReviewerName     string  // reviews.reviewer_name
	IdentityToken    string  // reviews.identity_token
	VisitDate        string  // reviews.visit_date (ISO date, no time part)
	Scores                   // reviews.coffee .. reviews.food
	TotalScore       int     // reviews.total_score
	CategoryCount    int     // reviews.category_count
	Notes            string  // reviews.notes
	PhotoPath        *string // reviews.photo_path (nullable)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Package queue defines message payloads exchanged over the message broker.
package queue

// ReviewRecordedEvent is published whenever a review is created,
// updated (including a duplicate overwrite) or deleted. It carries
// enough information for downstream consumers to log or trigger
// analytics without querying the primary database.
type ReviewRecordedEvent struct {
	Action        string   `json:"action"` // created | updated | deleted
	ReviewID      uint64   `json:"review_id"`
	VenueID       uint64   `json:"venue_id"`
	VenueName     string   `json:"venue_name"`
	ReviewerName  string   `json:"reviewer_name"`
	VisitDate     string   `json:"visit_date"`
	TotalScore    int      `json:"total_score"`
	CategoryCount int      `json:"category_count"`
	VenueOverall  *float64 `json:"venue_overall,omitempty"` // recomputed venue average, absent when unknown
	OccurredAt    string   `json:"occurred_at"`
}

package model

import "time"

// Venue represents a coffee-serving location. Venues are identified by
// their name and free-text location; when two branches share a name the
// postcode is used to tell them apart. This struct corresponds to a row
// in the `venues` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – venue name as first submitted (whitespace-trimmed).
//  Location  – free-text location string (whitespace-trimmed).
//  Postcode  – optional postcode used to disambiguate branches.
//  Latitude  – optional latitude supplied with a submission.
//  Longitude – optional longitude supplied with a submission.
//  CreatedAt – timestamp when the venue row was created.
//  CreatedBy – identity token of the submitter who first created it.
//  Averages  – derived per-category means, recomputed on every review write.
type Venue struct {
	ID        uint64    // venues.id
	Name      string    // venues.name
	Location  string    // venues.location
	Postcode  *string   // venues.postcode (nullable)
	Latitude  *float64  // venues.latitude (nullable)
	Longitude *float64  // venues.longitude (nullable)
	CreatedAt time.Time // venues.created_at
	CreatedBy *string   // venues.created_by (nullable)
	Averages  VenueAverages
}

// VenueAverages holds the derived mean scores stored on the venue row.
// A nil pointer means "unknown": either the venue has no reviews at all,
// or (for Food) no review rated that category. These values are never
// written anywhere except by the average recomputation in the repository.
type VenueAverages struct {
	Coffee   *float64 `json:"avg_coffee"`
	Cost     *float64 `json:"avg_cost"`
	Service  *float64 `json:"avg_service"`
	Hygiene  *float64 `json:"avg_hygiene"`
	Ambience *float64 `json:"avg_ambience"`
	Food     *float64 `json:"avg_food"`
	Overall  *float64 `json:"avg_overall"`
}

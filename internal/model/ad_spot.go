package model

import "time"

// Ad spot lifecycle states.  PENDING is the only initial state; both
// CONFIRMED and FAILED are terminal for the physical airing attempt.
// A failed spot can only be continued by admitting a brand new spot
// that references it through RescheduledFromID.
const (
	SpotPending   = "PENDING"
	SpotConfirmed = "CONFIRMED"
	SpotFailed    = "FAILED"
)

// AdSpot is one scheduled (or historical) ad airing request consuming
// some fraction of a deal's spot pool.  Rows are never physically
// deleted: failed and superseded spots remain as the audit trail.
// Category, brand and sub-brand are pure classification references and
// have no effect on capacity accounting.
//
// Fields:
//  ID                – primary key identifier.
//  AdminID           – operator who scheduled the airing.
//  DealID            – deal whose capacity the spot consumes.
//  CategoryID        – optional classification reference.
//  BrandID           – optional classification reference.
//  SubBrandID        – optional classification reference.
//  AdTitle           – creative title shown in reports.
//  ScheduledDate     – calendar day of the airing.
//  DurationSeconds   – airing length in seconds (> 0).
//  AiringCount       – number of airings on that day (>= 1).
//  Status            – SpotPending, SpotConfirmed or SpotFailed.
//  FailureReason     – set iff Status is SpotFailed.
//  EventFeeCents     – special event surcharge resolved at admission
//                      time; immutable once admitted.
//  ClientRef         – optional idempotency key, unique per deal.
//  RescheduledFromID – failed spot this one supersedes, if any.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type AdSpot struct {
	ID                uint64    // ad_spots.id
	AdminID           uint64    // ad_spots.admin_id
	DealID            uint64    // ad_spots.deal_id
	CategoryID        *uint64   // ad_spots.category_id (nullable)
	BrandID           *uint64   // ad_spots.brand_id (nullable)
	SubBrandID        *uint64   // ad_spots.sub_brand_id (nullable)
	AdTitle           string    // ad_spots.ad_title
	ScheduledDate     time.Time // ad_spots.scheduled_date (DATE, UTC)
	DurationSeconds   uint32    // ad_spots.duration_seconds
	AiringCount       uint32    // ad_spots.airing_count
	Status            string    // ad_spots.status
	FailureReason     *string   // ad_spots.failure_reason (nullable)
	EventFeeCents     uint64    // ad_spots.event_fee_cents
	ClientRef         *string   // ad_spots.client_ref (nullable)
	RescheduledFromID *uint64   // ad_spots.rescheduled_from_id (nullable)
	CreatedAt         time.Time // ad_spots.created_at
	UpdatedAt         time.Time // ad_spots.updated_at
}

// SecondsConsumed returns the total airing seconds this spot reserves:
// duration multiplied by the number of airings.
func (s *AdSpot) SecondsConsumed() int64 {
	return int64(s.DurationSeconds) * int64(s.AiringCount)
}

// CountsTowardCapacity reports whether the spot currently reserves
// capacity.  Pending and confirmed spots consume; failed spots release
// their share simply by being excluded here.
func (s *AdSpot) CountsTowardCapacity() bool {
	return s.Status == SpotPending || s.Status == SpotConfirmed
}

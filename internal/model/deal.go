package model

import "time"

// Deal represents a purchased advertising contract with a television
// channel.  A deal grants a fixed pool of spots over a date range, each
// spot worth at most MaxSecondsPerSpot seconds of airing.  Deals are
// created at contract signing and are immutable apart from
// administrative correction.  They are never physically deleted while
// ad spots reference them; DeletedAt implements a soft delete instead.
//
// Fields:
//  ID                – primary key identifier.
//  AdminID           – operator account that owns the contract.
//  ChannelName       – television channel the contract was signed with.
//  StartDate         – first day spots may be scheduled (inclusive).
//  EndDate           – last day spots may be scheduled (inclusive,
//                      must not precede StartDate).
//  TotalSpots        – base number of spots purchased (>= 0).
//  MaxSecondsPerSpot – maximum airing seconds one spot is worth (> 0).
//  DailyCapSeconds   – optional ceiling on airing seconds consumable on
//                      a single calendar day (nil means uncapped).
//  InitialPaymentCents – amount paid at signing, recorded in the
//                      payment ledger as the "initial" entry.
//  DeletedAt         – soft delete marker (nil while active).
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Deal struct {
	ID                  uint64     // deals.id
	AdminID             uint64     // deals.admin_id
	ChannelName         string     // deals.channel_name
	StartDate           time.Time  // deals.start_date (DATE, UTC)
	EndDate             time.Time  // deals.end_date (DATE, UTC)
	TotalSpots          uint32     // deals.total_spots
	MaxSecondsPerSpot   uint32     // deals.max_seconds_per_spot
	DailyCapSeconds     *uint32    // deals.daily_cap_seconds (nullable)
	InitialPaymentCents uint64     // deals.initial_payment_cents
	DeletedAt           *time.Time // deals.deleted_at (nullable)
	CreatedAt           time.Time  // deals.created_at
	UpdatedAt           time.Time  // deals.updated_at
}

// ContainsDate reports whether the given calendar day falls inside the
// deal's contract window.  Both boundaries are inclusive: a spot dated
// exactly on EndDate is still inside the window.  The comparison is
// done on UTC calendar days, ignoring the time of day.
func (d *Deal) ContainsDate(day time.Time) bool {
	day = day.UTC().Truncate(24 * time.Hour)
	start := d.StartDate.UTC().Truncate(24 * time.Hour)
	end := d.EndDate.UTC().Truncate(24 * time.Hour)
	return !day.Before(start) && !day.After(end)
}

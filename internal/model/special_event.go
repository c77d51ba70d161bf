package model

import "time"

// SpecialEvent is a pricing override window attached to a deal, for
// example a sports final or an election night where the channel charges
// an extra fee per airing.  Event windows usually nest inside the
// deal's date range but may also extend beyond it, in which case they
// widen the schedulable window for their duration.  Windows of the
// same deal must not overlap; the repository rejects overlapping
// creations.
//
// Fields:
//  ID             – primary key identifier.
//  DealID         – deal this event belongs to.
//  EventName      – human readable label ("Cup Final").
//  StartDate      – first day of the pricing window (inclusive).
//  EndDate        – last day of the pricing window (inclusive).
//  ExtraFeeCents  – surcharge resolved onto every spot admitted inside
//                   the window.
//  CreatedAt      – creation timestamp.
type SpecialEvent struct {
	ID            uint64    // special_events.id
	DealID        uint64    // special_events.deal_id
	EventName     string    // special_events.event_name
	StartDate     time.Time // special_events.start_date (DATE, UTC)
	EndDate       time.Time // special_events.end_date (DATE, UTC)
	ExtraFeeCents uint64    // special_events.extra_fee_cents
	CreatedAt     time.Time // special_events.created_at
}

// ContainsDate reports whether the given calendar day falls inside the
// event window, boundaries inclusive, compared on UTC calendar days.
func (e *SpecialEvent) ContainsDate(day time.Time) bool {
	day = day.UTC().Truncate(24 * time.Hour)
	start := e.StartDate.UTC().Truncate(24 * time.Hour)
	end := e.EndDate.UTC().Truncate(24 * time.Hour)
	return !day.Before(start) && !day.After(end)
}

// Overlaps reports whether two event windows share at least one
// calendar day.  Used to enforce the no-overlap rule at creation time.
func (e *SpecialEvent) Overlaps(start, end time.Time) bool {
	s := start.UTC().Truncate(24 * time.Hour)
	x := end.UTC().Truncate(24 * time.Hour)
	es := e.StartDate.UTC().Truncate(24 * time.Hour)
	ee := e.EndDate.UTC().Truncate(24 * time.Hour)
	return !s.After(ee) && !es.After(x)
}

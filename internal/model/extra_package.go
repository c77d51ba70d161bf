package model

import "time"

// ExtraPackage is a supplemental capacity purchase that adds spots to a
// deal's pool.  A package may optionally be tied to a special event for
// bookkeeping, but its spots always join the deal-wide pool: capacity
// is defined as the base total plus the sum of all committed packages.
// A package becomes available the moment it is persisted; PackageDate
// records the purchase date for reporting only.
//
// Fields:
//  ID              – primary key identifier.
//  DealID          – deal whose pool the package extends.
//  AdditionalSpots – spots added to the pool (>= 1).
//  AmountPaidCents – purchase amount, mirrored in the payment ledger.
//  PackageDate     – purchase date.
//  SpecialEventID  – optional event this purchase was made for.
//  CreatedAt       – creation timestamp.
type ExtraPackage struct {
	ID              uint64    // extra_packages.id
	DealID          uint64    // extra_packages.deal_id
	AdditionalSpots uint32    // extra_packages.additional_spots
	AmountPaidCents uint64    // extra_packages.amount_paid_cents
	PackageDate     time.Time // extra_packages.package_date (DATE, UTC)
	SpecialEventID  *uint64   // extra_packages.special_event_id (nullable)
	CreatedAt       time.Time // extra_packages.created_at
}

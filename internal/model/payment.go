package model

import "time"

// Payment types recorded in the append-only payment ledger.  The type
// ties the payment to what was bought: the initial contract, an extra
// capacity package, or a special event surcharge.
const (
	PaymentInitial      = "initial"
	PaymentExtraPackage = "extra_package"
	PaymentSpecialEvent = "special_event"
)

// Payment is one row of the append-only payment audit trail.  Rows are
// only ever inserted, never updated or deleted; reporting reads them,
// admission logic never does.
//
// Fields:
//  ID             – primary key identifier.
//  DealID         – deal the payment belongs to.
//  AmountCents    – amount paid.
//  PaidAt         – payment date.
//  Type           – one of PaymentInitial, PaymentExtraPackage,
//                   PaymentSpecialEvent.
//  ExtraPackageID – package the payment covers, when Type is
//                   PaymentExtraPackage.
//  CreatedAt      – insertion timestamp.
type Payment struct {
	ID             uint64    // payments.id
	DealID         uint64    // payments.deal_id
	AmountCents    uint64    // payments.amount_cents
	PaidAt         time.Time // payments.paid_at (DATE, UTC)
	Type           string    // payments.type
	ExtraPackageID *uint64   // payments.extra_package_id (nullable)
	CreatedAt      time.Time // payments.created_at
}

package scheduler

import (
	"context"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// DealAggregate is everything the admission checks need about one deal,
// loaded atomically: the deal row plus its special events, committed
// extra packages and all non-deleted ad spots (failed history
// included; the ledger filters by status itself).
type DealAggregate struct {
	Deal          *model.Deal
	SpecialEvents []model.SpecialEvent
	ExtraPackages []model.ExtraPackage
	AdSpots       []model.AdSpot
}

// Tx is the transactional view the scheduler operates through.  An
// implementation must guarantee that DealAggregate takes a lock that
// serializes concurrent admissions on the same deal for the duration
// of the transaction; otherwise two concurrent admits can both observe
// sufficient capacity and overshoot the contract.
type Tx interface {
	// DealAggregate loads and locks the deal with its children.
	// Returns ErrNotFound when the deal does not exist or is soft
	// deleted.
	DealAggregate(ctx context.Context, dealID uint64) (*DealAggregate, error)

	// AdSpotByClientRef returns the spot previously admitted under the
	// given idempotency key for the deal, or (nil, nil) when none
	// exists.
	AdSpotByClientRef(ctx context.Context, dealID uint64, ref string) (*model.AdSpot, error)

	// InsertAdSpot persists a new spot and fills in its generated ID
	// and timestamps.
	InsertAdSpot(ctx context.Context, spot *model.AdSpot) error

	// AdSpotByID loads and locks a single spot.  Returns ErrNotFound
	// when it does not exist.
	AdSpotByID(ctx context.Context, spotID uint64) (*model.AdSpot, error)

	// UpdateAdSpotStatus moves a spot to the given status, recording
	// the failure reason when transitioning to failed.
	UpdateAdSpotStatus(ctx context.Context, spotID uint64, status string, failureReason *string) error
}

// Store runs scheduler work inside a single database transaction.  The
// function's error aborts the transaction; ErrTxConflict signals a
// serialization failure the scheduler should retry.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
	"github.com/iliyamo/tv-spot-scheduler/internal/scheduler"
)

// Store ties the individual repositories together behind the
// scheduler's transactional boundary.  Every scheduler operation runs
// through WithinTx: one BEGIN, the callback, COMMIT or ROLLBACK.  The
// per-deal FOR UPDATE lock taken by DealAggregate serializes
// concurrent admissions on a deal, and MySQL deadlock or lock-wait
// errors are mapped onto scheduler.ErrTxConflict so the scheduler's
// bounded retry can take over.
type Store struct {
	db       *sql.DB
	deals    *DealRepo
	events   *SpecialEventRepo
	packages *ExtraPackageRepo
	spots    *AdSpotRepo
}

// NewStore constructs a Store over the shared database handle.
func NewStore(db *sql.DB, deals *DealRepo, events *SpecialEventRepo, packages *ExtraPackageRepo, spots *AdSpotRepo) *Store {
	if db == nil || deals == nil || events == nil || packages == nil || spots == nil {
		panic("nil dependency passed to NewStore")
	}
	return &Store{db: db, deals: deals, events: events, packages: packages, spots: spots}
}

// WithinTx implements scheduler.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx scheduler.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{store: s, tx: tx}); err != nil {
		return mapTxError(err)
	}
	if err := tx.Commit(); err != nil {
		return mapTxError(err)
	}
	committed = true
	return nil
}

// storeTx adapts one open *sql.Tx to the scheduler.Tx interface.
type storeTx struct {
	store *Store
	tx    *sql.Tx
}

func (t *storeTx) DealAggregate(ctx context.Context, dealID uint64) (*scheduler.DealAggregate, error) {
	deal, err := t.store.deals.GetByIDForUpdateTx(ctx, t.tx, dealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deal %d: %w", dealID, scheduler.ErrNotFound)
		}
		return nil, err
	}
	events, err := t.store.events.ListByDealTx(ctx, t.tx, dealID)
	if err != nil {
		return nil, err
	}
	packages, err := t.store.packages.ListByDealTx(ctx, t.tx, dealID)
	if err != nil {
		return nil, err
	}
	spots, err := t.store.spots.ListByDealTx(ctx, t.tx, dealID)
	if err != nil {
		return nil, err
	}
	return &scheduler.DealAggregate{
		Deal:          deal,
		SpecialEvents: events,
		ExtraPackages: packages,
		AdSpots:       spots,
	}, nil
}

func (t *storeTx) AdSpotByClientRef(ctx context.Context, dealID uint64, ref string) (*model.AdSpot, error) {
	return t.store.spots.GetByClientRefTx(ctx, t.tx, dealID, ref)
}

func (t *storeTx) InsertAdSpot(ctx context.Context, spot *model.AdSpot) error {
	return t.store.spots.InsertTx(ctx, t.tx, spot)
}

func (t *storeTx) AdSpotByID(ctx context.Context, spotID uint64) (*model.AdSpot, error) {
	spot, err := t.store.spots.GetByIDForUpdateTx(ctx, t.tx, spotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("spot %d: %w", spotID, scheduler.ErrNotFound)
		}
		return nil, err
	}
	return spot, nil
}

func (t *storeTx) UpdateAdSpotStatus(ctx context.Context, spotID uint64, status string, failureReason *string) error {
	err := t.store.spots.UpdateStatusTx(ctx, t.tx, spotID, status, failureReason)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("spot %d: %w", spotID, scheduler.ErrNotFound)
	}
	return err
}

// MySQL error numbers that indicate the transaction lost a race and
// should be retried rather than surfaced.
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

func mapTxError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		if me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout {
			return fmt.Errorf("%w: %v", scheduler.ErrTxConflict, err)
		}
	}
	return err
}

package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// SpecialEventRepo provides access to the special_events table.  Event
// windows of one deal must never overlap – overlapping windows would
// make surcharge resolution ambiguous – so creation checks the
// existing windows under the deal lock before inserting.
type SpecialEventRepo struct {
	db *sql.DB
}

// NewSpecialEventRepo returns a new SpecialEventRepo bound to the
// given database.
func NewSpecialEventRepo(db *sql.DB) *SpecialEventRepo { return &SpecialEventRepo{db: db} }

const eventColumns = `id, deal_id, event_name, start_date, end_date, extra_fee_cents, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.SpecialEvent, error) {
	var e model.SpecialEvent
	err := row.Scan(&e.ID, &e.DealID, &e.EventName, &e.StartDate, &e.EndDate, &e.ExtraFeeCents, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateTx inserts a new special event within an existing transaction.
// The caller must already hold the deal row lock (GetByIDForUpdateTx)
// so that two concurrent creations cannot both pass the overlap check.
// ErrOverlappingEvent is returned when the window intersects an
// existing event of the same deal.
func (r *SpecialEventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.SpecialEvent) error {
	existing, err := r.ListByDealTx(ctx, tx, e.DealID)
	if err != nil {
		return err
	}
	for i := range existing {
		if existing[i].Overlaps(e.StartDate, e.EndDate) {
			return ErrOverlappingEvent
		}
	}
	const q = `INSERT INTO special_events (deal_id, event_name, start_date, end_date, extra_fee_cents)
	           VALUES (?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		e.DealID, e.EventName, e.StartDate.UTC().Format(dateFmt), e.EndDate.UTC().Format(dateFmt), e.ExtraFeeCents,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	const sel = `SELECT ` + eventColumns + ` FROM special_events WHERE id = ?`
	got, err := scanEvent(tx.QueryRowContext(ctx, sel, e.ID))
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

// ListByDealTx returns all special events of a deal within the given
// transaction, ordered by window start.
func (r *SpecialEventRepo) ListByDealTx(ctx context.Context, tx *sql.Tx, dealID uint64) ([]model.SpecialEvent, error) {
	const q = `SELECT ` + eventColumns + ` FROM special_events WHERE deal_id = ? ORDER BY start_date`
	rows, err := tx.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.SpecialEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// ListByDeal is the non-transactional variant used by reporting reads.
func (r *SpecialEventRepo) ListByDeal(ctx context.Context, dealID uint64) ([]model.SpecialEvent, error) {
	const q = `SELECT ` + eventColumns + ` FROM special_events WHERE deal_id = ? ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.SpecialEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

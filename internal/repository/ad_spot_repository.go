package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// AdSpotRepo provides access to the ad_spots table.  Spots are never
// physically deleted; failed and superseded rows remain as the audit
// trail, and status is the only mutable field after insertion.
type AdSpotRepo struct {
	db *sql.DB
}

// NewAdSpotRepo returns a new AdSpotRepo bound to the given database.
func NewAdSpotRepo(db *sql.DB) *AdSpotRepo { return &AdSpotRepo{db: db} }

const spotColumns = `id, admin_id, deal_id, category_id, brand_id, sub_brand_id, ad_title,
       scheduled_date, duration_seconds, airing_count, status, failure_reason,
       event_fee_cents, client_ref, rescheduled_from_id, created_at, updated_at`

func scanSpot(row interface{ Scan(...any) error }) (*model.AdSpot, error) {
	var s model.AdSpot
	var categoryID, brandID, subBrandID, rescheduledFrom sql.NullInt64
	var failureReason, clientRef sql.NullString
	err := row.Scan(
		&s.ID, &s.AdminID, &s.DealID, &categoryID, &brandID, &subBrandID, &s.AdTitle,
		&s.ScheduledDate, &s.DurationSeconds, &s.AiringCount, &s.Status, &failureReason,
		&s.EventFeeCents, &clientRef, &rescheduledFrom, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		v := uint64(categoryID.Int64)
		s.CategoryID = &v
	}
	if brandID.Valid {
		v := uint64(brandID.Int64)
		s.BrandID = &v
	}
	if subBrandID.Valid {
		v := uint64(subBrandID.Int64)
		s.SubBrandID = &v
	}
	if rescheduledFrom.Valid {
		v := uint64(rescheduledFrom.Int64)
		s.RescheduledFromID = &v
	}
	if failureReason.Valid {
		v := failureReason.String
		s.FailureReason = &v
	}
	if clientRef.Valid {
		v := clientRef.String
		s.ClientRef = &v
	}
	return &s, nil
}

func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// InsertTx persists a new ad spot within an existing transaction and
// populates its generated ID and timestamps.  The caller must already
// hold the deal lock so the insert is atomic with the capacity checks
// that justified it.
func (r *AdSpotRepo) InsertTx(ctx context.Context, tx *sql.Tx, s *model.AdSpot) error {
	const q = `INSERT INTO ad_spots (admin_id, deal_id, category_id, brand_id, sub_brand_id, ad_title,
	            scheduled_date, duration_seconds, airing_count, status, failure_reason,
	            event_fee_cents, client_ref, rescheduled_from_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		s.AdminID, s.DealID, nullable(s.CategoryID), nullable(s.BrandID), nullable(s.SubBrandID), s.AdTitle,
		s.ScheduledDate.UTC().Format(dateFmt), s.DurationSeconds, s.AiringCount, s.Status, nullable(s.FailureReason),
		s.EventFeeCents, nullable(s.ClientRef), nullable(s.RescheduledFromID),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT ` + spotColumns + ` FROM ad_spots WHERE id = ?`
	got, err := scanSpot(tx.QueryRowContext(ctx, sel, s.ID))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// GetByIDForUpdateTx loads a single spot with FOR UPDATE so lifecycle
// transitions are atomic per spot.  sql.ErrNoRows when absent.
func (r *AdSpotRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, spotID uint64) (*model.AdSpot, error) {
	const q = `SELECT ` + spotColumns + ` FROM ad_spots WHERE id = ? FOR UPDATE`
	return scanSpot(tx.QueryRowContext(ctx, q, spotID))
}

// GetByClientRefTx returns the spot admitted under the given
// idempotency key for a deal, or (nil, nil) when none exists.
func (r *AdSpotRepo) GetByClientRefTx(ctx context.Context, tx *sql.Tx, dealID uint64, ref string) (*model.AdSpot, error) {
	const q = `SELECT ` + spotColumns + ` FROM ad_spots WHERE deal_id = ? AND client_ref = ?`
	s, err := scanSpot(tx.QueryRowContext(ctx, q, dealID, ref))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateStatusTx moves a spot to the given status.  failure_reason is
// written only when provided; confirming clears nothing because a
// pending spot never has a reason set.
func (r *AdSpotRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, spotID uint64, status string, failureReason *string) error {
	const q = `UPDATE ad_spots SET status = ?, failure_reason = COALESCE(?, failure_reason) WHERE id = ?`
	result, err := tx.ExecContext(ctx, q, status, nullable(failureReason), spotID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByDealTx returns every spot of a deal within the given
// transaction, including failed history.  The admission controller
// passes the full list to the capacity ledger, which filters by status
// itself.
func (r *AdSpotRepo) ListByDealTx(ctx context.Context, tx *sql.Tx, dealID uint64) ([]model.AdSpot, error) {
	const q = `SELECT ` + spotColumns + ` FROM ad_spots WHERE deal_id = ? ORDER BY scheduled_date, id`
	rows, err := tx.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSpots(rows)
}

// ListByDeal is the non-transactional variant used for reporting and
// spot listings.
func (r *AdSpotRepo) ListByDeal(ctx context.Context, dealID uint64) ([]model.AdSpot, error) {
	const q = `SELECT ` + spotColumns + ` FROM ad_spots WHERE deal_id = ? ORDER BY scheduled_date, id`
	rows, err := r.db.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSpots(rows)
}

func collectSpots(rows *sql.Rows) ([]model.AdSpot, error) {
	spots := make([]model.AdSpot, 0)
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spots, nil
}

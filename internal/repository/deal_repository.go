package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// dateFmt is the format DATE columns are written with.  Reads rely on
// parseTime=true in the DSN, which scans DATE into time.Time directly.
const dateFmt = "2006-01-02"

// DealRepo provides access to the deals table.  Deals are immutable
// after creation apart from administrative correction and are soft
// deleted only: ad spots keep referencing them for audit.
type DealRepo struct {
	db *sql.DB
}

// NewDealRepo returns a new DealRepo bound to the given database.
func NewDealRepo(db *sql.DB) *DealRepo { return &DealRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span multiple repositories.
func (r *DealRepo) DB() *sql.DB { return r.db }

const dealColumns = `id, admin_id, channel_name, start_date, end_date, total_spots,
       max_seconds_per_spot, daily_cap_seconds, initial_payment_cents, deleted_at, created_at, updated_at`

func scanDeal(row interface{ Scan(...any) error }) (*model.Deal, error) {
	var d model.Deal
	var dailyCap sql.NullInt64
	var deletedAt sql.NullTime
	err := row.Scan(
		&d.ID, &d.AdminID, &d.ChannelName, &d.StartDate, &d.EndDate, &d.TotalSpots,
		&d.MaxSecondsPerSpot, &dailyCap, &d.InitialPaymentCents, &deletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dailyCap.Valid {
		v := uint32(dailyCap.Int64)
		d.DailyCapSeconds = &v
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	return &d, nil
}

// CreateTx inserts a new deal within an existing transaction and
// populates the generated ID and timestamps on the provided record.
// The caller is expected to append the initial payment row in the same
// transaction so contract and payment ledger never diverge.
func (r *DealRepo) CreateTx(ctx context.Context, tx *sql.Tx, d *model.Deal) error {
	const q = `INSERT INTO deals (admin_id, channel_name, start_date, end_date, total_spots,
	            max_seconds_per_spot, daily_cap_seconds, initial_payment_cents)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var dailyCap interface{}
	if d.DailyCapSeconds != nil {
		dailyCap = *d.DailyCapSeconds
	}
	result, err := tx.ExecContext(ctx, q,
		d.AdminID, d.ChannelName, d.StartDate.UTC().Format(dateFmt), d.EndDate.UTC().Format(dateFmt),
		d.TotalSpots, d.MaxSecondsPerSpot, dailyCap, d.InitialPaymentCents,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	const sel = `SELECT ` + dealColumns + ` FROM deals WHERE id = ?`
	got, err := scanDeal(tx.QueryRowContext(ctx, sel, d.ID))
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

// GetByID returns an active (non soft-deleted) deal.  When no such
// deal exists, sql.ErrNoRows is returned.
func (r *DealRepo) GetByID(ctx context.Context, dealID uint64) (*model.Deal, error) {
	const q = `SELECT ` + dealColumns + ` FROM deals WHERE id = ? AND deleted_at IS NULL`
	return scanDeal(r.db.QueryRowContext(ctx, q, dealID))
}

// GetByIDForUpdateTx loads the deal row with FOR UPDATE inside the
// given transaction.  The row lock serializes concurrent admissions on
// the same deal for the duration of the transaction; this is the
// advisory lock the admission controller's check-then-reserve sequence
// depends on.
func (r *DealRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, dealID uint64) (*model.Deal, error) {
	const q = `SELECT ` + dealColumns + ` FROM deals WHERE id = ? AND deleted_at IS NULL FOR UPDATE`
	return scanDeal(tx.QueryRowContext(ctx, q, dealID))
}

// ListByAdmin returns all active deals owned by an admin, newest
// first.  An empty slice is returned when none exist.
func (r *DealRepo) ListByAdmin(ctx context.Context, adminID uint64) ([]model.Deal, error) {
	const q = `SELECT ` + dealColumns + ` FROM deals WHERE admin_id = ? AND deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	deals := make([]model.Deal, 0)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deals, nil
}

// SoftDelete marks a deal as deleted while keeping the row and all
// referencing spots for audit.  Deals with pending spots cannot be
// deleted; ErrConflict is returned instead.  sql.ErrNoRows is returned
// when the deal does not exist or is already deleted.
func (r *DealRepo) SoftDelete(ctx context.Context, dealID, adminID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := r.GetByIDForUpdateTx(ctx, tx, dealID); err != nil {
		return err
	}
	var pending int
	const cntQ = `SELECT COUNT(*) FROM ad_spots WHERE deal_id = ? AND status = ?`
	if err := tx.QueryRowContext(ctx, cntQ, dealID, model.SpotPending).Scan(&pending); err != nil {
		return err
	}
	if pending > 0 {
		return ErrConflict
	}
	const upd = `UPDATE deals SET deleted_at = ? WHERE id = ? AND admin_id = ? AND deleted_at IS NULL`
	result, err := tx.ExecContext(ctx, upd, time.Now().UTC(), dealID, adminID)
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
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

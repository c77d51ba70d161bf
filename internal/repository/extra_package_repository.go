package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// ExtraPackageRepo provides access to the extra_packages table.  A
// package joins the deal's capacity pool the moment it is committed;
// the purchase date is recorded for reporting only.
type ExtraPackageRepo struct {
	db *sql.DB
}

// NewExtraPackageRepo returns a new ExtraPackageRepo bound to the
// given database.
func NewExtraPackageRepo(db *sql.DB) *ExtraPackageRepo { return &ExtraPackageRepo{db: db} }

const packageColumns = `id, deal_id, additional_spots, amount_paid_cents, package_date, special_event_id, created_at`

func scanPackage(row interface{ Scan(...any) error }) (*model.ExtraPackage, error) {
	var p model.ExtraPackage
	var eventID sql.NullInt64
	err := row.Scan(&p.ID, &p.DealID, &p.AdditionalSpots, &p.AmountPaidCents, &p.PackageDate, &eventID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if eventID.Valid {
		v := uint64(eventID.Int64)
		p.SpecialEventID = &v
	}
	return &p, nil
}

// CreateTx inserts a new extra package within an existing transaction
// and populates the generated ID.  The caller appends the matching
// extra_package payment row in the same transaction so the pool and
// the payment ledger stay consistent.
func (r *ExtraPackageRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.ExtraPackage) error {
	const q = `INSERT INTO extra_packages (deal_id, additional_spots, amount_paid_cents, package_date, special_event_id)
	           VALUES (?, ?, ?, ?, ?)`
	var eventID interface{}
	if p.SpecialEventID != nil {
		eventID = *p.SpecialEventID
	}
	result, err := tx.ExecContext(ctx, q,
		p.DealID, p.AdditionalSpots, p.AmountPaidCents, p.PackageDate.UTC().Format(dateFmt), eventID,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	const sel = `SELECT ` + packageColumns + ` FROM extra_packages WHERE id = ?`
	got, err := scanPackage(tx.QueryRowContext(ctx, sel, p.ID))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// ListByDealTx returns all packages of a deal within the given
// transaction, oldest first.
func (r *ExtraPackageRepo) ListByDealTx(ctx context.Context, tx *sql.Tx, dealID uint64) ([]model.ExtraPackage, error) {
	const q = `SELECT ` + packageColumns + ` FROM extra_packages WHERE deal_id = ? ORDER BY created_at`
	rows, err := tx.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	packages := make([]model.ExtraPackage, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return packages, nil
}

// ListByDeal is the non-transactional variant used by reporting reads.
func (r *ExtraPackageRepo) ListByDeal(ctx context.Context, dealID uint64) ([]model.ExtraPackage, error) {
	const q = `SELECT ` + packageColumns + ` FROM extra_packages WHERE deal_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	packages := make([]model.ExtraPackage, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return packages, nil
}

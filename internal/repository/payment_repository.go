package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// PaymentRepo provides access to the payments table.  The table is an
// append-only audit trail: there is deliberately no update or delete
// method here, and corrections are made by appending compensating
// rows, never by editing history.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, deal_id, amount_cents, paid_at, type, extra_package_id, created_at`

func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	var p model.Payment
	var packageID sql.NullInt64
	err := row.Scan(&p.ID, &p.DealID, &p.AmountCents, &p.PaidAt, &p.Type, &packageID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if packageID.Valid {
		v := uint64(packageID.Int64)
		p.ExtraPackageID = &v
	}
	return &p, nil
}

// AppendTx inserts a payment row within an existing transaction and
// populates the generated ID.
func (r *PaymentRepo) AppendTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (deal_id, amount_cents, paid_at, type, extra_package_id)
	           VALUES (?, ?, ?, ?, ?)`
	var packageID interface{}
	if p.ExtraPackageID != nil {
		packageID = *p.ExtraPackageID
	}
	result, err := tx.ExecContext(ctx, q,
		p.DealID, p.AmountCents, p.PaidAt.UTC().Format(dateFmt), p.Type, packageID,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Append inserts a payment row in its own transaction.  Used by the
// payment entry endpoint for standalone special_event payments.
func (r *PaymentRepo) Append(ctx context.Context, p *model.Payment) error {
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
	if err := r.AppendTx(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListByDeal returns all payments of a deal in chronological order.
// Reporting is the only consumer; admission logic never reads
// payments.
func (r *PaymentRepo) ListByDeal(ctx context.Context, dealID uint64) ([]model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE deal_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

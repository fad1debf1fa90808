package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/payment"
)

type paymentRow struct {
	ID            string    `db:"id"`
	MemberID      string    `db:"member_id"`
	TransactionID string    `db:"transaction_id"`
	Tier          string    `db:"tier"`
	Action        string    `db:"action"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) toRow(pmt payment.Payment) paymentRow {
	return paymentRow{
		ID:            pmt.ID,
		MemberID:      pmt.MemberID,
		TransactionID: pmt.TransactionID,
		Tier:          pmt.Tier,
		Action:        string(pmt.Action),
		Status:        string(pmt.Status),
		CreatedAt:     pmt.CreatedAt.UTC(),
		UpdatedAt:     pmt.UpdatedAt.UTC(),
	}
}

func (repo paymentRepository) fromRow(row paymentRow) payment.Payment {
	return payment.Payment{
		ID:            row.ID,
		MemberID:      row.MemberID,
		TransactionID: row.TransactionID,
		Tier:          row.Tier,
		Action:        payment.ActionType(row.Action),
		Status:        payment.Status(row.Status),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to payment.ErrNotFound
func (repo paymentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return payment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// CreatePayment relies on the transaction_id unique index for duplicate
// rejection: the insert either commits whole or fails whole.
func (repo paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	pmt.ID = uuid.New().String()
	row := repo.toRow(pmt)
	query := `
		INSERT INTO payments (id, member_id, transaction_id, tier, action, status, created_at, updated_at)
		VALUES (:id, :member_id, :transaction_id, :tier, :action, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return payment.Payment{}, payment.ErrTransactionExists
		}
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return repo.fromRow(row), nil
}

func (repo paymentRepository) GetPayment(ctx context.Context, filter payment.GetFilter) (payment.Payment, error) {
	var row paymentRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return payment.Payment{}, payment.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM payments WHERE id = $1", filter.ID)
	case filter.TransactionID != "":
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM payments WHERE transaction_id = $1", filter.TransactionID)
	default:
		return payment.Payment{}, payment.ErrNotFound
	}
	if err != nil {
		return payment.Payment{}, repo.trapNoRowsErr(err, "finding payment")
	}
	return repo.fromRow(row), nil
}

func (repo paymentRepository) FilterPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	query := "SELECT * FROM payments WHERE 1=1"
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Status != "" {
			query += " AND status = " + arg(string(filter.Status))
		}
		if filter.MemberID != "" {
			query += " AND member_id = " + arg(filter.MemberID)
		}
		if !filter.CreatedFrom.IsZero() {
			query += " AND created_at >= " + arg(filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			query += " AND created_at <= " + arg(filter.CreatedTo.UTC())
		}
	}
	query += orderClause(ordering)

	var rows []paymentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, repo.fromRow(row))
	}
	return payments, nil
}

func (repo paymentRepository) UpdatePaymentStatus(ctx context.Context, id string, status payment.Status) (payment.Payment, error) {
	var row paymentRow
	query := "UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3 RETURNING *"
	if err := repo.db.GetContext(ctx, &row, query, string(status), time.Now().UTC(), id); err != nil {
		return payment.Payment{}, repo.trapNoRowsErr(err, "updating payment status")
	}
	return repo.fromRow(row), nil
}

package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/payment"
)

type paymentRepository struct {
	table *Table[payment.Payment]
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{table: db.payments}
}

// CreatePayment enforces transaction reference uniqueness atomically
// under the table lock: the check and the insert cannot interleave with
// another writer.
func (repo *paymentRepository) CreatePayment(_ context.Context, pmt payment.Payment) (payment.Payment, error) {
	pmt.ID = uuid.New().String()
	err := repo.table.insertIf(pmt, func(existing payment.Payment) error {
		if existing.TransactionID == pmt.TransactionID {
			return payment.ErrTransactionExists
		}
		return nil
	})
	if err != nil {
		return payment.Payment{}, err
	}
	return pmt, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, filter payment.GetFilter) (payment.Payment, error) {
	pmt, ok := repo.table.find(func(pmt payment.Payment) bool {
		switch {
		case filter.ID != "":
			return pmt.ID == filter.ID
		case filter.TransactionID != "":
			return pmt.TransactionID == filter.TransactionID
		}
		return false
	})
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	return pmt, nil
}

func (repo *paymentRepository) FilterPayments(_ context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	payments := repo.table.all()

	if filter != nil {
		matched := payments[:0]
		for _, pmt := range payments {
			if matchPayment(pmt, filter) {
				matched = append(matched, pmt)
			}
		}
		payments = matched
	}

	sortByCreatedAt(payments, ordering, func(pmt payment.Payment) int64 { return pmt.CreatedAt.UnixNano() })
	return payments, nil
}

func matchPayment(pmt payment.Payment, filter *payment.QueryFilter) bool {
	if filter.Status != "" && pmt.Status != filter.Status {
		return false
	}
	if filter.MemberID != "" && pmt.MemberID != filter.MemberID {
		return false
	}
	if !filter.CreatedFrom.IsZero() && pmt.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && pmt.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *paymentRepository) UpdatePaymentStatus(ctx context.Context, id string, status payment.Status) (payment.Payment, error) {
	pmt, ok := repo.table.get(id)
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	pmt.Status = status
	pmt.UpdatedAt = time.Now().UTC()
	if !repo.table.update(pmt) {
		return payment.Payment{}, payment.ErrNotFound
	}
	return pmt, nil
}

// sortByCreatedAt orders records by their creation timestamp, the only
// ordering the in-memory filters need.
func sortByCreatedAt[T any](recs []T, ordering []core.DBOrdering, at func(T) int64) {
	if len(ordering) == 0 {
		return
	}
	asc := ordering[0].Ascending
	sort.SliceStable(recs, func(i, j int) bool {
		if asc {
			return at(recs[i]) < at(recs[j])
		}
		return at(recs[i]) > at(recs[j])
	})
}

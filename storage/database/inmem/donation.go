package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/payment"
)

type donationRepository struct {
	table *Table[payment.Donation]
}

var _ payment.DonationRepository = (*donationRepository)(nil) // interface compliance check

func NewDonationRepository(db *DB) *donationRepository {
	return &donationRepository{table: db.donations}
}

func (repo *donationRepository) CreateDonation(_ context.Context, don payment.Donation) (payment.Donation, error) {
	don.ID = uuid.New().String()
	repo.table.insert(don)
	return don, nil
}

func (repo *donationRepository) QueryAllDonations(_ context.Context, ordering []core.DBOrdering) ([]payment.Donation, error) {
	donations := repo.table.all()
	sortByCreatedAt(donations, ordering, func(don payment.Donation) int64 { return don.CreatedAt.UnixNano() })
	return donations, nil
}

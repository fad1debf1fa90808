package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/payment"
)

type donationRow struct {
	ID        string    `db:"id"`
	DonorName string    `db:"donor_name"`
	Email     string    `db:"email"`
	Amount    int64     `db:"amount"`
	Currency  string    `db:"currency"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

type donationRepository struct {
	db *sqlx.DB
}

var _ payment.DonationRepository = (*donationRepository)(nil) // interface compliance check

func NewDonationRepository(db *sqlx.DB) *donationRepository {
	return &donationRepository{db: db}
}

func (repo donationRepository) fromRow(row donationRow) payment.Donation {
	return payment.Donation{
		ID:        row.ID,
		DonorName: row.DonorName,
		Email:     row.Email,
		Amount:    row.Amount,
		Currency:  row.Currency,
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
	}
}

func (repo donationRepository) CreateDonation(ctx context.Context, don payment.Donation) (payment.Donation, error) {
	don.ID = uuid.New().String()
	row := donationRow{
		ID:        don.ID,
		DonorName: don.DonorName,
		Email:     don.Email,
		Amount:    don.Amount,
		Currency:  don.Currency,
		Message:   don.Message,
		CreatedAt: don.CreatedAt.UTC(),
	}
	query := `
		INSERT INTO donations (id, donor_name, email, amount, currency, message, created_at)
		VALUES (:id, :donor_name, :email, :amount, :currency, :message, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return payment.Donation{}, errors.Wrap(err, "inserting donation")
	}
	return repo.fromRow(row), nil
}

func (repo donationRepository) QueryAllDonations(ctx context.Context, ordering []core.DBOrdering) ([]payment.Donation, error) {
	var rows []donationRow
	query := "SELECT * FROM donations" + orderClause(ordering)
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying donations")
	}
	donations := make([]payment.Donation, 0, len(rows))
	for _, row := range rows {
		donations = append(donations, repo.fromRow(row))
	}
	return donations, nil
}

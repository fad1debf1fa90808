package payment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
)

var (
	// errors
	ErrNotFound = errors.New("payment not found")
	// ErrTransactionExists is the store-level uniqueness verdict on a
	// transaction reference. Repositories must return it on a unique
	// constraint violation and must not have mutated anything.
	ErrTransactionExists = errors.New("this transaction reference has already been submitted")
	ErrAlreadyApproved   = errors.New("an approved payment cannot be modified")
)

type (
	Repository interface {
		// CreatePayment fails with ErrTransactionExists if the transaction
		// reference is already recorded, leaving the store untouched.
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		GetPayment(ctx context.Context, filter GetFilter) (Payment, error)
		FilterPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		// UpdatePaymentStatus only mutates the status field.
		UpdatePaymentStatus(ctx context.Context, id string, status Status) (Payment, error)
	}

	DonationRepository interface {
		CreateDonation(ctx context.Context, don Donation) (Donation, error)
		QueryAllDonations(ctx context.Context, ordering []core.DBOrdering) ([]Donation, error)
	}

	Service interface {
		Get(ctx context.Context, filter GetFilter) (Payment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		RecordDonation(ctx context.Context, nd NewDonation) (Donation, error)
		QueryDonations(ctx context.Context) ([]Donation, error)
	}

	service struct {
		repo    Repository
		donRepo DonationRepository
		feed    core.ChangeFeed
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, donRepo DonationRepository, feed core.ChangeFeed, logger core.Logger) *service {
	return &service{
		repo:    repo,
		donRepo: donRepo,
		feed:    feed,
		logger:  logger,
	}
}

func (svc *service) Get(ctx context.Context, filter GetFilter) (Payment, error) {
	return svc.repo.GetPayment(ctx, filter)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	return svc.repo.FilterPayments(ctx, filter, ordering)
}

func (svc *service) RecordDonation(ctx context.Context, nd NewDonation) (Donation, error) {
	now := time.Now().UTC()
	don := Donation{
		DonorName: nd.DonorName,
		Email:     nd.Email,
		Amount:    nd.Amount,
		Currency:  nd.Currency,
		Message:   nd.Message,
		CreatedAt: now,
	}
	don, err := svc.donRepo.CreateDonation(ctx, don)
	if err != nil {
		return Donation{}, errors.Wrap(err, "creating donation")
	}
	svc.publish(ctx, core.FeedDonations, core.ChangeInsert, don)
	return don, nil
}

func (svc *service) QueryDonations(ctx context.Context) ([]Donation, error) {
	return svc.donRepo.QueryAllDonations(ctx, []core.DBOrdering{{Field: "created_at", Ascending: false}})
}

func (svc *service) publish(ctx context.Context, collection string, op core.ChangeOp, record interface{}) {
	if svc.feed == nil {
		return
	}
	if err := svc.feed.Publish(ctx, collection, op, record); err != nil && svc.logger != nil {
		svc.logger.Error("publishing change event", err)
	}
}

package member

import (
	"context"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/payment"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose mails are sent synchronously so
// tests can assert on them.
func NewServiceMock(repo Repository, payRepo payment.Repository, mailSvc core.EmailService, feed core.ChangeFeed, logger core.Logger) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			payRepo: payRepo,
			mailSvc: mailSvc,
			feed:    feed,
			logger:  logger,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	mbr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(mbr)
	return nil
}

package member

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/payment"
)

var (
	// errors
	ErrNotFound           = errors.New("member not found")
	ErrEmailExists        = errors.New("a member with this email already exists")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrAccountDeactivated = errors.New("membership deactivated")
	// ErrPaymentRequired: no approved payment on record; the caller should be
	// sent to the payment flow, not the portal.
	ErrPaymentRequired = errors.New("membership payment required")
	// ErrPendingActivation: payment approved but membership not yet activated.
	ErrPendingActivation = errors.New("membership pending activation")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedMembers ...Member) error
		CreateMember(ctx context.Context, mbr Member) (Member, error)
		GetMember(ctx context.Context, filter GetFilter) (Member, error)
		// FilterMembers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Member.Name, Member.Email or Member.Profession.
		FilterMembers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error)
		UpdateMember(ctx context.Context, mbr Member) (Member, error)
		SetLastLogin(ctx context.Context, mbr Member) (Member, error)
	}

	Service interface {
		Register(ctx context.Context, reg Registration) (Member, error)
		SubmitPayment(ctx context.Context, memberID string, ps PaymentSubmission) (Member, error)
		ApprovePayment(ctx context.Context, transactionID string) (Member, error)
		Activate(ctx context.Context, memberID string) (Member, error)
		Deactivate(ctx context.Context, memberID string) (Member, error)
		Authenticate(ctx context.Context, email, pwd string) (Member, error)
		GetByID(ctx context.Context, id string) (Member, error)
		GetByEmail(ctx context.Context, email string) (Member, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error)
		Update(ctx context.Context, id string, um UpdateMember) (Member, error)
		CheckEmailUniqueness(ctx context.Context, email string, excl ...Member) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetMemberPassword) error
	}

	service struct {
		repo    Repository
		payRepo payment.Repository
		mailSvc core.EmailService
		feed    core.ChangeFeed
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, payRepo payment.Repository, mailSvc core.EmailService, feed core.ChangeFeed, logger core.Logger) *service {
	return &service{
		repo:    repo,
		payRepo: payRepo,
		mailSvc: mailSvc,
		feed:    feed,
		logger:  logger,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excl ...Member) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excl...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a Member in the Registered state: payment pending,
// membership pending. The member record doubles as the auth identity, so
// there is no window where one exists without the other.
func (svc *service) Register(ctx context.Context, reg Registration) (Member, error) {
	now := time.Now().UTC()
	mbr := Member{
		Name:             reg.Name,
		Email:            reg.Email,
		Phone:            reg.Phone,
		Profession:       reg.Profession,
		Tier:             reg.Tier,
		MembershipStatus: MembershipPending,
		PaymentStatus:    PaymentPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := mbr.SetPassword(reg.Password); err != nil {
		return Member{}, err
	}

	mbr, err := svc.repo.CreateMember(ctx, mbr)
	if err != nil {
		return Member{}, errors.Wrap(err, "creating member")
	}

	svc.sendWelcomeMail(mbr)
	svc.publish(ctx, core.ChangeInsert, mbr)
	return mbr, nil
}

// SubmitPayment records a transaction reference and moves the Member to
// PaymentSubmitted. Uniqueness of the reference is enforced by the payment
// store's unique index, not by a lookup: two concurrent submissions of the
// same reference cannot both commit.
func (svc *service) SubmitPayment(ctx context.Context, memberID string, ps PaymentSubmission) (Member, error) {
	mbr, err := svc.repo.GetMember(ctx, GetFilter{ID: memberID})
	if err != nil {
		return Member{}, errors.Wrap(err, "finding member")
	}
	if err = Transition(mbr, StatePaymentSubmitted); err != nil {
		return Member{}, err
	}

	tier := mbr.Tier
	if ps.Tier != "" {
		tier = ps.Tier
	}
	action := ps.Action
	if action == "" {
		action = payment.ActionRegister
	}

	now := time.Now().UTC()
	pmt := payment.Payment{
		MemberID:      mbr.ID,
		TransactionID: ps.TransactionID,
		Tier:          string(tier),
		Action:        action,
		Status:        payment.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	pmt, err = svc.payRepo.CreatePayment(ctx, pmt)
	if err != nil {
		// a duplicate reference leaves both stores untouched
		return Member{}, errors.Wrap(err, "creating payment")
	}
	svc.publishTo(ctx, core.FeedPayments, core.ChangeInsert, pmt)

	mbr.TransactionID = null.StringFrom(ps.TransactionID)
	mbr.PaymentStatus = PaymentPending
	mbr.Tier = tier
	mbr.UpdatedAt = now
	mbr, err = svc.repo.UpdateMember(ctx, mbr)
	if err != nil {
		return Member{}, errors.Wrap(err, "updating member")
	}
	svc.publish(ctx, core.ChangeUpdate, mbr)
	return mbr, nil
}

// ApprovePayment marks the payment with the given transaction reference as
// verified. Approving an already approved payment is a no-op yielding the
// same end state.
func (svc *service) ApprovePayment(ctx context.Context, transactionID string) (Member, error) {
	pmt, err := svc.payRepo.GetPayment(ctx, payment.GetFilter{TransactionID: transactionID})
	if err != nil {
		return Member{}, errors.Wrap(err, "finding payment")
	}
	mbr, err := svc.repo.GetMember(ctx, GetFilter{ID: pmt.MemberID})
	if err != nil {
		return Member{}, errors.Wrap(err, "finding member")
	}

	if pmt.Approved() && mbr.PaymentApproved() {
		return mbr, nil
	}
	if err = Transition(mbr, StatePaymentApproved); err != nil {
		return Member{}, err
	}

	pmt, err = svc.payRepo.UpdatePaymentStatus(ctx, pmt.ID, payment.StatusApproved)
	if err != nil {
		return Member{}, errors.Wrap(err, "approving payment")
	}
	svc.publishTo(ctx, core.FeedPayments, core.ChangeUpdate, pmt)

	mbr.PaymentStatus = PaymentApproved
	mbr.UpdatedAt = time.Now().UTC()
	mbr, err = svc.repo.UpdateMember(ctx, mbr)
	if err != nil {
		return Member{}, errors.Wrap(err, "updating member")
	}

	svc.sendPaymentApprovedMail(mbr)
	svc.publish(ctx, core.ChangeUpdate, mbr)
	return mbr, nil
}

// Activate grants portal access. It is a deliberate, named admin action:
// approval of a payment never activates a membership implicitly.
func (svc *service) Activate(ctx context.Context, memberID string) (Member, error) {
	mbr, err := svc.repo.GetMember(ctx, GetFilter{ID: memberID})
	if err != nil {
		return Member{}, errors.Wrap(err, "finding member")
	}
	if mbr.MembershipActive() {
		return mbr, nil
	}
	if err = Transition(mbr, StateActive); err != nil {
		return Member{}, err
	}

	mbr.MembershipStatus = MembershipActive
	mbr.UpdatedAt = time.Now().UTC()
	mbr, err = svc.repo.UpdateMember(ctx, mbr)
	if err != nil {
		return Member{}, errors.Wrap(err, "updating member")
	}
	svc.publish(ctx, core.ChangeUpdate, mbr)
	return mbr, nil
}

func (svc *service) Deactivate(ctx context.Context, memberID string) (Member, error) {
	mbr, err := svc.repo.GetMember(ctx, GetFilter{ID: memberID})
	if err != nil {
		return Member{}, errors.Wrap(err, "finding member")
	}
	if err = Transition(mbr, StateInactive); err != nil {
		return Member{}, err
	}

	mbr.MembershipStatus = MembershipInactive
	mbr.UpdatedAt = time.Now().UTC()
	mbr, err = svc.repo.UpdateMember(ctx, mbr)
	if err != nil {
		return Member{}, errors.Wrap(err, "updating member")
	}
	svc.publish(ctx, core.ChangeUpdate, mbr)
	return mbr, nil
}

// Authenticate checks credentials only; it does not grant portal access.
// Use PortalAccess for the dashboard gate.
func (svc *service) Authenticate(ctx context.Context, email, pwd string) (Member, error) {
	mbr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Member{}, ErrAuthFailed
		}
		return Member{}, errors.Wrap(err, "finding member by email")
	}
	if err = mbr.CheckPassword(pwd); err != nil {
		return Member{}, ErrAuthFailed
	}
	if mbr.MembershipStatus == MembershipInactive {
		return Member{}, ErrAccountDeactivated
	}
	mbr, err = svc.repo.SetLastLogin(ctx, mbr)
	if err != nil {
		return Member{}, errors.Wrap(err, "setting lastLogin")
	}
	return mbr, nil
}

// PortalAccess is the dashboard gate: only an approved payment AND an
// active membership together grant access.
func PortalAccess(mbr Member) error {
	if mbr.IsAdmin {
		return nil
	}
	if !mbr.PaymentApproved() {
		return ErrPaymentRequired
	}
	if !mbr.MembershipActive() {
		return ErrPendingActivation
	}
	return nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error) {
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	return svc.repo.FilterMembers(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, um UpdateMember) (Member, error) {
	mbr, err := svc.repo.GetMember(ctx, GetFilter{ID: id})
	if err != nil {
		return Member{}, errors.Wrap(err, "finding member")
	}

	mbr.Email = um.Email
	if um.Name != "" {
		mbr.Name = um.Name
	}
	if um.Phone != "" {
		mbr.Phone = um.Phone
	}
	if um.Profession != "" {
		mbr.Profession = um.Profession
	}
	if um.Tier != "" {
		mbr.Tier = um.Tier
	}
	if um.Password != "" {
		if err := mbr.SetPassword(um.Password); err != nil {
			return Member{}, err
		}
	}
	mbr.UpdatedAt = time.Now().UTC()

	mbr, err = svc.repo.UpdateMember(ctx, mbr)
	if err != nil {
		return Member{}, errors.Wrap(err, "updating member")
	}
	svc.publish(ctx, core.ChangeUpdate, mbr)
	return mbr, nil
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	mbr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(mbr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetMemberPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return errInvalidToken
	}
	mbr, err := svc.repo.GetMember(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return errInvalidToken
		}
		return errors.Wrap(err, "finding member")
	}
	if err = verifyToken(mbr, rp.Token); err != nil {
		return err
	}

	if err = mbr.SetPassword(rp.Password); err != nil {
		return err
	}
	mbr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateMember(ctx, mbr); err != nil {
		return errors.Wrap(err, "updating member")
	}
	return nil
}

// mails

func (svc *service) sendWelcomeMail(mbr Member) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: mbr.Name, Address: mbr.Email}},
		Subject:      "Welcome to EACNA",
		TemplateName: "welcome",
		TemplateData: struct {
			Name string
			Tier Tier
		}{mbr.Name, mbr.Tier},
	})
}

func (svc *service) sendPaymentApprovedMail(mbr Member) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: mbr.Name, Address: mbr.Email}},
		Subject:      "Membership payment approved",
		TemplateName: "payment-approved",
		TemplateData: struct {
			Name          string
			TransactionID string
		}{mbr.Name, mbr.TransactionID.String},
	})
}

func (svc *service) sendPasswordResetMail(mbr Member) {
	token := makeToken(mbr)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: mbr.Name, Address: mbr.Email}},
		Subject:      "Password reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{mbr.Name, EncodeUID(mbr), token},
	})
}

func (svc *service) publish(ctx context.Context, op core.ChangeOp, mbr Member) {
	svc.publishTo(ctx, core.FeedMembers, op, mbr)
}

func (svc *service) publishTo(ctx context.Context, collection string, op core.ChangeOp, record interface{}) {
	if svc.feed == nil {
		return
	}
	if err := svc.feed.Publish(ctx, collection, op, record); err != nil && svc.logger != nil {
		svc.logger.Error(fmt.Sprintf("publishing %s change event", collection), err)
	}
}

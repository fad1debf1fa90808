package member

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/payment"
)

// Membership tiers
type Tier string

const (
	TierStudent   Tier = "student"
	TierAssociate Tier = "associate"
	TierFull      Tier = "full_member"
)

var AllTiers = []Tier{TierStudent, TierAssociate, TierFull}

// Membership status
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipActive   MembershipStatus = "active"
	MembershipInactive MembershipStatus = "inactive"
)

// Payment status
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
)

type Member struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	Profession       string           `json:"profession"`
	Tier             Tier             `json:"membership_tier"`
	MembershipStatus MembershipStatus `json:"membership_status"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	TransactionID    null.String      `json:"transaction_id"`
	IsAdmin          bool             `json:"is_admin"`
	PasswordHash     []byte           `json:"-"`
	CreatedAt        time.Time        `json:"created_at"` // UTC
	UpdatedAt        time.Time        `json:"updated_at"` // UTC
	LastLogin        time.Time        `json:"last_login"` // UTC
}

func (m *Member) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	return nil
}

func (m *Member) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(pwd))
}

func (m Member) PaymentApproved() bool {
	return m.PaymentStatus == PaymentApproved
}

func (m Member) MembershipActive() bool {
	return m.MembershipStatus == MembershipActive
}

// Registration contains information needed to register a new Member.
type Registration struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required"`
	Profession      string `json:"profession" validate:"required"`
	Tier            Tier   `json:"membership_tier" validate:"required,tier"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (r *Registration) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Phone = core.CleanString(r.Phone)
	r.Profession = core.CleanString(r.Profession)

	if err := validate.Struct(r); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, r.Email)
}

// PaymentSubmission records a paybill transaction reference as proof of payment.
// Tier and Action are only set for renewals and upgrades.
type PaymentSubmission struct {
	TransactionID string             `json:"transaction_id" validate:"required,min=6,alphanum_"`
	Tier          Tier               `json:"membership_tier" validate:"omitempty,tier"`
	Action        payment.ActionType `json:"action_type" validate:"omitempty,paymentaction"`
}

func (ps *PaymentSubmission) Validate(validate *validator.Validate) error {
	ps.TransactionID = core.CleanString(ps.TransactionID)
	return validate.Struct(ps)
}

// UpdateMember defines what information may be provided to modify an existing Member.
type UpdateMember struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone"`
	Profession      string `json:"profession"`
	Tier            Tier   `json:"membership_tier" validate:"omitempty,tier"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (um *UpdateMember) Validate(ctx context.Context, origMbr Member, validate *validator.Validate, svc Service) error {
	um.Name = core.CleanString(um.Name)
	um.Phone = core.CleanString(um.Phone)
	um.Profession = core.CleanString(um.Profession)

	email := core.CleanString(um.Email, true /* lower */)
	if email != "" {
		um.Email = email
	} else {
		um.Email = origMbr.Email
	}

	if err := validate.Struct(um); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, um.Email, origMbr)
}

type ResetMemberPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetMemberPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search           string           `query:"search"`
	Tier             Tier             `query:"membership_tier"`
	MembershipStatus MembershipStatus `query:"membership_status"`
	PaymentStatus    PaymentStatus    `query:"payment_status"`
	CreatedFrom      time.Time        `query:"created_from"`
	CreatedTo        time.Time        `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Tier == "" && qf.MembershipStatus == "" &&
		qf.PaymentStatus == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter looks a Member up by exactly one of its fields.
type GetFilter struct {
	ID            string
	Email         string
	TransactionID string
}

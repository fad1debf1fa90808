package payment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eacna/portal/core"
)

// ActionType is what a payment pays for.
type ActionType string

const (
	ActionRegister ActionType = "register"
	ActionRenew    ActionType = "renew"
	ActionUpgrade  ActionType = "upgrade"
)

var AllActions = []ActionType{ActionRegister, ActionRenew, ActionUpgrade}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Payment is a member-submitted paybill transaction reference awaiting
// (or past) admin verification. TransactionID is globally unique; the
// store's unique index is the sole authority on that (no pre-checks).
type Payment struct {
	ID            string     `json:"id"`
	MemberID      string     `json:"member_id"`
	TransactionID string     `json:"transaction_id"`
	Tier          string     `json:"membership_tier"`
	Action        ActionType `json:"action_type"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"` // UTC
	UpdatedAt     time.Time  `json:"updated_at"` // UTC
}

func (p Payment) Approved() bool { return p.Status == StatusApproved }

// Donation is a publicly submitted contribution record.
type Donation struct {
	ID        string    `json:"id"`
	DonorName string    `json:"donor_name"`
	Email     string    `json:"email"`
	Amount    int64     `json:"amount"` // minor currency units
	Currency  string    `json:"currency"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewDonation contains information needed to record a Donation.
type NewDonation struct {
	DonorName string `json:"donor_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Currency  string `json:"currency" validate:"required,len=3,alpha"`
	Message   string `json:"message"`
}

func (nd *NewDonation) Validate(validate *validator.Validate) error {
	nd.DonorName = core.CleanString(nd.DonorName)
	nd.Email = core.CleanString(nd.Email, true /* lower */)
	nd.Currency = core.CleanString(nd.Currency, true)
	nd.Message = core.CleanString(nd.Message)
	return validate.Struct(nd)
}

type QueryFilter struct {
	Status      Status    `query:"status"`
	MemberID    string    `query:"member_id"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.MemberID == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

// GetFilter looks a Payment up by exactly one of its fields.
type GetFilter struct {
	ID            string
	TransactionID string
}

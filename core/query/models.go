package query

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/eacna/portal/core"
)

type Category string

const (
	CategoryContact    Category = "contact"
	CategoryHealthcare Category = "healthcare"
)

var AllCategories = []Category{CategoryContact, CategoryHealthcare}

type Status string

const (
	StatusPending   Status = "pending"
	StatusResponded Status = "responded"
)

// Query is a contact message or healthcare question submitted through the
// public site, answered by an admin over email.
type Query struct {
	ID          string      `json:"id"`
	Topic       string      `json:"topic"`
	Category    Category    `json:"category"`
	Email       string      `json:"email"`
	Message     string      `json:"message"`
	Status      Status      `json:"status"`
	Response    null.String `json:"response"`
	RespondedAt null.Time   `json:"responded_at"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
}

func (q Query) Responded() bool { return q.Status == StatusResponded }

// NewQuery contains information needed to submit a Query.
type NewQuery struct {
	Topic    string   `json:"topic" validate:"required"`
	Category Category `json:"category" validate:"required,querycategory"`
	Email    string   `json:"email" validate:"required,email"`
	Message  string   `json:"message" validate:"required"`
}

func (nq *NewQuery) Validate(validate *validator.Validate) error {
	nq.Topic = core.CleanString(nq.Topic)
	nq.Email = core.CleanString(nq.Email, true /* lower */)
	nq.Message = core.CleanString(nq.Message)
	return validate.Struct(nq)
}

type QueryFilter struct {
	Status   Status   `query:"status"`
	Category Category `query:"category"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.Category == ""
}

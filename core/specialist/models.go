package specialist

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/eacna/portal/core"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Application is a specialist's request to be listed in the public
// find-a-specialist directory. Only approved applications are visible
// publicly.
type Application struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone"`
	Specialty      string      `json:"specialty"`
	Institution    string      `json:"institution"`
	Qualifications string      `json:"qualifications"`
	Country        string      `json:"country"`
	Status         Status      `json:"status"`
	DocumentURL    null.String `json:"document_url"`
	CreatedAt      time.Time   `json:"created_at"` // UTC
	UpdatedAt      time.Time   `json:"updated_at"` // UTC
}

func (a Application) Decided() bool {
	return a.Status == StatusApproved || a.Status == StatusRejected
}

// NewApplication contains information needed to apply as a specialist.
type NewApplication struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Specialty      string `json:"specialty" validate:"required"`
	Institution    string `json:"institution" validate:"required"`
	Qualifications string `json:"qualifications" validate:"required"`
	Country        string `json:"country" validate:"required"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.Specialty = core.CleanString(na.Specialty)
	na.Institution = core.CleanString(na.Institution)
	na.Qualifications = core.CleanString(na.Qualifications)
	na.Country = core.CleanString(na.Country)
	return validate.Struct(na)
}

// Document is a credentials file uploaded alongside an application.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type QueryFilter struct {
	Status    Status `query:"status"`
	Specialty string `query:"specialty"`
	Country   string `query:"country"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.Specialty == "" && qf.Country == ""
}

func (qf *QueryFilter) Clean() {
	qf.Specialty = core.CleanString(qf.Specialty)
	qf.Country = core.CleanString(qf.Country)
}

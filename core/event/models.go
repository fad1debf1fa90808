package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eacna/portal/core"
)

type Type string

const (
	TypeConference Type = "conference"
	TypeWorkshop   Type = "workshop"
	TypeSeminar    Type = "seminar"
	TypeTraining   Type = "training"
	TypeOther      Type = "other"
)

var AllTypes = []Type{TypeConference, TypeWorkshop, TypeSeminar, TypeTraining, TypeOther}

type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Type            Type      `json:"type"`
	Date            time.Time `json:"date"` // UTC
	Location        string    `json:"location"`
	Description     string    `json:"description"`
	RegistrationURL string    `json:"registration_url"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// NewEvent contains information needed to create an Event.
type NewEvent struct {
	Title           string    `json:"title" validate:"required"`
	Type            Type      `json:"type" validate:"required,eventtype"`
	Date            time.Time `json:"date" validate:"required"`
	Location        string    `json:"location" validate:"required"`
	Description     string    `json:"description"`
	RegistrationURL string    `json:"registration_url" validate:"omitempty,url"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Location = core.CleanString(ne.Location)
	ne.Description = core.CleanString(ne.Description)
	return validate.Struct(ne)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Title           string    `json:"title"`
	Type            Type      `json:"type" validate:"omitempty,eventtype"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"`
	Description     string    `json:"description"`
	RegistrationURL string    `json:"registration_url" validate:"omitempty,url"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Title = core.CleanString(ue.Title)
	ue.Location = core.CleanString(ue.Location)
	ue.Description = core.CleanString(ue.Description)
	return validate.Struct(ue)
}

// QueryFilter selects events by type and date window. Types and
// ExcludeTypes are mutually exclusive in practice; when both are set,
// Types wins.
type QueryFilter struct {
	Types        []Type    `query:"type"`
	ExcludeTypes []Type    `query:"exclude_type"`
	From         time.Time `query:"from"`
	To           time.Time `query:"to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Types == nil && qf.ExcludeTypes == nil && qf.From.IsZero() && qf.To.IsZero()
}

// Matches reports whether an event satisfies the filter. Shared by the
// repositories and the live list views so both agree on membership.
func (qf *QueryFilter) Matches(evt Event) bool {
	if qf == nil {
		return true
	}
	if len(qf.Types) > 0 {
		if !containsType(qf.Types, evt.Type) {
			return false
		}
	} else if len(qf.ExcludeTypes) > 0 && containsType(qf.ExcludeTypes, evt.Type) {
		return false
	}
	if !qf.From.IsZero() && evt.Date.Before(qf.From) {
		return false
	}
	if !qf.To.IsZero() && evt.Date.After(qf.To) {
		return false
	}
	return true
}

func containsType(types []Type, t Type) bool {
	for _, typ := range types {
		if typ == t {
			return true
		}
	}
	return false
}

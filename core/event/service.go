package event

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
)

var ErrNotFound = errors.New("event not found")

var (
	eventTypeTag  = "eventtype"
	eventTypeText = "invalid event type"
)

// RegisterValidators adds the event package's custom tags to the given
// validator instance.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(eventTypeTag, eventTypeValidation)
	core.RegisterCustomTranslation(validate, translator, eventTypeTag, eventTypeText)
}

func eventTypeValidation(fl validator.FieldLevel) bool {
	return containsType(AllTypes, Type(fl.Field().String()))
}

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		GetEventByID(ctx context.Context, id string) (Event, error)
		FilterEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, ne NewEvent) (Event, error)
		GetByID(ctx context.Context, id string) (Event, error)
		// Query returns events date-ascending, the ordering every
		// public listing uses.
		Query(ctx context.Context, filter *QueryFilter) ([]Event, error)
		// Upcoming returns future events, optionally narrowed further.
		Upcoming(ctx context.Context, filter *QueryFilter) ([]Event, error)
		Update(ctx context.Context, id string, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo   Repository
		feed   core.ChangeFeed
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, feed core.ChangeFeed, logger core.Logger) *service {
	return &service{
		repo:   repo,
		feed:   feed,
		logger: logger,
	}
}

func (svc *service) Create(ctx context.Context, ne NewEvent) (Event, error) {
	now := time.Now().UTC()
	evt := Event{
		Title:           ne.Title,
		Type:            ne.Type,
		Date:            ne.Date.UTC(),
		Location:        ne.Location,
		Description:     ne.Description,
		RegistrationURL: ne.RegistrationURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	evt, err := svc.repo.CreateEvent(ctx, evt)
	if err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}
	svc.publish(ctx, core.ChangeInsert, evt)
	return evt, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Event, error) {
	return svc.repo.FilterEvents(ctx, filter, []core.DBOrdering{{Field: "date", Ascending: true}})
}

func (svc *service) Upcoming(ctx context.Context, filter *QueryFilter) ([]Event, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if filter.From.IsZero() {
		filter.From = time.Now().UTC()
	}
	return svc.Query(ctx, filter)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, errors.Wrap(err, "finding event")
	}

	if ue.Title != "" {
		evt.Title = ue.Title
	}
	if ue.Type != "" {
		evt.Type = ue.Type
	}
	if !ue.Date.IsZero() {
		evt.Date = ue.Date.UTC()
	}
	if ue.Location != "" {
		evt.Location = ue.Location
	}
	if ue.Description != "" {
		evt.Description = ue.Description
	}
	if ue.RegistrationURL != "" {
		evt.RegistrationURL = ue.RegistrationURL
	}
	evt.UpdatedAt = time.Now().UTC()

	evt, err = svc.repo.UpdateEvent(ctx, evt)
	if err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	svc.publish(ctx, core.ChangeUpdate, evt)
	return evt, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	evt, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	if err := svc.repo.DeleteEvent(ctx, id); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	svc.publish(ctx, core.ChangeDelete, evt)
	return nil
}

func (svc *service) publish(ctx context.Context, op core.ChangeOp, evt Event) {
	if svc.feed == nil {
		return
	}
	if err := svc.feed.Publish(ctx, core.FeedEvents, op, evt); err != nil && svc.logger != nil {
		svc.logger.Error("publishing events change event", err)
	}
}

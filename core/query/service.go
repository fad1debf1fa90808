package query

import (
	"context"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/eacna/portal/core"
)

var (
	// errors
	ErrNotFound         = errors.New("query not found")
	ErrAlreadyResponded = errors.New("this query has already been responded to")
)

var (
	categoryTag  = "querycategory"
	categoryText = "invalid query category"
)

// RegisterValidators adds the query package's custom tags to the given
// validator instance.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}

func categoryValidation(fl validator.FieldLevel) bool {
	val := Category(fl.Field().String())
	for _, cat := range AllCategories {
		if val == cat {
			return true
		}
	}
	return false
}

type (
	Repository interface {
		CreateQuery(ctx context.Context, qry Query) (Query, error)
		GetQueryByID(ctx context.Context, id string) (Query, error)
		FilterQueries(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Query, error)
		UpdateQuery(ctx context.Context, qry Query) (Query, error)
	}

	Service interface {
		Submit(ctx context.Context, nq NewQuery) (Query, error)
		GetByID(ctx context.Context, id string) (Query, error)
		// Respond marks the query responded and emails the response to the
		// requester. A failed delivery is logged, never retried, and does
		// not roll the status back.
		Respond(ctx context.Context, id, response string) (Query, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Query, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		feed    core.ChangeFeed
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, feed core.ChangeFeed, logger core.Logger) *service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		feed:    feed,
		logger:  logger,
	}
}

func (svc *service) Submit(ctx context.Context, nq NewQuery) (Query, error) {
	qry := Query{
		Topic:     nq.Topic,
		Category:  nq.Category,
		Email:     nq.Email,
		Message:   nq.Message,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	qry, err := svc.repo.CreateQuery(ctx, qry)
	if err != nil {
		return Query{}, errors.Wrap(err, "creating query")
	}
	svc.publish(ctx, core.ChangeInsert, qry)
	return qry, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Query, error) {
	return svc.repo.GetQueryByID(ctx, id)
}

func (svc *service) Respond(ctx context.Context, id, response string) (Query, error) {
	qry, err := svc.repo.GetQueryByID(ctx, id)
	if err != nil {
		return Query{}, errors.Wrap(err, "finding query")
	}
	if qry.Responded() {
		return Query{}, ErrAlreadyResponded
	}

	response = core.CleanString(response)
	if response == "" {
		return Query{}, core.NewValidationError(nil, core.FieldError{Field: "response", Error: "this field is required"})
	}

	qry.Status = StatusResponded
	qry.Response = null.StringFrom(response)
	qry.RespondedAt = null.TimeFrom(time.Now().UTC())
	qry, err = svc.repo.UpdateQuery(ctx, qry)
	if err != nil {
		return Query{}, errors.Wrap(err, "updating query")
	}

	svc.sendResponseMail(qry)
	svc.publish(ctx, core.ChangeUpdate, qry)
	return qry, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Query, error) {
	return svc.repo.FilterQueries(ctx, filter, []core.DBOrdering{{Field: "created_at", Ascending: false}})
}

func (svc *service) sendResponseMail(qry Query) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: qry.Email}},
		Subject:      "Re: " + qry.Topic,
		TemplateName: "query-response",
		TemplateData: struct {
			Topic    string
			Response string
		}{qry.Topic, qry.Response.String},
	})
}

func (svc *service) publish(ctx context.Context, op core.ChangeOp, qry Query) {
	if svc.feed == nil {
		return
	}
	if err := svc.feed.Publish(ctx, core.FeedQueries, op, qry); err != nil && svc.logger != nil {
		svc.logger.Error("publishing queries change event", err)
	}
}

package specialist

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/storage/object"
)

var (
	// errors
	ErrNotFound       = errors.New("application not found")
	ErrAlreadyDecided = errors.New("this application has already been decided")
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplicationByID(ctx context.Context, id string) (Application, error)
		FilterApplications(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		UpdateApplication(ctx context.Context, app Application) (Application, error)
	}

	Service interface {
		Apply(ctx context.Context, na NewApplication, doc *Document) (Application, error)
		GetByID(ctx context.Context, id string) (Application, error)
		Approve(ctx context.Context, id string) (Application, error)
		Reject(ctx context.Context, id string) (Application, error)
		// QueryPublic only returns approved applications.
		QueryPublic(ctx context.Context, filter *QueryFilter) ([]Application, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error)
	}

	service struct {
		repo    Repository
		objects object.Store
		feed    core.ChangeFeed
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, objects object.Store, feed core.ChangeFeed, logger core.Logger) *service {
	return &service{
		repo:    repo,
		objects: objects,
		feed:    feed,
		logger:  logger,
	}
}

// Apply files a new application in the pending state. The credentials
// document, when provided, is stored first so the record never references
// a missing object.
func (svc *service) Apply(ctx context.Context, na NewApplication, doc *Document) (Application, error) {
	now := time.Now().UTC()
	app := Application{
		Name:           na.Name,
		Email:          na.Email,
		Phone:          na.Phone,
		Specialty:      na.Specialty,
		Institution:    na.Institution,
		Qualifications: na.Qualifications,
		Country:        na.Country,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if doc != nil && svc.objects != nil {
		key := fmt.Sprintf("specialist-documents/%s%s", uuid.New().String(), path.Ext(doc.Filename))
		url, err := svc.objects.PutObject(ctx, object.UploadInput{
			Key:         key,
			ContentType: doc.ContentType,
			Body:        bytes.NewReader(doc.Content),
			Size:        int64(len(doc.Content)),
		})
		if err != nil {
			return Application{}, errors.Wrap(err, "uploading application document")
		}
		app.DocumentURL.SetValid(url)
	}

	app, err := svc.repo.CreateApplication(ctx, app)
	if err != nil {
		return Application{}, errors.Wrap(err, "creating application")
	}
	svc.publish(ctx, core.ChangeInsert, app)
	return app, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplicationByID(ctx, id)
}

func (svc *service) Approve(ctx context.Context, id string) (Application, error) {
	return svc.decide(ctx, id, StatusApproved)
}

func (svc *service) Reject(ctx context.Context, id string) (Application, error) {
	return svc.decide(ctx, id, StatusRejected)
}

// decide transitions a pending application to its final status.
// Repeating the same decision is a no-op; reversing one is rejected.
func (svc *service) decide(ctx context.Context, id string, status Status) (Application, error) {
	app, err := svc.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return Application{}, errors.Wrap(err, "finding application")
	}
	if app.Status == status {
		return app, nil
	}
	if app.Decided() {
		return Application{}, ErrAlreadyDecided
	}

	app.Status = status
	app.UpdatedAt = time.Now().UTC()
	app, err = svc.repo.UpdateApplication(ctx, app)
	if err != nil {
		return Application{}, errors.Wrap(err, "updating application")
	}
	svc.publish(ctx, core.ChangeUpdate, app)
	return app, nil
}

func (svc *service) QueryPublic(ctx context.Context, filter *QueryFilter) ([]Application, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Status = StatusApproved
	return svc.repo.FilterApplications(ctx, filter, []core.DBOrdering{{Field: "name", Ascending: true}})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	return svc.repo.FilterApplications(ctx, filter, ordering)
}

func (svc *service) publish(ctx context.Context, op core.ChangeOp, app Application) {
	if svc.feed == nil {
		return
	}
	if err := svc.feed.Publish(ctx, core.FeedSpecialists, op, app); err != nil && svc.logger != nil {
		svc.logger.Error("publishing specialists change event", err)
	}
}

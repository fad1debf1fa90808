package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core/specialist"
)

// maxDocumentSize bounds uploaded credentials documents (10 MiB).
const maxDocumentSize = 10 << 20

type specialistApi struct {
	opts *Options
}

func registerSpecialistAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := specialistApi{opts: opts}

	sg := g.Group("/specialists")

	// un-authed endpoints: the public directory and the application form
	sg.GET("", api.queryPublic)
	sg.POST("/apply", api.apply)

	// admin endpoints
	ag := sg.Group("/applications", jwt, adminMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/approve", api.approve)
	ag.POST("/:id/reject", api.reject)
}

// Handlers

// apply accepts a multipart form: the application fields plus an optional
// "document" credentials file.
func (api *specialistApi) apply(ctx echo.Context) error {
	var data specialist.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	doc, err := bindDocument(ctx)
	if err != nil {
		return err
	}

	app, err := api.opts.SpecialistSvc.Apply(ctx.Request().Context(), data, doc)
	if err != nil {
		return errors.Wrap(err, "filing application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func bindDocument(ctx echo.Context) (*specialist.Document, error) {
	fh, err := ctx.FormFile("document")
	if err != nil {
		return nil, nil // no file attached
	}
	if fh.Size > maxDocumentSize {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "document too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening document upload")
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading document upload")
	}
	return &specialist.Document{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func (api *specialistApi) queryPublic(ctx echo.Context) error {
	filter := new(specialist.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []specialist.Application{})
	}
	filter.Clean()

	apps, err := api.opts.SpecialistSvc.QueryPublic(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying specialists")
	}
	if apps == nil {
		apps = []specialist.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *specialistApi) query(ctx echo.Context) error {
	filter := new(specialist.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []specialist.Application{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	apps, err := api.opts.SpecialistSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []specialist.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *specialistApi) retrieve(ctx echo.Context) error {
	app, err := api.opts.SpecialistSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *specialistApi) approve(ctx echo.Context) error {
	app, err := api.opts.SpecialistSvc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *specialistApi) reject(ctx echo.Context) error {
	app, err := api.opts.SpecialistSvc.Reject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rejecting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

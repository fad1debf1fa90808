package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core/query"
)

type queryApi struct {
	opts *Options
}

func registerQueryAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := queryApi{opts: opts}

	qg := g.Group("/queries")

	// un-authed: anyone may ask
	qg.POST("", api.submit)

	// admin endpoints
	qg.GET("", api.query, jwt, adminMiddleware())
	qg.GET("/:id", api.retrieve, jwt, adminMiddleware())
	qg.POST("/:id/respond", api.respond, jwt, adminMiddleware())
}

// Handlers

func (api *queryApi) submit(ctx echo.Context) error {
	var data query.NewQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuery")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	qry, err := api.opts.QuerySvc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting query")
	}
	return ctx.JSON(http.StatusCreated, qry)
}

func (api *queryApi) query(ctx echo.Context) error {
	filter := new(query.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []query.Query{})
	}

	queries, err := api.opts.QuerySvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying queries")
	}
	if queries == nil {
		queries = []query.Query{}
	}
	return ctx.JSON(http.StatusOK, queries)
}

func (api *queryApi) retrieve(ctx echo.Context) error {
	qry, err := api.opts.QuerySvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding query")
	}
	return ctx.JSON(http.StatusOK, qry)
}

func (api *queryApi) respond(ctx echo.Context) error {
	var data RespondRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RespondRequest")
	}

	qry, err := api.opts.QuerySvc.Respond(ctx.Request().Context(), ctx.Param("id"), data.Response)
	if err != nil {
		return errors.Wrap(err, "responding to query")
	}
	return ctx.JSON(http.StatusOK, qry)
}

type RespondRequest struct {
	Response string `json:"response"`
}

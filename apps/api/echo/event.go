package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core/event"
	"github.com/eacna/portal/core/livelist"
)

type eventApi struct {
	opts *Options
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := eventApi{opts: opts}

	eg := g.Group("/events")

	// un-authed endpoints
	eg.GET("", api.query)
	eg.GET("/upcoming", api.upcoming)
	eg.GET("/:id", api.retrieve)

	// admin endpoints
	eg.POST("", api.create, jwt, adminMiddleware())
	eg.GET("/live", api.live, jwt, adminMiddleware())
	eg.PUT("/:id", api.update, jwt, adminMiddleware())
	eg.DELETE("/:id", api.destroy, jwt, adminMiddleware())
}

// LiveEventsResponse is the admin live view payload: the current ordered
// events plus the backing list's subscription health.
type LiveEventsResponse struct {
	Health string        `json:"health"`
	Error  string        `json:"error,omitempty"`
	Events []event.Event `json:"events"`
}

func healthLabel(h livelist.Health) string {
	switch h {
	case livelist.HealthLive:
		return "live"
	case livelist.HealthStale:
		return "stale"
	case livelist.HealthClosed:
		return "closed"
	}
	return "unknown"
}

// Handlers

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	evt, err := api.opts.EventSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) query(ctx echo.Context) error {
	filter := new(event.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []event.Event{})
	}

	events, err := api.opts.EventSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) upcoming(ctx echo.Context) error {
	filter := new(event.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []event.Event{})
	}

	events, err := api.opts.EventSvc.Upcoming(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying upcoming events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) live(ctx echo.Context) error {
	lst := api.opts.EventList
	if lst == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "live view not configured")
	}

	health, err := lst.Health()
	resp := LiveEventsResponse{
		Health: healthLabel(health),
		Events: lst.Snapshot(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if resp.Events == nil {
		resp.Events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	evt, err := api.opts.EventSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	evt, err := api.opts.EventSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.opts.EventSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

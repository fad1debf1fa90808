// Package echoapi is the HTTP surface of the portal, built on Echo.
package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/event"
	"github.com/eacna/portal/core/livelist"
	"github.com/eacna/portal/core/member"
	"github.com/eacna/portal/core/payment"
	"github.com/eacna/portal/core/query"
	"github.com/eacna/portal/core/specialist"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		MemberSvc     member.Service
		PaymentSvc    payment.Service
		SpecialistSvc specialist.Service
		EventSvc      event.Service
		QuerySvc      query.Service

		// EventList, when set, backs the admin live events view with a
		// feed-synchronized list instead of a per-request query.
		EventList *livelist.List[event.Event]

		Validate   *validator.Validate
		Translator ut.Translator
		Logger     core.Logger

		// ShutdownSignal is called when a request handler reports an
		// unrecoverable error.
		ShutdownSignal func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(requestTimeoutMiddleware(core.Conf.Server.RequestTimeout))

	signalShutdown := s.opts.ShutdownSignal
	if signalShutdown == nil {
		signalShutdown = func() {}
	}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerMemberAPI(v1, jwt, s.opts)
	registerPaymentAPI(v1, jwt, s.opts)
	registerSpecialistAPI(v1, jwt, s.opts)
	registerEventAPI(v1, jwt, s.opts)
	registerQueryAPI(v1, jwt, s.opts)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the EACNA API!")
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/member"
	"github.com/eacna/portal/core/payment"
)

var errMbrNotFoundInCtx = errors.New("member object not found in echo.Context")

// Portal destinations returned on login, telling the frontend where the
// member belongs in the lifecycle.
const (
	PortalAdmin     = "admin"
	PortalDashboard = "dashboard"
	PortalPayment   = "payment"
	PortalPending   = "pending"
)

type memberApi struct {
	opts *Options
}

func registerMemberAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := memberApi{opts: opts}

	mg := g.Group("/members")

	// un-authed endpoints
	mg.POST("/register", api.register)
	mg.POST("/login", api.login)
	mg.POST("/password-reset", api.resetPassword)
	mg.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := mg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.retrieveSelf)
	ag.PUT("/me", api.updateSelf)
	ag.POST("/me/payments", api.submitPayment)
	ag.GET("/me/dashboard", api.dashboard, portalMiddleware(api.opts.MemberSvc))
	ag.GET("", api.query, adminMiddleware())

	// admin detail endpoints
	dg := ag.Group("/:id", adminMiddleware(), memberObjectMiddleware(api.opts.MemberSvc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.POST("/activate", api.activate)
	dg.POST("/deactivate", api.deactivate)
}

// Handlers

func (api *memberApi) register(ctx echo.Context) error {
	var data member.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := data.Validate(ctx.Request().Context(), api.opts.Validate, api.opts.MemberSvc); err != nil {
		return err
	}

	mbr, err := api.opts.MemberSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering member")
	}
	return ctx.JSON(http.StatusCreated, mbr)
}

func (api *memberApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	mbr, err := api.opts.MemberSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetMemberClaims(mbr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Portal: portalFor(mbr)})
}

// portalFor picks the post-login destination from the lifecycle state.
func portalFor(mbr member.Member) string {
	switch member.PortalAccess(mbr) {
	case nil:
		if mbr.IsAdmin {
			return PortalAdmin
		}
		return PortalDashboard
	case member.ErrPaymentRequired:
		return PortalPayment
	default:
		return PortalPending
	}
}

func (api *memberApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	if err := api.opts.MemberSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == member.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *memberApi) confirmPasswordReset(ctx echo.Context) error {
	var data member.ResetMemberPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetMemberPassword")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	if err := api.opts.MemberSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *memberApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.opts.MemberSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *memberApi) retrieveSelf(ctx echo.Context) error {
	mbr, err := getContextMember(ctx, api.opts.MemberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) updateSelf(ctx echo.Context) error {
	mbr, err := getContextMember(ctx, api.opts.MemberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	return api.applyUpdate(ctx, mbr)
}

// submitPayment records the caller's paybill transaction reference.
func (api *memberApi) submitPayment(ctx echo.Context) error {
	mbr, err := getContextMember(ctx, api.opts.MemberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	var data member.PaymentSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentSubmission")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	mbr, err = api.opts.MemberSvc.SubmitPayment(ctx.Request().Context(), mbr.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting payment")
	}
	return ctx.JSON(http.StatusCreated, mbr)
}

// dashboard is the portal home: the member record plus their payment
// history. Reaching it at all means the portal gate was passed.
func (api *memberApi) dashboard(ctx echo.Context) error {
	mbr, err := getContextMember(ctx, api.opts.MemberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	payments, err := api.opts.PaymentSvc.Query(ctx.Request().Context(), &payment.QueryFilter{MemberID: mbr.ID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying member payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, DashboardResponse{Member: mbr, Payments: payments})
}

func (api *memberApi) query(ctx echo.Context) error {
	filter := new(member.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []member.Member{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	members, err := api.opts.MemberSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []member.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *memberApi) retrieve(ctx echo.Context) error {
	mbr, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMbrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) update(ctx echo.Context) error {
	mbr, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMbrNotFoundInCtx, "retrieving object from context")
	}
	return api.applyUpdate(ctx, mbr)
}

func (api *memberApi) applyUpdate(ctx echo.Context, mbr member.Member) error {
	var data member.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	if err := data.Validate(ctx.Request().Context(), mbr, api.opts.Validate, api.opts.MemberSvc); err != nil {
		return err
	}

	mbr, err := api.opts.MemberSvc.Update(ctx.Request().Context(), mbr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) activate(ctx echo.Context) error {
	mbr, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMbrNotFoundInCtx, "retrieving object from context")
	}

	mbr, err := api.opts.MemberSvc.Activate(ctx.Request().Context(), mbr.ID)
	if err != nil {
		return errors.Wrap(err, "activating member")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) deactivate(ctx echo.Context) error {
	mbr, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMbrNotFoundInCtx, "retrieving object from context")
	}

	mbr, err := api.opts.MemberSvc.Deactivate(ctx.Request().Context(), mbr.ID)
	if err != nil {
		return errors.Wrap(err, "deactivating member")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

// memberObjectMiddleware resolves the :id path param and stashes the
// Member under "object".
func memberObjectMiddleware(svc member.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			mbr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == member.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding member by ID")
			}
			ctx.Set("object", mbr)
			return next(ctx)
		}
	}
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token  string `json:"token"`
		Portal string `json:"portal,omitempty"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DashboardResponse struct {
		Member   member.Member     `json:"member"`
		Payments []payment.Payment `json:"payments"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

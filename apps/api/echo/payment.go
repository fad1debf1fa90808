package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core/payment"
)

type paymentApi struct {
	opts *Options
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := paymentApi{opts: opts}

	// donations are publicly writable, admin-readable
	dg := g.Group("/donations")
	dg.POST("", api.recordDonation)
	dg.GET("", api.queryDonations, jwt, adminMiddleware())

	// payments are admin-only; members act through /members/me/payments
	pg := g.Group("/payments", jwt, adminMiddleware())
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
	pg.POST("/:transaction_id/approve", api.approve)
}

// Handlers

func (api *paymentApi) query(ctx echo.Context) error {
	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	payments, err := api.opts.PaymentSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	pmt, err := api.opts.PaymentSvc.Get(ctx.Request().Context(), payment.GetFilter{ID: ctx.Param("id")})
	if err != nil {
		return errors.Wrap(err, "finding payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

// approve verifies a submitted transaction reference. The member record
// is advanced with the payment; both are returned.
func (api *paymentApi) approve(ctx echo.Context) error {
	mbr, err := api.opts.MemberSvc.ApprovePayment(ctx.Request().Context(), ctx.Param("transaction_id"))
	if err != nil {
		return errors.Wrap(err, "approving payment")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *paymentApi) recordDonation(ctx echo.Context) error {
	var data payment.NewDonation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDonation")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	don, err := api.opts.PaymentSvc.RecordDonation(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording donation")
	}
	return ctx.JSON(http.StatusCreated, don)
}

func (api *paymentApi) queryDonations(ctx echo.Context) error {
	donations, err := api.opts.PaymentSvc.QueryDonations(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying donations")
	}
	if donations == nil {
		donations = []payment.Donation{}
	}
	return ctx.JSON(http.StatusOK, donations)
}

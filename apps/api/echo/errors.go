package echoapi

import (
	stderrors "errors"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/event"
	"github.com/eacna/portal/core/member"
	"github.com/eacna/portal/core/payment"
	"github.com/eacna/portal/core/query"
	"github.com/eacna/portal/core/specialist"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "member not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "membership deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if code, message = mapDomainError(cause); code != 0 {
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var mbr member.Member
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				mbr.ID = claims.Subject
				mbr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), mbr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// mapDomainError maps the core packages' sentinel errors to HTTP replies.
// Returns code 0 when the error is not a known domain error.
func mapDomainError(cause error) (int, interface{}) {
	switch cause {
	case member.ErrNotFound, payment.ErrNotFound, specialist.ErrNotFound, event.ErrNotFound, query.ErrNotFound:
		return http.StatusNotFound, errHttpNotFound.Message
	case payment.ErrTransactionExists:
		return http.StatusConflict, cause.Error()
	case specialist.ErrAlreadyDecided, query.ErrAlreadyResponded, payment.ErrAlreadyApproved:
		return http.StatusConflict, cause.Error()
	case member.ErrAuthFailed:
		return http.StatusBadRequest, errAuthenticationFailed.Message
	case member.ErrAccountDeactivated:
		return http.StatusForbidden, cause.Error()
	case member.ErrPaymentRequired, member.ErrPendingActivation:
		return http.StatusForbidden, cause.Error()
	}
	// lifecycle errors wrap the sentinel with the offending transition
	if stderrors.Is(cause, member.ErrIllegalTransition) {
		return http.StatusConflict, cause.Error()
	}
	return 0, nil
}

package echoapi

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core/member"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// portalMiddleware is the dashboard gate. Access is decided on the stored
// member record, not the token: a stale token cannot get past a
// deactivated or not-yet-activated membership.
func portalMiddleware(svc member.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			mbr, err := getContextMember(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context member")
			}
			if err = member.PortalAccess(mbr); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// requestTimeoutMiddleware bounds every request's context so downstream
// calls (DB, object store, feed) cannot hang past the deadline.
func requestTimeoutMiddleware(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if timeout <= 0 {
				return next(ctx)
			}
			reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), timeout)
			defer cancel()
			ctx.SetRequest(ctx.Request().WithContext(reqCtx))
			return next(ctx)
		}
	}
}

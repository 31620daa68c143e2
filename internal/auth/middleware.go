package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

const callerKey = "auth.caller"

// Middleware rejects requests without a valid bearer token and stores the caller.
func Middleware(tokens *Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return response.New(c).WithError(errorbank.Unauthenticated("missing authorization header")).Build()
			}

			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				return response.New(c).WithError(errorbank.Unauthenticated("invalid authorization format")).Build()
			}

			caller, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				return response.New(c).WithError(errorbank.Unauthenticated(err.Error())).Build()
			}

			c.Set(callerKey, caller)
			return next(c)
		}
	}
}

// CallerFrom returns the caller stored by Middleware.
func CallerFrom(c echo.Context) (Caller, bool) {
	caller, ok := c.Get(callerKey).(Caller)
	return caller, ok
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/auth"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/labstack/echo/v4"
)

type contextKey string

const claimsContextKey contextKey = "wallet_claims"

// ClaimsFromContext returns the wallet claims attached by BearerAuth, if any.
func ClaimsFromContext(ctx context.Context) *auth.WalletClaims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.WalletClaims)
	return claims
}

// BearerAuth validates the Authorization header against the given JWT manager
// and attaches the wallet claims to the request context.
func BearerAuth(manager *auth.JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return httperrors.NewHTTPError(http.StatusUnauthorized, types.PublicHTTPErrorTypeGeneric, "Missing bearer token")
			}

			claims, err := manager.Validate(token)
			if err != nil {
				return httperrors.NewHTTPError(http.StatusUnauthorized, types.PublicHTTPErrorTypeGeneric, "Invalid bearer token")
			}

			req := c.Request()
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), claimsContextKey, claims)))
			return next(c)
		}
	}
}

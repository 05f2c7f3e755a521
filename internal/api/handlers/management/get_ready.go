package management

import (
	"context"
	"net/http"
	"time"

	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/labstack/echo/v4"
)

func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

// getReadyHandler returns 200 only when all server components are initialized.
func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(521, "Not ready.")
		}

		return c.String(http.StatusOK, "Ready.")
	}
}

func pingDatabase(ctx context.Context, s *api.Server) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return s.DB.PingContext(ctx)
}

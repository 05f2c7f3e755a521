package management

import (
	"net/http"
	"strings"

	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/util"
	"github.com/labstack/echo/v4"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// getHealthyHandler probes the server and its database connection.
// It writes one line per probe and 521 if any probe failed.
func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var str strings.Builder
		healthy := true

		if s.Ready() {
			str.WriteString("Ready: OK\n")
		} else {
			healthy = false
			str.WriteString("Ready: NOT READY\n")
		}

		if err := pingDatabase(ctx, s); err != nil {
			log.Warn().Err(err).Msg("Database ping failed")
			healthy = false
			str.WriteString("Database: FAILED\n")
		} else {
			str.WriteString("Database: OK\n")
		}

		if !healthy {
			str.WriteString("Not healthy.")
			return c.String(521, str.String())
		}

		str.WriteString("Healthy.")
		return c.String(http.StatusOK, str.String())
	}
}

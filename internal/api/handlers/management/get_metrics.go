package management

import (
	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func GetMetricsRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

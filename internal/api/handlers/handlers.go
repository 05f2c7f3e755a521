package handlers

import (
	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/handlers/management"
	"github.com/chainapsis/oko-sub000/internal/api/handlers/tss"
	"github.com/labstack/echo/v4"
)

// AttachAllRoutes attaches all registered routes to the server's router.
func AttachAllRoutes(s *api.Server) {
	s.Router.Routes = []*echo.Route{
		// management
		management.GetHealthyRoute(s),
		management.GetMetricsRoute(s),
		management.GetReadyRoute(s),

		// tss
		tss.GetSessionRoute(s),
		tss.PostAbortSessionRoute(s),
		tss.PostKeygenStepRoute(s),
		tss.PostPresignStepRoute(s),
		tss.PostSignStepRoute(s),
		tss.PostTriplesStepRoute(s),
	}
}

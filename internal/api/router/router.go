package router

import (
	"net/http"

	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/handlers"
	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/api/middleware"
	"github.com/chainapsis/oko-sub000/internal/auth"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// Init sets up the echo instance, middlewares and route groups on the server.
func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = false
	s.Echo.HideBanner = true
	s.Echo.Logger.SetOutput(&echoLogger{})

	s.Echo.HTTPErrorHandler = errorHandler(s.Config.Echo.HideInternalServerErrorDetails)

	if s.Config.Echo.EnableRecoverMiddleware {
		s.Echo.Use(echoMiddleware.Recover())
	} else {
		log.Warn().Msg("Disabling recover middleware due to environment config")
	}

	if s.Config.Echo.EnableRequestIDMiddleware {
		s.Echo.Use(echoMiddleware.RequestID())
	} else {
		log.Warn().Msg("Disabling request ID middleware due to environment config")
	}

	if s.Config.Echo.EnableLoggerMiddleware {
		s.Echo.Use(middleware.Logger())
	} else {
		log.Warn().Msg("Disabling logger middleware due to environment config")
	}

	s.Router = &api.Router{
		Routes: nil, // updated by handlers.AttachAllRoutes

		Root:       s.Echo.Group(""),
		Management: s.Echo.Group("/-"),
		APIV1TSS:   s.Echo.Group("/api/v1/tss"),
	}

	if s.Config.Auth.Secret != "" {
		manager := auth.NewJWTManager(s.Config.Auth.Secret, s.Config.Auth.Issuer, s.Config.Auth.TokenDuration)
		s.Router.APIV1TSS.Use(middleware.BearerAuth(manager))
	} else {
		log.Warn().Msg("Bearer auth is disabled, caller identity is trusted as declared")
	}

	handlers.AttachAllRoutes(s)
}

// errorHandler renders HTTPError / HTTPValidationError as their public JSON
// shape and wraps everything else into a generic error envelope.
func errorHandler(hideInternalServerErrorDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var code int
		var payload interface{}

		switch e := err.(type) {
		case *httperrors.HTTPError:
			code = int(*e.Code)
			if e.Internal != nil {
				log.Ctx(c.Request().Context()).Error().Err(e.Internal).Msg("HTTP error with internal cause")
			}
			payload = e.PublicHTTPError
		case *httperrors.HTTPValidationError:
			code = int(*e.Code)
			payload = e.PublicHTTPValidationError
		case *echo.HTTPError:
			code = e.Code
			msg := http.StatusText(e.Code)
			if !hideInternalServerErrorDetails || e.Code < http.StatusInternalServerError {
				if m, ok := e.Message.(string); ok {
					msg = m
				}
			}
			payload = types.PublicHTTPError{
				Code:  swag.Int64(int64(e.Code)),
				Type:  swag.String(types.PublicHTTPErrorTypeGeneric),
				Title: swag.String(msg),
			}
		default:
			code = http.StatusInternalServerError
			title := http.StatusText(http.StatusInternalServerError)
			if !hideInternalServerErrorDetails {
				title = err.Error()
			}
			log.Ctx(c.Request().Context()).Error().Err(err).Msg("Unhandled error")
			payload = types.PublicHTTPError{
				Code:  swag.Int64(int64(code)),
				Type:  swag.String(types.PublicHTTPErrorTypeGeneric),
				Title: swag.String(title),
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, payload)
		}
		if err != nil {
			log.Ctx(c.Request().Context()).Error().Err(err).Msg("Failed to write error response")
		}
	}
}

// echoLogger discards echo's internal logging, zerolog is the single sink.
type echoLogger struct{}

func (l *echoLogger) Write(p []byte) (int, error) {
	log.Debug().Str("component", "echo").Msg(string(p))
	return len(p), nil
}

package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger attaches a request-scoped zerolog logger to the request context and
// emits one line per finished request.
func Logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			l := log.With().
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Logger()

			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			level := zerolog.InfoLevel
			if c.Response().Status >= 500 {
				level = zerolog.ErrorLevel
			}
			l.WithLevel(level).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Msg("Request handled")

			return nil
		}
	}
}

package tss

import (
	"net/http"

	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/chainapsis/oko-sub000/internal/util"
	"github.com/labstack/echo/v4"
)

func PostAbortSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1TSS.POST("/sessions/:session_id/abort", postAbortSessionHandler(s))
}

// postAbortSessionHandler 用户主动中止会话。对已 ABORTED 的会话幂等返回成功。
func postAbortSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		sessionID := c.Param("session_id")

		var body types.AbortSessionPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		walletID, _ := callerIdentity(c, body.WalletID, "")

		if err := s.TSS.AbortSession(ctx, sessionID, walletID); err != nil {
			log.Debug().Err(err).Str("session_id", sessionID).Msg("Abort rejected")
			return httperrors.FromStepError(err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}

package tss

import (
	"net/http"

	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/chainapsis/oko-sub000/internal/util"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

func GetSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1TSS.GET("/sessions/:session_id", getSessionHandler(s))
}

// getSessionHandler 会话只读视图，供客户端断线后恢复进度。
// 归属检查与步进调用一致：非本人会话一律表现为不存在。
func getSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		sessionID := c.Param("session_id")

		walletID, _ := callerIdentity(c, swag.String(c.QueryParam("wallet_id")), "")
		if walletID == "" {
			return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "wallet_id is required")
		}

		view, err := s.TSS.GetSession(ctx, sessionID, walletID)
		if err != nil {
			log.Debug().Err(err).Str("session_id", sessionID).Msg("Session lookup rejected")
			return httperrors.FromStepError(err)
		}

		response := &types.GetSessionResponse{
			SessionID:  swag.String(view.SessionID),
			WalletID:   swag.String(view.WalletID),
			CustomerID: view.CustomerID,
			State:      swag.String(string(view.State)),
		}
		for _, stage := range view.Stages {
			response.Stages = append(response.Stages, &types.TssStageSummary{
				StageType:   swag.String(string(stage.StageType)),
				StageStatus: swag.String(string(stage.StageStatus)),
			})
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}

package tss

import (
	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/tss/orchestrator"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/chainapsis/oko-sub000/internal/util"
	"github.com/labstack/echo/v4"
)

func PostPresignStepRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1TSS.POST("/presign/steps/:step", postPresignStepHandler(s))
}

// postPresignStepHandler PRESIGN 步进（1–3）。每一步都要求既有会话。
func postPresignStepHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		step, err := stepParam(c)
		if err != nil {
			return err
		}

		var body types.TssStepPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		walletID, customerID := callerIdentity(c, body.WalletID, body.CustomerID)

		result, err := s.TSS.PresignStep(ctx, orchestrator.StepRequest{
			Step:       step,
			SessionID:  body.SessionID,
			WalletID:   walletID,
			CustomerID: customerID,
			Payload:    body.Payload,
		})
		if err != nil {
			log.Debug().Err(err).Int("step", step).Msg("Presign step rejected")
			return httperrors.FromStepError(err)
		}

		return stepResponse(c, result)
	}
}

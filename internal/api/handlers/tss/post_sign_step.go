package tss

import (
	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/tss/orchestrator"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/chainapsis/oko-sub000/internal/util"
	"github.com/labstack/echo/v4"
)

func PostSignStepRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1TSS.POST("/sign/steps/:step", postSignStepHandler(s))
}

// postSignStepHandler SIGN 步进（1–2）。每一步都要求既有会话。
func postSignStepHandler(s *api.Server) echo.HandlerFunc {
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

		result, err := s.TSS.SignStep(ctx, orchestrator.StepRequest{
			Step:       step,
			SessionID:  body.SessionID,
			WalletID:   walletID,
			CustomerID: customerID,
			Payload:    body.Payload,
		})
		if err != nil {
			log.Debug().Err(err).Int("step", step).Msg("Sign step rejected")
			return httperrors.FromStepError(err)
		}

		return stepResponse(c, result)
	}
}

package tss

import (
	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/tss/orchestrator"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/chainapsis/oko-sub000/internal/util"
	"github.com/labstack/echo/v4"
)

func PostTriplesStepRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1TSS.POST("/triples/steps/:step", postTriplesStepHandler(s))
}

// postTriplesStepHandler TRIPLES 步进（1–11）。第 1 步创建会话并返回新 session_id。
func postTriplesStepHandler(s *api.Server) echo.HandlerFunc {
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

		result, err := s.TSS.TriplesStep(ctx, orchestrator.StepRequest{
			Step:       step,
			SessionID:  body.SessionID,
			WalletID:   walletID,
			CustomerID: customerID,
			Payload:    body.Payload,
		})
		if err != nil {
			log.Debug().Err(err).Int("step", step).Msg("Triples step rejected")
			return httperrors.FromStepError(err)
		}

		return stepResponse(c, result)
	}
}

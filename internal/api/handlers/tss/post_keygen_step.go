package tss

import (
	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/tss/orchestrator"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/chainapsis/oko-sub000/internal/util"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

func PostKeygenStepRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1TSS.POST("/keygen/steps/:step", postKeygenStepHandler(s))
}

// postKeygenStepHandler KEYGEN 步进（1–5）。不绑定会话、不做归属检查，
// 阶段以调用方提供的 keygen_id 为键。
func postKeygenStepHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		step, err := stepParam(c)
		if err != nil {
			return err
		}

		var body types.KeygenStepPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		result, err := s.TSS.KeygenStep(ctx, orchestrator.StepRequest{
			Step:      step,
			SessionID: swag.StringValue(body.KeygenID),
			Payload:   body.Payload,
		})
		if err != nil {
			log.Debug().Err(err).Int("step", step).Msg("Keygen step rejected")
			return httperrors.FromStepError(err)
		}

		return stepResponse(c, result)
	}
}

package tss

import (
	"net/http"
	"strconv"

	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/api/middleware"
	"github.com/chainapsis/oko-sub000/internal/tss/orchestrator"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/chainapsis/oko-sub000/internal/util"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

// stepParam 解析路径中的步骤号。越界交由核心判定，这里只要求正整数。
func stepParam(c echo.Context) (int, error) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || step < 1 {
		return 0, httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "step must be a positive integer")
	}
	return step, nil
}

// callerIdentity 返回调用方身份。启用 bearer 认证时以 token 声明为准，
// 否则信任请求体声明的身份。
func callerIdentity(c echo.Context, walletID *string, customerID string) (string, string) {
	if claims := middleware.ClaimsFromContext(c.Request().Context()); claims != nil {
		return claims.WalletID, claims.CustomerID
	}
	return swag.StringValue(walletID), customerID
}

func stepResponse(c echo.Context, result *orchestrator.StepResult) error {
	return util.ValidateAndReturn(c, http.StatusOK, &types.TssStepResponse{
		SessionID:   swag.String(result.SessionID),
		StageType:   swag.String(string(result.StageType)),
		StageStatus: swag.String(string(result.StageStatus)),
		Payload:     result.Outgoing,
	})
}

package util

import (
	"net/http"

	"github.com/chainapsis/oko-sub000/internal/api/httperrors"
	"github.com/chainapsis/oko-sub000/internal/types"
	openapierrors "github.com/go-openapi/errors"
	"github.com/go-openapi/runtime"
	"github.com/go-openapi/strfmt"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// BindAndValidateBody binds the request body to the given payload and runs its
// swagger-style Validate. Validation failures are returned as a public 400
// with per-field details.
func BindAndValidateBody(c echo.Context, v runtime.Validatable) error {
	binder, ok := c.Echo().Binder.(*echo.DefaultBinder)
	if !ok {
		return errors.New("echo binder is not a DefaultBinder")
	}
	if err := binder.BindBody(c, v); err != nil {
		return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "Failed to parse request body")
	}
	return validatePayload(c, v)
}

// ValidateAndReturn validates the response payload before writing it, guarding
// against returning responses that violate our own contract.
func ValidateAndReturn(c echo.Context, code int, v runtime.Validatable) error {
	if err := v.Validate(strfmt.Default); err != nil {
		LogFromEchoContext(c).Error().Err(err).Msg("Response payload validation failed")
		return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Response validation failed")
	}
	return c.JSON(code, v)
}

func validatePayload(c echo.Context, v runtime.Validatable) error {
	err := v.Validate(strfmt.Default)
	if err == nil {
		return nil
	}

	var details []*types.HTTPValidationErrorDetail
	switch e := err.(type) {
	case *openapierrors.CompositeError:
		for _, item := range e.Errors {
			if validation, ok := item.(*openapierrors.Validation); ok {
				details = append(details, types.NewHTTPValidationErrorDetail(validation.Name, validation.In, validation.Error()))
				continue
			}
			details = append(details, types.NewHTTPValidationErrorDetail("", "body", item.Error()))
		}
	case *openapierrors.Validation:
		details = append(details, types.NewHTTPValidationErrorDetail(e.Name, e.In, e.Error()))
	default:
		details = append(details, types.NewHTTPValidationErrorDetail("", "body", err.Error()))
	}

	LogFromEchoContext(c).Debug().Err(err).Msg("Request payload validation failed")
	return httperrors.NewHTTPValidationError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "Payload validation failed", details)
}

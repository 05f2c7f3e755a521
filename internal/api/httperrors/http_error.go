package httperrors

import (
	"fmt"
	"net/http"

	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/types"
	"github.com/go-openapi/swag"
	"github.com/pkg/errors"
)

// HTTPError wraps the public wire error with an optional internal cause.
// It is returned by handlers and rendered by the router's error handler.
type HTTPError struct {
	types.PublicHTTPError
	Internal error `json:"-"`
}

// NewHTTPError builds an HTTPError without internal cause.
func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{
		PublicHTTPError: types.PublicHTTPError{
			Code:  swag.Int64(int64(code)),
			Type:  swag.String(errorType),
			Title: swag.String(title),
		},
	}
}

// NewHTTPErrorWithDetail builds an HTTPError carrying a public detail string.
func NewHTTPErrorWithDetail(code int, errorType string, title string, detail string) *HTTPError {
	err := NewHTTPError(code, errorType, title)
	err.Detail = detail
	return err
}

func (e *HTTPError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("HTTPError %d (%s): %s: %v", *e.Code, *e.Type, *e.Title, e.Internal)
	}
	return fmt.Sprintf("HTTPError %d (%s): %s", *e.Code, *e.Type, *e.Title)
}

// HTTPValidationError carries per-field validation details.
type HTTPValidationError struct {
	types.PublicHTTPValidationError
	Internal error `json:"-"`
}

// NewHTTPValidationError builds a 400 validation error with field details.
func NewHTTPValidationError(code int, errorType string, title string, validationErrors []*types.HTTPValidationErrorDetail) *HTTPValidationError {
	return &HTTPValidationError{
		PublicHTTPValidationError: types.PublicHTTPValidationError{
			PublicHTTPError: types.PublicHTTPError{
				Code:  swag.Int64(int64(code)),
				Type:  swag.String(errorType),
				Title: swag.String(title),
			},
			ValidationErrors: validationErrors,
		},
	}
}

func (e *HTTPValidationError) Error() string {
	return fmt.Sprintf("HTTPValidationError %d (%s): %s", *e.Code, *e.Type, *e.Title)
}

// FromStepError maps the core's typed step errors onto the fixed
// error-code -> HTTP-status table:
//
//	INVALID_TSS_SESSION        -> 404 (ownership failures deliberately look like not-found)
//	INVALID_TSS_STAGE          -> 409 (replay or premature call)
//	INVALID_TSS_<PROTO>_RESULT -> 400
//	INVALID_TSS_PAYLOAD        -> 400
//	UNKNOWN_ERROR              -> 500
func FromStepError(err error) *HTTPError {
	var stepErr *tss.StepError
	if !errors.As(err, &stepErr) {
		return NewHTTPError(http.StatusInternalServerError, "UNKNOWN_ERROR", "An unknown error occurred")
	}

	switch stepErr.Kind {
	case tss.ErrKindInvalidSession:
		return httpError(http.StatusNotFound, stepErr)
	case tss.ErrKindInvalidStage:
		return httpError(http.StatusConflict, stepErr)
	case tss.ErrKindInvalidResult, tss.ErrKindPayload:
		return httpError(http.StatusBadRequest, stepErr)
	default:
		e := NewHTTPError(http.StatusInternalServerError, "UNKNOWN_ERROR", "An unknown error occurred")
		e.Internal = stepErr
		return e
	}
}

func httpError(code int, stepErr *tss.StepError) *HTTPError {
	e := NewHTTPError(code, stepErr.Code(), stepErr.Message)
	e.Internal = stepErr.Original
	return e
}

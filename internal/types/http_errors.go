package types

import (
	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
)

// PublicHTTPErrorTypeGeneric is the fallback public error type.
const PublicHTTPErrorTypeGeneric = "generic"

// PublicHTTPError is the wire representation of an error returned by the API.
type PublicHTTPError struct {
	// HTTP status code
	// Required: true
	Code *int64 `json:"status"`
	// Stable machine-readable error type (e.g. INVALID_TSS_SESSION)
	// Required: true
	Type *string `json:"type"`
	// Short human-readable summary
	// Required: true
	Title *string `json:"title"`
	// Optional free-form detail
	Detail string `json:"detail,omitempty"`
}

// Validate validates this public http error
func (m *PublicHTTPError) Validate(_ strfmt.Registry) error {
	var res []error
	if err := validate.Required("status", "body", m.Code); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("type", "body", m.Type); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("title", "body", m.Title); err != nil {
		res = append(res, err)
	}
	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// HTTPValidationErrorDetail describes a single invalid field.
type HTTPValidationErrorDetail struct {
	// Required: true
	Key *string `json:"key"`
	// Required: true
	In *string `json:"in"`
	// Required: true
	Error *string `json:"error"`
}

// PublicHTTPValidationError extends PublicHTTPError with per-field details.
type PublicHTTPValidationError struct {
	PublicHTTPError
	ValidationErrors []*HTTPValidationErrorDetail `json:"validationErrors"`
}

// Validate validates this public http validation error
func (m *PublicHTTPValidationError) Validate(formats strfmt.Registry) error {
	return m.PublicHTTPError.Validate(formats)
}

// NewHTTPValidationErrorDetail builds a detail entry for a body field.
func NewHTTPValidationErrorDetail(key string, in string, message string) *HTTPValidationErrorDetail {
	return &HTTPValidationErrorDetail{
		Key:   swag.String(key),
		In:    swag.String(in),
		Error: swag.String(message),
	}
}

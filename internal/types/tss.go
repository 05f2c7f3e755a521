package types

import (
	"encoding/json"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"
)

// TssStepPayload is the request body shared by all session-scoped step routes
// (TRIPLES/PRESIGN/SIGN). SessionID is required for every step but the first
// TRIPLES step; the handler enforces that per route.
type TssStepPayload struct {
	// Wallet identity declared by the caller
	// Required: true
	WalletID *string `json:"wallet_id"`
	// Tenant attribution, only consumed by the session-creating step
	CustomerID string `json:"customer_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	// Opaque protocol message blob, never interpreted by the transport layer
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate validates this tss step payload
func (m *TssStepPayload) Validate(_ strfmt.Registry) error {
	if m.WalletID == nil || *m.WalletID == "" {
		return errors.CompositeValidationError(errors.Required("wallet_id", "body", nil))
	}
	return nil
}

// KeygenStepPayload is the request body for KEYGEN step routes. Keygen is not
// bound to a session; the caller supplies its own identifier.
type KeygenStepPayload struct {
	// Required: true
	KeygenID *string         `json:"keygen_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Validate validates this keygen step payload
func (m *KeygenStepPayload) Validate(_ strfmt.Registry) error {
	if m.KeygenID == nil || *m.KeygenID == "" {
		return errors.CompositeValidationError(errors.Required("keygen_id", "body", nil))
	}
	return nil
}

// AbortSessionPayload is the request body for the session abort route.
type AbortSessionPayload struct {
	// Required: true
	WalletID *string `json:"wallet_id"`
}

// Validate validates this abort session payload
func (m *AbortSessionPayload) Validate(_ strfmt.Registry) error {
	if m.WalletID == nil || *m.WalletID == "" {
		return errors.CompositeValidationError(errors.Required("wallet_id", "body", nil))
	}
	return nil
}

// TssStepResponse is returned by every step route.
type TssStepResponse struct {
	// Required: true
	SessionID *string `json:"session_id"`
	// Required: true
	StageType *string `json:"stage_type"`
	// Required: true
	StageStatus *string `json:"stage_status"`
	// Opaque outgoing protocol message blob
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate validates this tss step response
func (m *TssStepResponse) Validate(_ strfmt.Registry) error {
	var res []error
	if err := validate.Required("session_id", "body", m.SessionID); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("stage_type", "body", m.StageType); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("stage_status", "body", m.StageStatus); err != nil {
		res = append(res, err)
	}
	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// TssStageSummary is a read-only stage status entry.
type TssStageSummary struct {
	// Required: true
	StageType *string `json:"stage_type"`
	// Required: true
	StageStatus *string `json:"stage_status"`
}

// GetSessionResponse is the read-only session view for resuming clients.
type GetSessionResponse struct {
	// Required: true
	SessionID *string `json:"session_id"`
	// Required: true
	WalletID *string `json:"wallet_id"`
	// Required: true
	State      *string            `json:"state"`
	CustomerID string             `json:"customer_id,omitempty"`
	Stages     []*TssStageSummary `json:"stages"`
}

// Validate validates this get session response
func (m *GetSessionResponse) Validate(_ strfmt.Registry) error {
	var res []error
	if err := validate.Required("session_id", "body", m.SessionID); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("wallet_id", "body", m.WalletID); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("state", "body", m.State); err != nil {
		res = append(res, err)
	}
	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

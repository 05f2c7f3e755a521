package protocol

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/sequencer"
	"github.com/pkg/errors"
)

type signStageData struct {
	// MessageHash / PublicKey 第 1 步捕获，终态校验用
	MessageHash string          `json:"message_hash"`
	PublicKey   string          `json:"public_key"`
	Engine      json.RawMessage `json:"engine,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// SignAdapter 签名协议适配器。第 1 步登记待签摘要与钱包公钥，
// 第 2 步提交最终签名并做 ECDSA 验签。
type SignAdapter struct {
	engine tss.Engine
}

func NewSignAdapter(engine tss.Engine) *SignAdapter {
	return &SignAdapter{engine: engine}
}

func (a *SignAdapter) Protocol() sequencer.Protocol {
	return SignProtocol
}

func (a *SignAdapter) Fold(ctx context.Context, step int, data json.RawMessage, incoming json.RawMessage) (json.RawMessage, json.RawMessage, error) {
	var state signStageData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, nil, errors.Wrap(err, "failed to decode sign stage data")
		}
	}

	if step == 1 {
		var init SignInitMessage
		if err := decodeMessage(SignProtocol.StageType, incoming, &init); err != nil {
			return nil, nil, err
		}
		hash, err := hex.DecodeString(init.MessageHash)
		if err != nil || len(hash) != 32 {
			return nil, nil, tss.NewPayloadError(SignProtocol.StageType,
				errors.New("message_hash must be a 32-byte hex digest"))
		}
		if _, err := parsePoint(init.PublicKey); err != nil {
			return nil, nil, tss.NewPayloadError(SignProtocol.StageType, err)
		}
		state.MessageHash = init.MessageHash
		state.PublicKey = init.PublicKey
	} else {
		state.Result = incoming
	}

	out, err := engineRound(ctx, a.engine, SignProtocol.StageType, step, state.Engine, incoming)
	if err != nil {
		return nil, nil, err
	}
	state.Engine = out.State

	next, err := json.Marshal(&state)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to encode sign stage data")
	}
	return out.Outgoing, next, nil
}

// ValidateTerminal 最终签名 (r, s) 必须能用第 1 步登记的公钥
// 对消息摘要通过 ECDSA 验签。
func (a *SignAdapter) ValidateTerminal(_ context.Context, data json.RawMessage, incoming json.RawMessage) error {
	var state signStageData
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.Wrap(err, "failed to decode sign stage data")
	}

	var result SignResultMessage
	if err := json.Unmarshal(incoming, &result); err != nil {
		return tss.NewInvalidResultError(SignProtocol.StageType, "malformed sign result", err)
	}

	r, rOK := new(big.Int).SetString(result.R, 16)
	s, sOK := new(big.Int).SetString(result.S, 16)
	if !rOK || !sOK {
		return tss.NewInvalidResultError(SignProtocol.StageType, "signature components are not valid hex", nil)
	}

	point, err := parsePoint(state.PublicKey)
	if err != nil {
		return tss.NewInvalidResultError(SignProtocol.StageType, "stored wallet public key is invalid", err)
	}
	hash, err := hex.DecodeString(state.MessageHash)
	if err != nil {
		return tss.NewInvalidResultError(SignProtocol.StageType, "stored message hash is invalid", err)
	}

	if !ecdsa.Verify(point.ToECDSA(), hash, r, s) {
		return tss.NewInvalidResultError(SignProtocol.StageType,
			fmt.Sprintf("signature does not verify against message hash %s", state.MessageHash), nil)
	}
	return nil
}

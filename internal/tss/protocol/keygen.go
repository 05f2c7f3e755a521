package protocol

import (
	"context"
	"encoding/json"

	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/sequencer"
	"github.com/pkg/errors"
)

type keygenStageData struct {
	Engine json.RawMessage   `json:"engine,omitempty"`
	Inbox  []json.RawMessage `json:"inbox,omitempty"`
	Result json.RawMessage   `json:"result,omitempty"`
}

// KeygenAdapter 密钥生成协议适配器。唯一不绑定 TssSession 的协议：
// keygen 先于钱包存在，阶段以调用方提供的标识符为键。
type KeygenAdapter struct {
	engine tss.Engine
}

func NewKeygenAdapter(engine tss.Engine) *KeygenAdapter {
	return &KeygenAdapter{engine: engine}
}

func (a *KeygenAdapter) Protocol() sequencer.Protocol {
	return KeygenProtocol
}

func (a *KeygenAdapter) Fold(ctx context.Context, step int, data json.RawMessage, incoming json.RawMessage) (json.RawMessage, json.RawMessage, error) {
	var state keygenStageData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, nil, errors.Wrap(err, "failed to decode keygen stage data")
		}
	}

	switch {
	case step == 1:
		var init KeygenInitMessage
		if err := decodeMessage(KeygenProtocol.StageType, incoming, &init); err != nil {
			return nil, nil, err
		}
	case step <= 4:
		var wait WaitMessage
		if err := decodeMessage(KeygenProtocol.StageType, incoming, &wait); err != nil {
			return nil, nil, err
		}
		state.Inbox = append(state.Inbox, wait.Batch...)
	default:
		state.Result = incoming
	}

	out, err := engineRound(ctx, a.engine, KeygenProtocol.StageType, step, state.Engine, incoming)
	if err != nil {
		return nil, nil, err
	}
	state.Engine = out.State

	next, err := json.Marshal(&state)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to encode keygen stage data")
	}
	return out.Outgoing, next, nil
}

// ValidateTerminal 生成的公钥必须是合法曲线点
func (a *KeygenAdapter) ValidateTerminal(_ context.Context, _ json.RawMessage, incoming json.RawMessage) error {
	var result KeygenResultMessage
	if err := json.Unmarshal(incoming, &result); err != nil {
		return tss.NewInvalidResultError(KeygenProtocol.StageType, "malformed keygen result", err)
	}
	if _, err := parsePoint(result.PublicKey); err != nil {
		return tss.NewInvalidResultError(KeygenProtocol.StageType, "generated public key is invalid", err)
	}
	return nil
}

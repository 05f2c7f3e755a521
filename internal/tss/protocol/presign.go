package protocol

import (
	"context"
	"encoding/json"

	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/sequencer"
	"github.com/pkg/errors"
)

type presignStageData struct {
	Engine json.RawMessage   `json:"engine,omitempty"`
	Inbox  []json.RawMessage `json:"inbox,omitempty"`
	Result json.RawMessage   `json:"result,omitempty"`
}

// PresignAdapter 预签名协议适配器。在既有会话（先行 TRIPLES 运行创建）
// 上开启阶段；第 3 步提交预签名值并校验。
type PresignAdapter struct {
	engine tss.Engine
}

func NewPresignAdapter(engine tss.Engine) *PresignAdapter {
	return &PresignAdapter{engine: engine}
}

func (a *PresignAdapter) Protocol() sequencer.Protocol {
	return PresignProtocol
}

func (a *PresignAdapter) Fold(ctx context.Context, step int, data json.RawMessage, incoming json.RawMessage) (json.RawMessage, json.RawMessage, error) {
	var state presignStageData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, nil, errors.Wrap(err, "failed to decode presign stage data")
		}
	}

	switch step {
	case 1:
		var init PresignInitMessage
		if err := decodeMessage(PresignProtocol.StageType, incoming, &init); err != nil {
			return nil, nil, err
		}
	case 2:
		var wait WaitMessage
		if err := decodeMessage(PresignProtocol.StageType, incoming, &wait); err != nil {
			return nil, nil, err
		}
		state.Inbox = append(state.Inbox, wait.Batch...)
	default:
		state.Result = incoming
	}

	out, err := engineRound(ctx, a.engine, PresignProtocol.StageType, step, state.Engine, incoming)
	if err != nil {
		return nil, nil, err
	}
	state.Engine = out.State

	next, err := json.Marshal(&state)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to encode presign stage data")
	}
	return out.Outgoing, next, nil
}

// ValidateTerminal 预签名的 big-R 必须是合法曲线点
func (a *PresignAdapter) ValidateTerminal(_ context.Context, _ json.RawMessage, incoming json.RawMessage) error {
	var result PresignResultMessage
	if err := json.Unmarshal(incoming, &result); err != nil {
		return tss.NewInvalidResultError(PresignProtocol.StageType, "malformed presign result", err)
	}
	if _, err := parsePoint(result.BigR); err != nil {
		return tss.NewInvalidResultError(PresignProtocol.StageType, "presignature point is invalid", err)
	}
	return nil
}

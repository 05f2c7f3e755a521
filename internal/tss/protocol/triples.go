package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/sequencer"
	"github.com/pkg/errors"
)

// triplesStageData TRIPLES 阶段的持久化状态
type triplesStageData struct {
	// Count 第 1 步声明的 triple 数量，终态校验以此为准
	Count int `json:"count"`
	// Engine 引擎私有状态，原样透传
	Engine json.RawMessage `json:"engine,omitempty"`
	// Inbox 缓冲的对端 wait 消息批次
	Inbox []json.RawMessage `json:"inbox,omitempty"`
	// Result 第 11 步提交的完成产物
	Result json.RawMessage `json:"result,omitempty"`
}

// TriplesAdapter triple 批量生成协议适配器。
// 第 1 步创建会话；第 2–10 步转发 wait 消息批次；第 11 步提交完成的
// 公开 triple 值并触发终态校验。
type TriplesAdapter struct {
	engine tss.Engine
}

func NewTriplesAdapter(engine tss.Engine) *TriplesAdapter {
	return &TriplesAdapter{engine: engine}
}

func (a *TriplesAdapter) Protocol() sequencer.Protocol {
	return TriplesProtocol
}

func (a *TriplesAdapter) Fold(ctx context.Context, step int, data json.RawMessage, incoming json.RawMessage) (json.RawMessage, json.RawMessage, error) {
	var state triplesStageData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, nil, errors.Wrap(err, "failed to decode triples stage data")
		}
	}

	switch {
	case step == 1:
		var init TriplesInitMessage
		if err := decodeMessage(TriplesProtocol.StageType, incoming, &init); err != nil {
			return nil, nil, err
		}
		if init.Count <= 0 {
			return nil, nil, tss.NewPayloadError(TriplesProtocol.StageType,
				fmt.Errorf("triple count must be positive, got %d", init.Count))
		}
		state.Count = init.Count

	case step <= 10:
		var wait WaitMessage
		if err := decodeMessage(TriplesProtocol.StageType, incoming, &wait); err != nil {
			return nil, nil, err
		}
		state.Inbox = append(state.Inbox, wait.Batch...)

	default:
		// 终态产物先留在 stage_data，校验通过后随推进一起落库
		state.Result = incoming
	}

	out, err := engineRound(ctx, a.engine, TriplesProtocol.StageType, step, state.Engine, incoming)
	if err != nil {
		return nil, nil, err
	}
	state.Engine = out.State

	next, err := json.Marshal(&state)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to encode triples stage data")
	}
	return out.Outgoing, next, nil
}

// ValidateTerminal 校验完成的 triple 批次：两批数量必须等于第 1 步声明的
// 数量，且每个 triple 的 A/B/C 公开点都是合法的 secp256k1 曲线点。
func (a *TriplesAdapter) ValidateTerminal(_ context.Context, data json.RawMessage, incoming json.RawMessage) error {
	var state triplesStageData
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.Wrap(err, "failed to decode triples stage data")
	}

	var result TriplesResultMessage
	if err := json.Unmarshal(incoming, &result); err != nil {
		return tss.NewInvalidResultError(TriplesProtocol.StageType, "malformed triples result", err)
	}

	if len(result.Triples0) != state.Count || len(result.Triples1) != state.Count {
		return tss.NewInvalidResultError(TriplesProtocol.StageType,
			fmt.Sprintf("expected %d triples per batch, got %d and %d",
				state.Count, len(result.Triples0), len(result.Triples1)), nil)
	}

	for _, batch := range [][]TriplePub{result.Triples0, result.Triples1} {
		for i, triple := range batch {
			for _, point := range []string{triple.BigA, triple.BigB, triple.BigC} {
				if _, err := parsePoint(point); err != nil {
					return tss.NewInvalidResultError(TriplesProtocol.StageType,
						fmt.Sprintf("triple %d has an invalid public point", i), err)
				}
			}
		}
	}
	return nil
}

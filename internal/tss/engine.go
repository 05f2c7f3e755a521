package tss

import (
	"context"
	"encoding/json"

	"github.com/chainapsis/oko-sub000/internal/tss/storage"
)

// Engine 不透明密码学引擎边界。核心把消息 blob 原样喂给引擎并取回输出，
// 从不解释其内容；真正的 MPC 计算发生在引擎内部（或调用方一侧）。
// Round 必须是纯的非阻塞变换，核心不会对它做超时或重试。
type Engine interface {
	Round(ctx context.Context, in RoundInput) (*RoundOutput, error)
}

// RoundInput 单步引擎输入
type RoundInput struct {
	StageType storage.StageType
	Step      int
	// State 引擎在 stage_data 中的私有状态切片，上一轮 RoundOutput.State 原样传回
	State json.RawMessage
	// Incoming 客户端本轮提交的不透明消息 blob
	Incoming json.RawMessage
}

// RoundOutput 单步引擎输出
type RoundOutput struct {
	// Outgoing 返回给客户端的不透明消息 blob
	Outgoing json.RawMessage
	// State 引擎更新后的私有状态，由核心持久化进 stage_data
	State json.RawMessage
}

// PassthroughEngine 透传引擎：把客户端消息原样返回，状态不变。
// 作为外部 MPC 引擎的接入占位实现，也是测试的默认替身。
type PassthroughEngine struct{}

func NewPassthroughEngine() *PassthroughEngine {
	return &PassthroughEngine{}
}

func (e *PassthroughEngine) Round(_ context.Context, in RoundInput) (*RoundOutput, error) {
	return &RoundOutput{Outgoing: in.Incoming, State: in.State}, nil
}

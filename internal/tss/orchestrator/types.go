package orchestrator

import (
	"github.com/chainapsis/oko-sub000/internal/tss/sequencer"
	"github.com/chainapsis/oko-sub000/internal/tss/storage"
)

// StepRequest 步进调用入参，见 sequencer.StepRequest
type StepRequest = sequencer.StepRequest

// StepResult 步进调用结果
type StepResult = sequencer.StepResult

// StageSummary 单个阶段的只读摘要
type StageSummary struct {
	StageType   storage.StageType
	StageStatus storage.StageStatus
}

// SessionView 会话及其全部阶段的只读视图，供客户端断线重连后恢复
type SessionView struct {
	SessionID  string
	WalletID   string
	CustomerID string
	State      storage.SessionState
	Stages     []StageSummary
}

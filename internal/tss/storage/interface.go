package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// SessionState 会话状态
type SessionState string

const (
	SessionStateInProgress SessionState = "IN_PROGRESS"
	SessionStateCompleted  SessionState = "COMPLETED"
	SessionStateAborted    SessionState = "ABORTED"
)

// StageType 协议阶段类型
type StageType string

const (
	StageTypeKeygen  StageType = "KEYGEN"
	StageTypeTriples StageType = "TRIPLES"
	StageTypePresign StageType = "PRESIGN"
	StageTypeSign    StageType = "SIGN"
)

// StageStatus 阶段状态（按协议定义的有序阶梯取值）
type StageStatus string

const (
	StageStatusStep1     StageStatus = "STEP_1"
	StageStatusStep2     StageStatus = "STEP_2"
	StageStatusStep3     StageStatus = "STEP_3"
	StageStatusStep4     StageStatus = "STEP_4"
	StageStatusStep5     StageStatus = "STEP_5"
	StageStatusStep6     StageStatus = "STEP_6"
	StageStatusStep7     StageStatus = "STEP_7"
	StageStatusStep8     StageStatus = "STEP_8"
	StageStatusStep9     StageStatus = "STEP_9"
	StageStatusStep10    StageStatus = "STEP_10"
	StageStatusCompleted StageStatus = "COMPLETED"
)

// TssSession 签名会话。wallet_id 与 customer_id 创建后不可变更。
type TssSession struct {
	SessionID  string
	WalletID   string
	CustomerID string
	State      SessionState
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TssStage 会话内单个协议阶段的持久化状态。
// StageData 对存储层完全不透明，只有对应的协议适配器会解释它。
type TssStage struct {
	SessionID   string
	StageType   StageType
	StageStatus StageStatus
	StageData   json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists 主键冲突（会话或阶段已存在）
	ErrAlreadyExists = errors.New("record already exists")
	// ErrStatusConflict 条件更新失败：stage_status 不等于 expected_status
	ErrStatusConflict = errors.New("stage status conflict")
	// ErrInvalidSessionState 会话状态不允许该操作（例如 abort 一个已完成的会话）
	ErrInvalidSessionState = errors.New("invalid session state")
)

// SessionStore 会话注册表
type SessionStore interface {
	CreateSession(ctx context.Context, session *TssSession) error
	GetSession(ctx context.Context, sessionID string) (*TssSession, error)

	// MarkSessionAborted 将会话置为 ABORTED。
	// 对已 ABORTED 的会话幂等成功；对 COMPLETED 的会话返回 ErrInvalidSessionState。
	MarkSessionAborted(ctx context.Context, sessionID string) error
}

// StageStore 阶段存储
type StageStore interface {
	CreateStage(ctx context.Context, stage *TssStage) error
	GetStage(ctx context.Context, sessionID string, stageType StageType) (*TssStage, error)
	ListStages(ctx context.Context, sessionID string) ([]*TssStage, error)

	// AdvanceStage 原子推进阶段状态：仅当当前 stage_status == expected 时写入
	// next/data，否则返回 ErrStatusConflict。这是整个核心的并发正确性保证，
	// 必须由存储层的单条条件更新实现，不能依赖进程内锁。
	AdvanceStage(ctx context.Context, sessionID string, stageType StageType, expected StageStatus, next StageStatus, data json.RawMessage) error
}

// Store 聚合接口，由 PostgreSQL 实现统一提供
type Store interface {
	SessionStore
	StageStore
}

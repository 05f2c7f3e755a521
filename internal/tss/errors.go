package tss

import (
	"fmt"
	"strings"

	"github.com/chainapsis/oko-sub000/internal/tss/storage"
	"github.com/pkg/errors"
)

// StepError 核心边界上的类型化错误。所有失败都以它返回给调用方，
// 核心内部不重试，不抛出未分类错误。
type StepError struct {
	Kind      ErrorKind
	StageType storage.StageType
	Message   string
	Original  error
}

type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	// ErrKindInvalidSession 会话不存在 / wallet 不匹配 / 会话状态不允许该调用。
	// 故意不区分"不存在"与"归属错误"，避免跨租户泄露会话存在性。
	ErrKindInvalidSession
	// ErrKindInvalidStage 阶段不存在，或 stage_status 不等于该步骤期望的前置状态
	ErrKindInvalidStage
	// ErrKindInvalidResult 终态校验失败，阶段不会推进到 COMPLETED
	ErrKindInvalidResult
	// ErrKindPayload 消息体无法按该步骤的格式解析
	ErrKindPayload
)

func (e *StepError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code(), e.Message))
	if e.Original != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Original))
	}
	return sb.String()
}

func (e *StepError) Unwrap() error {
	return e.Original
}

// Code 稳定的公开错误码，HTTP 层据此映射状态码
func (e *StepError) Code() string {
	switch e.Kind {
	case ErrKindInvalidSession:
		return "INVALID_TSS_SESSION"
	case ErrKindInvalidStage:
		return "INVALID_TSS_STAGE"
	case ErrKindInvalidResult:
		return fmt.Sprintf("INVALID_TSS_%s_RESULT", e.StageType)
	case ErrKindPayload:
		return "INVALID_TSS_PAYLOAD"
	default:
		return "UNKNOWN_ERROR"
	}
}

// NewInvalidSessionError creates a session ownership/lifecycle error
func NewInvalidSessionError(stageType storage.StageType, msg string) *StepError {
	return &StepError{Kind: ErrKindInvalidSession, StageType: stageType, Message: msg}
}

// NewInvalidStageError creates a stage ordering error
func NewInvalidStageError(stageType storage.StageType, msg string) *StepError {
	return &StepError{Kind: ErrKindInvalidStage, StageType: stageType, Message: msg}
}

// NewInvalidResultError creates a terminal validation error
func NewInvalidResultError(stageType storage.StageType, msg string, original error) *StepError {
	return &StepError{Kind: ErrKindInvalidResult, StageType: stageType, Message: msg, Original: original}
}

// NewPayloadError creates a malformed payload error
func NewPayloadError(stageType storage.StageType, original error) *StepError {
	return &StepError{Kind: ErrKindPayload, StageType: stageType, Message: "malformed step payload", Original: original}
}

// NewUnknownError wraps a store/infrastructure failure
func NewUnknownError(stageType storage.StageType, original error) *StepError {
	return &StepError{Kind: ErrKindUnknown, StageType: stageType, Message: "internal error", Original: original}
}

// KindOf 返回错误的分类；非 StepError 一律视为 UNKNOWN
func KindOf(err error) ErrorKind {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	return ErrKindUnknown
}

package sequencer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/storage"
	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Protocol 一个 MPC 协议阶段的有序状态阶梯。
// Statuses 不含 COMPLETED；客户端可见步数 = len(Statuses) + 1：
// 第 1 步创建阶段并写入 Statuses[0]，最后一步推进到 COMPLETED。
type Protocol struct {
	StageType storage.StageType
	Statuses  []storage.StageStatus

	// SessionScoped 为 false 时（KEYGEN）阶段不绑定 TssSession，
	// 以调用方提供的裸标识符作为键，跳过归属检查
	SessionScoped bool
	// CreatesSession 为 true 时（TRIPLES）第 1 步同时创建会话；
	// 否则第 1 步在既有会话上创建阶段
	CreatesSession bool
}

// StepCount 客户端可见步数
func (p Protocol) StepCount() int {
	return len(p.Statuses) + 1
}

// expectedStatus 第 step 步要求的前置状态（step >= 2）
func (p Protocol) expectedStatus(step int) storage.StageStatus {
	return p.Statuses[step-2]
}

// nextStatus 第 step 步成功后的新状态
func (p Protocol) nextStatus(step int) storage.StageStatus {
	if step == p.StepCount() {
		return storage.StageStatusCompleted
	}
	return p.Statuses[step-1]
}

// Adapter 协议适配器：把不透明消息 blob 折叠进 stage_data，
// 并在最后一步校验协议特定的终态产物。
type Adapter interface {
	Protocol() Protocol

	// Fold 消费本步的不透明消息与当前 stage_data，产出响应 blob 与新的 stage_data。
	// 第 1 步时 data 为空。
	Fold(ctx context.Context, step int, data json.RawMessage, incoming json.RawMessage) (outgoing json.RawMessage, next json.RawMessage, err error)

	// ValidateTerminal 仅在最后一步被调用；失败则阶段不会推进到 COMPLETED
	ValidateTerminal(ctx context.Context, data json.RawMessage, incoming json.RawMessage) error
}

// StepRequest 单步调用入参
type StepRequest struct {
	Step int
	// SessionID 步骤 >= 2 必填；对非会话绑定协议（KEYGEN）承载调用方提供的裸标识符
	SessionID string
	// WalletID 调用方声明的钱包身份，由上层认证解析后传入，核心直接信任
	WalletID string
	// CustomerID 仅第 1 步（创建会话时）使用
	CustomerID string
	// Payload 本步的不透明消息 blob
	Payload json.RawMessage
}

// StepResult 单步调用结果
type StepResult struct {
	SessionID   string
	StageType   storage.StageType
	StageStatus storage.StageStatus
	Outgoing    json.RawMessage
}

var (
	metricsOnce      sync.Once
	stepDurationHist *prometheus.HistogramVec
)

// Sequencer 通用有序步进机。四个协议适配器共用同一份
// 归属检查 / 顺序检查 / 原子推进逻辑。
type Sequencer struct {
	sessions storage.SessionStore
	stages   storage.StageStore
	clock    time2.Clock
}

// New 创建步进机
func New(sessions storage.SessionStore, stages storage.StageStore, clock time2.Clock) *Sequencer {
	ensureStepMetrics()
	return &Sequencer{sessions: sessions, stages: stages, clock: clock}
}

// Run 执行一次步进调用。
// 处理顺序：身份/归属检查 → 顺序检查 → Fold → 终态校验（末步）→ 原子持久化。
// 会话的 state 始终保持不变（仍为 IN_PROGRESS）。
func (s *Sequencer) Run(ctx context.Context, adapter Adapter, req StepRequest) (*StepResult, error) {
	p := adapter.Protocol()
	if req.Step < 1 || req.Step > p.StepCount() {
		return nil, tss.NewInvalidStageError(p.StageType,
			fmt.Sprintf("step %d out of range for %s", req.Step, p.StageType))
	}

	started := s.clock.Now()
	defer func() {
		stepDurationHist.WithLabelValues(string(p.StageType), fmt.Sprintf("%d", req.Step)).
			Observe(s.clock.Now().Sub(started).Seconds())
	}()

	if req.Step == 1 {
		return s.runFirstStep(ctx, adapter, p, req)
	}
	return s.runStep(ctx, adapter, p, req)
}

func (s *Sequencer) runFirstStep(ctx context.Context, adapter Adapter, p Protocol, req StepRequest) (*StepResult, error) {
	sessionID := req.SessionID

	switch {
	case p.CreatesSession:
		sessionID = uuid.New().String()
		now := s.clock.Now()
		session := &storage.TssSession{
			SessionID:  sessionID,
			WalletID:   req.WalletID,
			CustomerID: req.CustomerID,
			State:      storage.SessionStateInProgress,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.sessions.CreateSession(ctx, session); err != nil {
			return nil, tss.NewUnknownError(p.StageType, errors.Wrap(err, "failed to create session"))
		}
	case p.SessionScoped:
		// 在既有会话上开启新阶段（PRESIGN/SIGN）
		if _, err := s.loadOwnedSession(ctx, p, req); err != nil {
			return nil, err
		}
	default:
		// 非会话绑定（KEYGEN）：裸标识符由调用方提供
		if sessionID == "" {
			return nil, tss.NewInvalidStageError(p.StageType, "missing keygen identifier")
		}
	}

	outgoing, data, err := adapter.Fold(ctx, req.Step, nil, req.Payload)
	if err != nil {
		return nil, s.foldError(p, err)
	}

	now := s.clock.Now()
	stage := &storage.TssStage{
		SessionID:   sessionID,
		StageType:   p.StageType,
		StageStatus: p.Statuses[0],
		StageData:   data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.stages.CreateStage(ctx, stage); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// 重复的第 1 步调用：阶段已存在即视为已推进
			return nil, tss.NewInvalidStageError(p.StageType, "stage already exists")
		}
		return nil, tss.NewUnknownError(p.StageType, errors.Wrap(err, "failed to create stage"))
	}

	log.Ctx(ctx).Debug().
		Str("session_id", sessionID).
		Str("stage_type", string(p.StageType)).
		Str("stage_status", string(stage.StageStatus)).
		Msg("Stage created")

	return &StepResult{
		SessionID:   sessionID,
		StageType:   p.StageType,
		StageStatus: stage.StageStatus,
		Outgoing:    outgoing,
	}, nil
}

func (s *Sequencer) runStep(ctx context.Context, adapter Adapter, p Protocol, req StepRequest) (*StepResult, error) {
	if p.SessionScoped {
		if _, err := s.loadOwnedSession(ctx, p, req); err != nil {
			return nil, err
		}
	}

	stage, err := s.stages.GetStage(ctx, req.SessionID, p.StageType)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, tss.NewInvalidStageError(p.StageType, "stage not found")
		}
		return nil, tss.NewUnknownError(p.StageType, errors.Wrap(err, "failed to load stage"))
	}

	expected := p.expectedStatus(req.Step)
	if stage.StageStatus != expected {
		// 覆盖重放（已推进过此步）与过早调用（尚未到达此步）两种情况
		return nil, tss.NewInvalidStageError(p.StageType,
			fmt.Sprintf("stage status is %s, step %d expects %s", stage.StageStatus, req.Step, expected))
	}

	outgoing, data, err := adapter.Fold(ctx, req.Step, stage.StageData, req.Payload)
	if err != nil {
		return nil, s.foldError(p, err)
	}

	next := p.nextStatus(req.Step)
	if next == storage.StageStatusCompleted {
		if err := adapter.ValidateTerminal(ctx, data, req.Payload); err != nil {
			return nil, s.foldError(p, err)
		}
	}

	if err := s.stages.AdvanceStage(ctx, req.SessionID, p.StageType, expected, next, data); err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			// 并发竞争的败者：另一请求已完成这次推进
			return nil, tss.NewInvalidStageError(p.StageType, "stage already advanced")
		}
		return nil, tss.NewUnknownError(p.StageType, errors.Wrap(err, "failed to advance stage"))
	}

	log.Ctx(ctx).Debug().
		Str("session_id", req.SessionID).
		Str("stage_type", string(p.StageType)).
		Str("stage_status", string(next)).
		Int("step", req.Step).
		Msg("Stage advanced")

	return &StepResult{
		SessionID:   req.SessionID,
		StageType:   p.StageType,
		StageStatus: next,
		Outgoing:    outgoing,
	}, nil
}

// loadOwnedSession 加载会话并校验归属与生命周期。
// 不存在与 wallet 不匹配返回同一错误，避免泄露会话存在性。
func (s *Sequencer) loadOwnedSession(ctx context.Context, p Protocol, req StepRequest) (*storage.TssSession, error) {
	session, err := s.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, tss.NewInvalidSessionError(p.StageType, "session not found or not owned by caller")
		}
		return nil, tss.NewUnknownError(p.StageType, errors.Wrap(err, "failed to load session"))
	}
	if session.WalletID != req.WalletID {
		return nil, tss.NewInvalidSessionError(p.StageType, "session not found or not owned by caller")
	}
	if session.State != storage.SessionStateInProgress {
		return nil, tss.NewInvalidSessionError(p.StageType,
			fmt.Sprintf("session state is %s", session.State))
	}
	return session, nil
}

func (s *Sequencer) foldError(p Protocol, err error) error {
	var stepErr *tss.StepError
	if errors.As(err, &stepErr) {
		return err
	}
	return tss.NewUnknownError(p.StageType, err)
}

func ensureStepMetrics() {
	metricsOnce.Do(func() {
		stepDurationHist = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tss",
			Subsystem: "sequencer",
			Name:      "step_duration_seconds",
			Help:      "Latency of protocol step calls by stage type and step number",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"stage_type", "step"})
	})
}

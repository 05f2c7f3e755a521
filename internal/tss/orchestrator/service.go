package orchestrator

import (
	"context"

	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/protocol"
	"github.com/chainapsis/oko-sub000/internal/tss/sequencer"
	"github.com/chainapsis/oko-sub000/internal/tss/storage"
	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Service 会话编排器：对外暴露的每协议步进入口，
// 组合步进机、协议适配器与会话注册表。
type Service struct {
	sessions storage.SessionStore
	stages   storage.StageStore
	seq      *sequencer.Sequencer

	triples *protocol.TriplesAdapter
	presign *protocol.PresignAdapter
	sign    *protocol.SignAdapter
	keygen  *protocol.KeygenAdapter
}

// NewService 创建编排器
func NewService(sessions storage.SessionStore, stages storage.StageStore, clock time2.Clock, engine tss.Engine) *Service {
	return &Service{
		sessions: sessions,
		stages:   stages,
		seq:      sequencer.New(sessions, stages, clock),
		triples:  protocol.NewTriplesAdapter(engine),
		presign:  protocol.NewPresignAdapter(engine),
		sign:     protocol.NewSignAdapter(engine),
		keygen:   protocol.NewKeygenAdapter(engine),
	}
}

// TriplesStep 执行 TRIPLES 第 req.Step 步（1–11）。第 1 步创建会话。
func (s *Service) TriplesStep(ctx context.Context, req StepRequest) (*StepResult, error) {
	return s.seq.Run(ctx, s.triples, req)
}

// PresignStep 执行 PRESIGN 第 req.Step 步（1–3），要求既有会话
func (s *Service) PresignStep(ctx context.Context, req StepRequest) (*StepResult, error) {
	return s.seq.Run(ctx, s.presign, req)
}

// SignStep 执行 SIGN 第 req.Step 步（1–2），要求既有会话
func (s *Service) SignStep(ctx context.Context, req StepRequest) (*StepResult, error) {
	return s.seq.Run(ctx, s.sign, req)
}

// KeygenStep 执行 KEYGEN 第 req.Step 步（1–5）。
// 不绑定会话：req.SessionID 承载调用方提供的 keygen 标识符。
func (s *Service) KeygenStep(ctx context.Context, req StepRequest) (*StepResult, error) {
	return s.seq.Run(ctx, s.keygen, req)
}

// AbortSession 用户主动中止会话。归属检查与步进调用一致；
// 对已 ABORTED 的会话幂等成功，对 COMPLETED 的会话拒绝。
// 不回滚任何已完成的阶段。
func (s *Service) AbortSession(ctx context.Context, sessionID, walletID string) error {
	if _, err := s.loadOwnedSession(ctx, sessionID, walletID); err != nil {
		return err
	}

	if err := s.sessions.MarkSessionAborted(ctx, sessionID); err != nil {
		if errors.Is(err, storage.ErrInvalidSessionState) {
			return tss.NewInvalidSessionError("", "session is already completed")
		}
		if errors.Is(err, storage.ErrNotFound) {
			return tss.NewInvalidSessionError("", "session not found or not owned by caller")
		}
		return tss.NewUnknownError("", errors.Wrap(err, "failed to abort session"))
	}

	log.Ctx(ctx).Info().Str("session_id", sessionID).Msg("Session aborted")
	return nil
}

// GetSession 返回会话与其全部阶段状态的只读视图
func (s *Service) GetSession(ctx context.Context, sessionID, walletID string) (*SessionView, error) {
	session, err := s.loadOwnedSession(ctx, sessionID, walletID)
	if err != nil {
		return nil, err
	}

	stages, err := s.stages.ListStages(ctx, sessionID)
	if err != nil {
		return nil, tss.NewUnknownError("", errors.Wrap(err, "failed to list stages"))
	}

	view := &SessionView{
		SessionID:  session.SessionID,
		WalletID:   session.WalletID,
		CustomerID: session.CustomerID,
		State:      session.State,
	}
	for _, stage := range stages {
		view.Stages = append(view.Stages, StageSummary{
			StageType:   stage.StageType,
			StageStatus: stage.StageStatus,
		})
	}
	return view, nil
}

func (s *Service) loadOwnedSession(ctx context.Context, sessionID, walletID string) (*storage.TssSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, tss.NewInvalidSessionError("", "session not found or not owned by caller")
		}
		return nil, tss.NewUnknownError("", errors.Wrap(err, "failed to load session"))
	}
	if session.WalletID != walletID {
		return nil, tss.NewInvalidSessionError("", "session not found or not owned by caller")
	}
	return session, nil
}

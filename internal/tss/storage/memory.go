package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore 进程内存储实现，用于测试与本地开发。
// 与 PostgreSQLStore 保持相同的语义：AdvanceStage 在锁内完成 compare-and-set。
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*TssSession
	stages   map[stageKey]*TssStage
}

type stageKey struct {
	sessionID string
	stageType StageType
}

// NewMemoryStore 创建内存存储实例
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*TssSession),
		stages:   make(map[stageKey]*TssStage),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, session *TssSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.SessionID]; ok {
		return ErrAlreadyExists
	}
	cloned := *session
	s.sessions[session.SessionID] = &cloned
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*TssSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *session
	return &cloned, nil
}

func (s *MemoryStore) MarkSessionAborted(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if session.State == SessionStateCompleted {
		return ErrInvalidSessionState
	}
	session.State = SessionStateAborted
	session.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateStage(_ context.Context, stage *TssStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stageKey{stage.SessionID, stage.StageType}
	if _, ok := s.stages[key]; ok {
		return ErrAlreadyExists
	}
	cloned := *stage
	cloned.StageData = append(json.RawMessage(nil), stage.StageData...)
	s.stages[key] = &cloned
	return nil
}

func (s *MemoryStore) GetStage(_ context.Context, sessionID string, stageType StageType) (*TssStage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stage, ok := s.stages[stageKey{sessionID, stageType}]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *stage
	cloned.StageData = append(json.RawMessage(nil), stage.StageData...)
	return &cloned, nil
}

func (s *MemoryStore) ListStages(_ context.Context, sessionID string) ([]*TssStage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stages []*TssStage
	for key, stage := range s.stages {
		if key.sessionID != sessionID {
			continue
		}
		cloned := *stage
		cloned.StageData = append(json.RawMessage(nil), stage.StageData...)
		stages = append(stages, &cloned)
	}
	return stages, nil
}

func (s *MemoryStore) AdvanceStage(_ context.Context, sessionID string, stageType StageType, expected StageStatus, next StageStatus, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stage, ok := s.stages[stageKey{sessionID, stageType}]
	if !ok || stage.StageStatus != expected {
		return ErrStatusConflict
	}
	stage.StageStatus = next
	stage.StageData = append(json.RawMessage(nil), data...)
	stage.UpdatedAt = time.Now()
	return nil
}

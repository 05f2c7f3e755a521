package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(id, walletID string) *TssSession {
	now := time.Now()
	return &TssSession{
		SessionID:  id,
		WalletID:   walletID,
		CustomerID: "customer-1",
		State:      SessionStateInProgress,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestStage(sessionID string, stageType StageType) *TssStage {
	now := time.Now()
	return &TssStage{
		SessionID:   sessionID,
		StageType:   stageType,
		StageStatus: StageStatusStep1,
		StageData:   json.RawMessage(`{"count":3}`),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, newTestSession("s-1", "w-1")))
	assert.ErrorIs(t, store.CreateSession(ctx, newTestSession("s-1", "w-1")), ErrAlreadyExists)

	session, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "w-1", session.WalletID)

	_, err = store.GetSession(ctx, "s-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreMarkSessionAborted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.MarkSessionAborted(ctx, "missing"), ErrNotFound)

	require.NoError(t, store.CreateSession(ctx, newTestSession("s-1", "w-1")))
	require.NoError(t, store.MarkSessionAborted(ctx, "s-1"))

	// 幂等：已 ABORTED 再次中止仍成功
	require.NoError(t, store.MarkSessionAborted(ctx, "s-1"))

	session, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, SessionStateAborted, session.State)

	// COMPLETED 会话拒绝中止
	completed := newTestSession("s-2", "w-1")
	completed.State = SessionStateCompleted
	require.NoError(t, store.CreateSession(ctx, completed))
	assert.ErrorIs(t, store.MarkSessionAborted(ctx, "s-2"), ErrInvalidSessionState)
}

func TestMemoryStoreAdvanceStageCompareAndSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateStage(ctx, newTestStage("s-1", StageTypeTriples)))
	assert.ErrorIs(t, store.CreateStage(ctx, newTestStage("s-1", StageTypeTriples)), ErrAlreadyExists)

	// 期望状态匹配：推进成功
	data := json.RawMessage(`{"count":3,"inbox":["a"]}`)
	require.NoError(t, store.AdvanceStage(ctx, "s-1", StageTypeTriples, StageStatusStep1, StageStatusStep2, data))

	stage, err := store.GetStage(ctx, "s-1", StageTypeTriples)
	require.NoError(t, err)
	assert.Equal(t, StageStatusStep2, stage.StageStatus)
	assert.Equal(t, data, stage.StageData)

	// 期望状态已过期：compare-and-set 失败
	err = store.AdvanceStage(ctx, "s-1", StageTypeTriples, StageStatusStep1, StageStatusStep2, data)
	assert.ErrorIs(t, err, ErrStatusConflict)

	// 不存在的阶段同样报冲突
	err = store.AdvanceStage(ctx, "s-2", StageTypeTriples, StageStatusStep1, StageStatusStep2, data)
	assert.ErrorIs(t, err, ErrStatusConflict)
}

func TestMemoryStoreListStages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateStage(ctx, newTestStage("s-1", StageTypeTriples)))
	require.NoError(t, store.CreateStage(ctx, newTestStage("s-1", StageTypePresign)))
	require.NoError(t, store.CreateStage(ctx, newTestStage("s-2", StageTypeSign)))

	stages, err := store.ListStages(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, stages, 2)

	stages, err = store.ListStages(ctx, "s-3")
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateStage(ctx, newTestStage("s-1", StageTypeTriples)))

	stage, err := store.GetStage(ctx, "s-1", StageTypeTriples)
	require.NoError(t, err)
	stage.StageStatus = StageStatusCompleted
	stage.StageData[0] = 'X'

	reloaded, err := store.GetStage(ctx, "s-1", StageTypeTriples)
	require.NoError(t, err)
	assert.Equal(t, StageStatusStep1, reloaded.StageStatus)
	assert.Equal(t, json.RawMessage(`{"count":3}`), reloaded.StageData)
}

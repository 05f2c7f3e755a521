package orchestrator

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/protocol"
	"github.com/chainapsis/oko-sub000/internal/tss/storage"
	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewService(store, store, time2.DefaultClock, tss.NewPassthroughEngine()), store
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func randomPoint(t *testing.T) string {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

func randomTriples(t *testing.T, count int) []protocol.TriplePub {
	t.Helper()
	triples := make([]protocol.TriplePub, count)
	for i := range triples {
		triples[i] = protocol.TriplePub{BigA: randomPoint(t), BigB: randomPoint(t), BigC: randomPoint(t)}
	}
	return triples
}

// startTriplesSession 跑 TRIPLES 第 1 步，返回新会话 ID
func startTriplesSession(t *testing.T, svc *Service, walletID, customerID string) string {
	t.Helper()
	result, err := svc.TriplesStep(context.Background(), StepRequest{
		Step:       1,
		WalletID:   walletID,
		CustomerID: customerID,
		Payload:    mustJSON(t, protocol.TriplesInitMessage{Count: 2}),
	})
	require.NoError(t, err)
	return result.SessionID
}

func waitPayload(t *testing.T, step int) json.RawMessage {
	t.Helper()
	return mustJSON(t, protocol.WaitMessage{
		Batch: []json.RawMessage{json.RawMessage(fmt.Sprintf(`{"from":%d}`, step))},
	})
}

func TestTriplesFullLadder(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	sessionID := startTriplesSession(t, svc, "wallet-1", "customer-1")

	for step := 2; step <= 10; step++ {
		result, err := svc.TriplesStep(ctx, StepRequest{
			Step: step, SessionID: sessionID, WalletID: "wallet-1", Payload: waitPayload(t, step),
		})
		require.NoError(t, err, "step %d", step)
		assert.Equal(t, storage.StageStatus(fmt.Sprintf("STEP_%d", step)), result.StageStatus)
	}

	result, err := svc.TriplesStep(ctx, StepRequest{
		Step: 11, SessionID: sessionID, WalletID: "wallet-1",
		Payload: mustJSON(t, protocol.TriplesResultMessage{
			Triples0: randomTriples(t, 2),
			Triples1: randomTriples(t, 2),
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, storage.StageStatusCompleted, result.StageStatus)

	// 阶段完成不改变会话状态
	session, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, storage.SessionStateInProgress, session.State)
}

func TestTriplesStepRejections(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sessionID := startTriplesSession(t, svc, "wallet-1", "customer-1")

	// 不存在的会话
	_, err := svc.TriplesStep(ctx, StepRequest{Step: 2, SessionID: "missing", WalletID: "wallet-1", Payload: waitPayload(t, 2)})
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_SESSION", err.(*tss.StepError).Code())

	// 他人会话
	_, err = svc.TriplesStep(ctx, StepRequest{Step: 2, SessionID: sessionID, WalletID: "wallet-2", Payload: waitPayload(t, 2)})
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_SESSION", err.(*tss.StepError).Code())

	// 正常推进
	result, err := svc.TriplesStep(ctx, StepRequest{Step: 2, SessionID: sessionID, WalletID: "wallet-1", Payload: waitPayload(t, 2)})
	require.NoError(t, err)
	assert.Equal(t, storage.StageStatusStep2, result.StageStatus)

	// 重放同一步
	_, err = svc.TriplesStep(ctx, StepRequest{Step: 2, SessionID: sessionID, WalletID: "wallet-1", Payload: waitPayload(t, 2)})
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_STAGE", err.(*tss.StepError).Code())
}

func TestTriplesTerminalValidationFailureKeepsStatus(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	sessionID := startTriplesSession(t, svc, "wallet-1", "customer-1")
	for step := 2; step <= 10; step++ {
		_, err := svc.TriplesStep(ctx, StepRequest{Step: step, SessionID: sessionID, WalletID: "wallet-1", Payload: waitPayload(t, step)})
		require.NoError(t, err)
	}

	// 批次数量与声明不符
	_, err := svc.TriplesStep(ctx, StepRequest{
		Step: 11, SessionID: sessionID, WalletID: "wallet-1",
		Payload: mustJSON(t, protocol.TriplesResultMessage{
			Triples0: randomTriples(t, 1),
			Triples1: randomTriples(t, 2),
		}),
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_TRIPLES_RESULT", err.(*tss.StepError).Code())

	stage, err := store.GetStage(ctx, sessionID, storage.StageTypeTriples)
	require.NoError(t, err)
	assert.Equal(t, storage.StageStatusStep10, stage.StageStatus)

	// 修正后重试同一步成功
	result, err := svc.TriplesStep(ctx, StepRequest{
		Step: 11, SessionID: sessionID, WalletID: "wallet-1",
		Payload: mustJSON(t, protocol.TriplesResultMessage{
			Triples0: randomTriples(t, 2),
			Triples1: randomTriples(t, 2),
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, storage.StageStatusCompleted, result.StageStatus)
}

func TestPresignOnExistingSession(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// PRESIGN 不创建会话：无会话时第 1 步即拒绝
	_, err := svc.PresignStep(ctx, StepRequest{Step: 1, SessionID: "missing", WalletID: "wallet-1", Payload: mustJSON(t, protocol.PresignInitMessage{})})
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_SESSION", err.(*tss.StepError).Code())

	sessionID := startTriplesSession(t, svc, "wallet-1", "customer-1")

	_, err = svc.PresignStep(ctx, StepRequest{Step: 1, SessionID: sessionID, WalletID: "wallet-1", Payload: mustJSON(t, protocol.PresignInitMessage{})})
	require.NoError(t, err)
	_, err = svc.PresignStep(ctx, StepRequest{Step: 2, SessionID: sessionID, WalletID: "wallet-1", Payload: waitPayload(t, 2)})
	require.NoError(t, err)

	result, err := svc.PresignStep(ctx, StepRequest{
		Step: 3, SessionID: sessionID, WalletID: "wallet-1",
		Payload: mustJSON(t, protocol.PresignResultMessage{BigR: randomPoint(t)}),
	})
	require.NoError(t, err)
	assert.Equal(t, storage.StageStatusCompleted, result.StageStatus)
}

func TestSignLadderVerifiesSignature(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	hash := sha256.Sum256([]byte("transfer"))
	r, s, err := ecdsa.Sign(rand.Reader, priv.ToECDSA(), hash[:])
	require.NoError(t, err)

	sessionID := startTriplesSession(t, svc, "wallet-1", "customer-1")

	_, err = svc.SignStep(ctx, StepRequest{
		Step: 1, SessionID: sessionID, WalletID: "wallet-1",
		Payload: mustJSON(t, protocol.SignInitMessage{
			MessageHash: hex.EncodeToString(hash[:]),
			PublicKey:   hex.EncodeToString(priv.PubKey().SerializeCompressed()),
		}),
	})
	require.NoError(t, err)

	result, err := svc.SignStep(ctx, StepRequest{
		Step: 2, SessionID: sessionID, WalletID: "wallet-1",
		Payload: mustJSON(t, protocol.SignResultMessage{R: r.Text(16), S: s.Text(16)}),
	})
	require.NoError(t, err)
	assert.Equal(t, storage.StageStatusCompleted, result.StageStatus)
}

func TestKeygenLadderWithoutSession(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.KeygenStep(ctx, StepRequest{Step: 1, SessionID: "keygen-7", Payload: mustJSON(t, protocol.KeygenInitMessage{})})
	require.NoError(t, err)

	for step := 2; step <= 4; step++ {
		_, err = svc.KeygenStep(ctx, StepRequest{Step: step, SessionID: "keygen-7", Payload: waitPayload(t, step)})
		require.NoError(t, err, "step %d", step)
	}

	result, err := svc.KeygenStep(ctx, StepRequest{
		Step: 5, SessionID: "keygen-7",
		Payload: mustJSON(t, protocol.KeygenResultMessage{PublicKey: randomPoint(t)}),
	})
	require.NoError(t, err)
	assert.Equal(t, storage.StageStatusCompleted, result.StageStatus)
}

func TestAbortSession(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	sessionID := startTriplesSession(t, svc, "wallet-1", "customer-1")

	// 归属错误与步进调用表现一致
	err := svc.AbortSession(ctx, sessionID, "wallet-2")
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_SESSION", err.(*tss.StepError).Code())

	require.NoError(t, svc.AbortSession(ctx, sessionID, "wallet-1"))

	// 幂等
	require.NoError(t, svc.AbortSession(ctx, sessionID, "wallet-1"))

	session, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, storage.SessionStateAborted, session.State)

	// 中止后步进被拒绝
	_, err = svc.TriplesStep(ctx, StepRequest{Step: 2, SessionID: sessionID, WalletID: "wallet-1", Payload: waitPayload(t, 2)})
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_SESSION", err.(*tss.StepError).Code())
}

func TestAbortCompletedSessionRejected(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	sessionID := startTriplesSession(t, svc, "wallet-1", "customer-1")
	require.NoError(t, store.MarkSessionAborted(ctx, sessionID))

	// 直接构造 COMPLETED 会话
	completed := &storage.TssSession{SessionID: "s-done", WalletID: "wallet-1", State: storage.SessionStateCompleted}
	require.NoError(t, store.CreateSession(ctx, completed))

	err := svc.AbortSession(ctx, "s-done", "wallet-1")
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_SESSION", err.(*tss.StepError).Code())
}

func TestGetSessionView(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sessionID := startTriplesSession(t, svc, "wallet-1", "customer-1")
	_, err := svc.SignStep(ctx, StepRequest{
		Step: 1, SessionID: sessionID, WalletID: "wallet-1",
		Payload: mustJSON(t, protocol.SignInitMessage{
			MessageHash: hex.EncodeToString(make([]byte, 32)),
			PublicKey:   randomPoint(t),
		}),
	})
	require.NoError(t, err)

	view, err := svc.GetSession(ctx, sessionID, "wallet-1")
	require.NoError(t, err)
	assert.Equal(t, sessionID, view.SessionID)
	assert.Equal(t, "wallet-1", view.WalletID)
	assert.Equal(t, storage.SessionStateInProgress, view.State)
	assert.Len(t, view.Stages, 2)

	// 他人视角等同不存在
	_, err = svc.GetSession(ctx, sessionID, "wallet-2")
	require.Error(t, err)
	assert.Equal(t, "INVALID_TSS_SESSION", err.(*tss.StepError).Code())
}

package protocol

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomPoint 生成一个合法的压缩 secp256k1 点
func randomPoint(t *testing.T) string {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

func randomTriples(t *testing.T, count int) []TriplePub {
	t.Helper()
	triples := make([]TriplePub, count)
	for i := range triples {
		triples[i] = TriplePub{
			BigA: randomPoint(t),
			BigB: randomPoint(t),
			BigC: randomPoint(t),
		}
	}
	return triples
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestTriplesFoldTracksDeclaredCount(t *testing.T) {
	adapter := NewTriplesAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()

	_, data, err := adapter.Fold(ctx, 1, nil, mustJSON(t, TriplesInitMessage{Count: 3}))
	require.NoError(t, err)

	var state triplesStageData
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, 3, state.Count)
}

func TestTriplesFoldRejectsNonPositiveCount(t *testing.T) {
	adapter := NewTriplesAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()

	for _, count := range []int{0, -5} {
		_, _, err := adapter.Fold(ctx, 1, nil, mustJSON(t, TriplesInitMessage{Count: count}))
		assert.Equal(t, tss.ErrKindPayload, tss.KindOf(err), "count %d", count)
	}
}

func TestTriplesFoldRejectsMalformedPayload(t *testing.T) {
	adapter := NewTriplesAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()

	_, _, err := adapter.Fold(ctx, 1, nil, nil)
	assert.Equal(t, tss.ErrKindPayload, tss.KindOf(err))

	_, _, err = adapter.Fold(ctx, 2, mustJSON(t, triplesStageData{Count: 1}), json.RawMessage(`not-json`))
	assert.Equal(t, tss.ErrKindPayload, tss.KindOf(err))
}

func TestTriplesFoldBuffersWaitBatches(t *testing.T) {
	adapter := NewTriplesAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()

	_, data, err := adapter.Fold(ctx, 1, nil, mustJSON(t, TriplesInitMessage{Count: 1}))
	require.NoError(t, err)

	for step := 2; step <= 10; step++ {
		wait := WaitMessage{Batch: []json.RawMessage{json.RawMessage(fmt.Sprintf(`{"from":%d}`, step))}}
		_, data, err = adapter.Fold(ctx, step, data, mustJSON(t, wait))
		require.NoError(t, err)
	}

	var state triplesStageData
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Len(t, state.Inbox, 9)
}

func TestTriplesValidateTerminal(t *testing.T) {
	adapter := NewTriplesAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()
	data := mustJSON(t, triplesStageData{Count: 2})

	// 合法产物
	ok := mustJSON(t, TriplesResultMessage{
		Triples0: randomTriples(t, 2),
		Triples1: randomTriples(t, 2),
	})
	assert.NoError(t, adapter.ValidateTerminal(ctx, data, ok))

	// 数量与第 1 步声明不符
	short := mustJSON(t, TriplesResultMessage{
		Triples0: randomTriples(t, 1),
		Triples1: randomTriples(t, 2),
	})
	err := adapter.ValidateTerminal(ctx, data, short)
	assert.Equal(t, tss.ErrKindInvalidResult, tss.KindOf(err))

	// 非法曲线点
	bad := TriplesResultMessage{
		Triples0: randomTriples(t, 2),
		Triples1: randomTriples(t, 2),
	}
	bad.Triples1[1].BigC = "02deadbeef"
	err = adapter.ValidateTerminal(ctx, data, mustJSON(t, bad))
	assert.Equal(t, tss.ErrKindInvalidResult, tss.KindOf(err))

	// 不可解析的产物
	err = adapter.ValidateTerminal(ctx, data, json.RawMessage(`not-json`))
	assert.Equal(t, tss.ErrKindInvalidResult, tss.KindOf(err))
}

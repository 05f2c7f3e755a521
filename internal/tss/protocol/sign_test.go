package protocol

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signFixture 真实密钥对与合法签名，用于终态校验
type signFixture struct {
	messageHash string
	publicKey   string
	r, s        string
}

func newSignFixture(t *testing.T) signFixture {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	hash := sha256.Sum256([]byte("spend 1 BTC"))
	r, s, err := ecdsa.Sign(rand.Reader, priv.ToECDSA(), hash[:])
	require.NoError(t, err)

	return signFixture{
		messageHash: hex.EncodeToString(hash[:]),
		publicKey:   hex.EncodeToString(priv.PubKey().SerializeCompressed()),
		r:           r.Text(16),
		s:           s.Text(16),
	}
}

func TestSignFoldCapturesHashAndKey(t *testing.T) {
	adapter := NewSignAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()
	fx := newSignFixture(t)

	_, data, err := adapter.Fold(ctx, 1, nil, mustJSON(t, SignInitMessage{
		MessageHash: fx.messageHash,
		PublicKey:   fx.publicKey,
	}))
	require.NoError(t, err)

	var state signStageData
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, fx.messageHash, state.MessageHash)
	assert.Equal(t, fx.publicKey, state.PublicKey)
}

func TestSignFoldRejectsBadInit(t *testing.T) {
	adapter := NewSignAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()
	fx := newSignFixture(t)

	// 摘要不是 32 字节
	_, _, err := adapter.Fold(ctx, 1, nil, mustJSON(t, SignInitMessage{
		MessageHash: "abcd",
		PublicKey:   fx.publicKey,
	}))
	assert.Equal(t, tss.ErrKindPayload, tss.KindOf(err))

	// 公钥不在曲线上
	_, _, err = adapter.Fold(ctx, 1, nil, mustJSON(t, SignInitMessage{
		MessageHash: fx.messageHash,
		PublicKey:   "02deadbeef",
	}))
	assert.Equal(t, tss.ErrKindPayload, tss.KindOf(err))
}

func TestSignValidateTerminal(t *testing.T) {
	adapter := NewSignAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()
	fx := newSignFixture(t)

	data := mustJSON(t, signStageData{MessageHash: fx.messageHash, PublicKey: fx.publicKey})

	// 合法签名通过验签
	assert.NoError(t, adapter.ValidateTerminal(ctx, data, mustJSON(t, SignResultMessage{R: fx.r, S: fx.s})))

	// 另一把钥匙的签名不通过
	other := newSignFixture(t)
	err := adapter.ValidateTerminal(ctx, data, mustJSON(t, SignResultMessage{R: other.r, S: other.s}))
	assert.Equal(t, tss.ErrKindInvalidResult, tss.KindOf(err))

	// 非 hex 的签名分量
	err = adapter.ValidateTerminal(ctx, data, mustJSON(t, SignResultMessage{R: "zzzz", S: fx.s}))
	assert.Equal(t, tss.ErrKindInvalidResult, tss.KindOf(err))

	// 不可解析的产物
	err = adapter.ValidateTerminal(ctx, data, json.RawMessage(`not-json`))
	assert.Equal(t, tss.ErrKindInvalidResult, tss.KindOf(err))
}

func TestPresignValidateTerminal(t *testing.T) {
	adapter := NewPresignAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()

	assert.NoError(t, adapter.ValidateTerminal(ctx, nil, mustJSON(t, PresignResultMessage{BigR: randomPoint(t)})))

	err := adapter.ValidateTerminal(ctx, nil, mustJSON(t, PresignResultMessage{BigR: "02deadbeef"}))
	assert.Equal(t, tss.ErrKindInvalidResult, tss.KindOf(err))
}

func TestKeygenValidateTerminal(t *testing.T) {
	adapter := NewKeygenAdapter(tss.NewPassthroughEngine())
	ctx := context.Background()

	assert.NoError(t, adapter.ValidateTerminal(ctx, nil, mustJSON(t, KeygenResultMessage{PublicKey: randomPoint(t)})))

	err := adapter.ValidateTerminal(ctx, nil, mustJSON(t, KeygenResultMessage{PublicKey: "not-hex"}))
	assert.Equal(t, tss.ErrKindInvalidResult, tss.KindOf(err))
}

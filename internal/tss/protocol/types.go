package protocol

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/sequencer"
	"github.com/chainapsis/oko-sub000/internal/tss/storage"
	"github.com/pkg/errors"
)

// 每个协议的有序状态阶梯。客户端可见步数 = 状态数 + 1。
var (
	TriplesProtocol = sequencer.Protocol{
		StageType: storage.StageTypeTriples,
		Statuses: []storage.StageStatus{
			storage.StageStatusStep1, storage.StageStatusStep2, storage.StageStatusStep3,
			storage.StageStatusStep4, storage.StageStatusStep5, storage.StageStatusStep6,
			storage.StageStatusStep7, storage.StageStatusStep8, storage.StageStatusStep9,
			storage.StageStatusStep10,
		},
		SessionScoped:  true,
		CreatesSession: true,
	}

	PresignProtocol = sequencer.Protocol{
		StageType:     storage.StageTypePresign,
		Statuses:      []storage.StageStatus{storage.StageStatusStep1, storage.StageStatusStep2},
		SessionScoped: true,
	}

	SignProtocol = sequencer.Protocol{
		StageType:     storage.StageTypeSign,
		Statuses:      []storage.StageStatus{storage.StageStatusStep1},
		SessionScoped: true,
	}

	// KeygenProtocol 不绑定 TssSession：keygen 先于钱包/会话存在，
	// 以调用方提供的标识符为键
	KeygenProtocol = sequencer.Protocol{
		StageType: storage.StageTypeKeygen,
		Statuses: []storage.StageStatus{
			storage.StageStatusStep1, storage.StageStatusStep2,
			storage.StageStatusStep3, storage.StageStatusStep4,
		},
	}
)

// TriplesInitMessage TRIPLES 第 1 步：声明本次要生成的 triple 数量
type TriplesInitMessage struct {
	Count   int             `json:"count"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WaitMessage 中间步骤转发的对端消息批次（TRIPLES 2–10 / PRESIGN 2 / KEYGEN 2–4）
type WaitMessage struct {
	Batch []json.RawMessage `json:"batch"`
}

// TriplePub 单个 triple 的公开部分（压缩 secp256k1 点，hex 编码）
type TriplePub struct {
	BigA string `json:"big_a"`
	BigB string `json:"big_b"`
	BigC string `json:"big_c"`
}

// TriplesResultMessage TRIPLES 第 11 步：完成的两批公开 triple 值
type TriplesResultMessage struct {
	Triples0 []TriplePub `json:"triples0"`
	Triples1 []TriplePub `json:"triples1"`
}

// PresignInitMessage PRESIGN 第 1 步
type PresignInitMessage struct {
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresignResultMessage PRESIGN 第 3 步：预签名的 big-R 点
type PresignResultMessage struct {
	BigR    string          `json:"big_r"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SignInitMessage SIGN 第 1 步：待签消息摘要与钱包公钥
type SignInitMessage struct {
	MessageHash string          `json:"message_hash"`
	PublicKey   string          `json:"public_key"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// SignResultMessage SIGN 第 2 步：最终签名
type SignResultMessage struct {
	R string `json:"r"`
	S string `json:"s"`
}

// KeygenInitMessage KEYGEN 第 1 步
type KeygenInitMessage struct {
	Payload json.RawMessage `json:"payload,omitempty"`
}

// KeygenResultMessage KEYGEN 第 5 步：生成的公钥
type KeygenResultMessage struct {
	PublicKey string `json:"public_key"`
}

// parsePoint 解析压缩 secp256k1 公钥点
func parsePoint(encoded string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "point is not valid hex")
	}
	point, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, errors.Wrap(err, "point is not on curve")
	}
	return point, nil
}

func decodeMessage(stageType storage.StageType, payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return tss.NewPayloadError(stageType, errors.New("empty payload"))
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return tss.NewPayloadError(stageType, err)
	}
	return nil
}

// engineRound 调用不透明引擎并容忍空输出
func engineRound(ctx context.Context, engine tss.Engine, stageType storage.StageType, step int, state, incoming json.RawMessage) (*tss.RoundOutput, error) {
	out, err := engine.Round(ctx, tss.RoundInput{
		StageType: stageType,
		Step:      step,
		State:     state,
		Incoming:  incoming,
	})
	if err != nil {
		return nil, errors.Wrap(err, "engine round failed")
	}
	if out == nil {
		out = &tss.RoundOutput{State: state}
	}
	return out, nil
}

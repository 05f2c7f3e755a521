package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

// StageDataCipher 对 stage_data 做落盘前加密（AES-256-GCM，scrypt 派生密钥）。
// 密文格式: nonce || ciphertext(含 tag)
type StageDataCipher struct {
	key []byte
}

// NewStageDataCipher 从口令派生加密密钥
func NewStageDataCipher(passphrase string) (*StageDataCipher, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is empty")
	}
	salt := []byte("tss-stage-data-salt")
	key, err := scrypt.Key([]byte(passphrase), salt, 32768, 8, 1, 32)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive encryption key")
	}
	return &StageDataCipher{key: key}, nil
}

// Encrypt 加密数据
func (c *StageDataCipher) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt 解密数据
func (c *StageDataCipher) Decrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}
	if len(data) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt stage data")
	}
	return plaintext, nil
}

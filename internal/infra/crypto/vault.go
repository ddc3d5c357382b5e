// Package crypto protege dados pessoais em repouso (CPF) com AES-GCM e gera hashes de busca.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const prefix = "enc:v1:"

var ErrTampered = errors.New("decryption failed (wrong key or tampered data)")

type Vault struct {
	gcm     cipher.AEAD
	hmacKey []byte
}

// NewVault deriva a chave AES-256 e a chave do HMAC a partir do segredo configurado.
// Com segredo vazio o vault fica desligado e os valores passam em claro.
func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return &Vault{}, nil
	}

	aesKey := sha256.Sum256([]byte("aes:" + secret))
	macKey := sha256.Sum256([]byte("hmac:" + secret))

	block, err := aes.NewCipher(aesKey[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{gcm: gcm, hmacKey: macKey[:]}, nil
}

func (v *Vault) Enabled() bool {
	return v != nil && v.gcm != nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	if !v.Enabled() || plaintext == "" {
		return plaintext, nil
	}

	nonce := make([]byte, v.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// nonce vai na frente do ciphertext
	sealed := v.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefix + hex.EncodeToString(sealed), nil
}

// Decrypt aceita valores legados em claro (sem prefixo).
func (v *Vault) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	if !v.Enabled() {
		return "", fmt.Errorf("valor cifrado sem DATA_ENCRYPTION_KEY configurada")
	}

	ciphertext, err := hex.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", err
	}

	nonceSize := v.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, actual := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := v.gcm.Open(nil, nonce, actual, nil)
	if err != nil {
		return "", ErrTampered
	}
	return string(plaintext), nil
}

// Hash é determinístico, usado no índice único (organização, cpf).
func (v *Vault) Hash(value string) string {
	if value == "" {
		return ""
	}
	if !v.Enabled() {
		sum := sha256.Sum256([]byte(value))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, v.hmacKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

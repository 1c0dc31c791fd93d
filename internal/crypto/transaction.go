package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Transaction is the ephemeral OAuth flow state carried between the login
// redirect and the provider callback, stored only as ciphertext in a
// short-lived cookie.
type Transaction struct {
	CodeVerifier string `json:"codeVerifier"`
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
}

// keySize is the AES-256 key length taken from the shared secret.
const keySize = 32

// deriveKey takes the first 32 bytes of the secret's UTF-8 bytes.
func deriveKey(secret string) ([]byte, error) {
	if len(secret) < keySize {
		return nil, fmt.Errorf("secret must be at least %d bytes", keySize)
	}
	return []byte(secret)[:keySize], nil
}

// SealTransaction encrypts the transaction with AES-256-GCM under a fresh
// random 12-byte IV and encodes it as base64(iv):base64(tag):base64(ciphertext).
// This three-part format is the cookie contract consumed by OpenTransaction.
func SealTransaction(secret string, tx *Transaction) (string, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}

	plaintext, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transaction: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends the auth tag to the ciphertext; split it back out so the
	// wire format carries the tag as its own component.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	enc := base64.StdEncoding
	return enc.EncodeToString(iv) + ":" + enc.EncodeToString(tag) + ":" + enc.EncodeToString(ciphertext), nil
}

// OpenTransaction decrypts a sealed transaction. Any failure, whether a
// malformed value, a wrong key, or a tampered ciphertext or tag, yields nil.
// Callers translate nil into ordinary control flow; nothing here panics or
// surfaces crypto errors.
func OpenTransaction(secret, value string) *Transaction {
	key, err := deriveKey(secret)
	if err != nil {
		return nil
	}

	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return nil
	}

	enc := base64.StdEncoding
	iv, err := enc.DecodeString(parts[0])
	if err != nil {
		return nil
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	ciphertext, err := enc.DecodeString(parts[2])
	if err != nil {
		return nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil
	}

	if len(iv) != gcm.NonceSize() || len(tag) != gcm.Overhead() {
		return nil
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil
	}

	var tx Transaction
	if err := json.Unmarshal(plaintext, &tx); err != nil {
		return nil
	}

	if tx.CodeVerifier == "" || tx.State == "" {
		return nil
	}

	return &tx
}

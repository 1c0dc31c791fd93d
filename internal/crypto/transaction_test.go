package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef" // exactly 32 bytes

func validTransaction(t *testing.T) *Transaction {
	t.Helper()
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	state, err := GenerateStateToken()
	require.NoError(t, err)
	nonce, err := GenerateStateToken()
	require.NoError(t, err)
	return &Transaction{CodeVerifier: verifier, State: state, Nonce: nonce}
}

func TestSealOpenRoundTrip(t *testing.T) {
	tx := validTransaction(t)

	sealed, err := SealTransaction(testSecret, tx)
	require.NoError(t, err)

	parts := strings.Split(sealed, ":")
	require.Len(t, parts, 3, "wire format is iv:authTag:ciphertext")

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, iv, 12)

	tag, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, tag, 16)

	opened := OpenTransaction(testSecret, sealed)
	require.NotNil(t, opened)
	assert.Equal(t, tx.CodeVerifier, opened.CodeVerifier)
	assert.Equal(t, tx.State, opened.State)
	assert.Equal(t, tx.Nonce, opened.Nonce)
}

func TestSealProducesFreshIV(t *testing.T) {
	tx := validTransaction(t)

	first, err := SealTransaction(testSecret, tx)
	require.NoError(t, err)
	second, err := SealTransaction(testSecret, tx)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSealRequiresLongSecret(t *testing.T) {
	_, err := SealTransaction("too-short", validTransaction(t))
	assert.Error(t, err)
}

func TestSealUsesFirst32BytesOfSecret(t *testing.T) {
	tx := validTransaction(t)

	sealed, err := SealTransaction(testSecret+"-with-a-longer-tail", tx)
	require.NoError(t, err)

	// Same first 32 bytes, different tail: must still decrypt.
	opened := OpenTransaction(testSecret+"-different-tail", sealed)
	require.NotNil(t, opened)
	assert.Equal(t, tx.State, opened.State)
}

func TestOpenRejectsTampering(t *testing.T) {
	sealed, err := SealTransaction(testSecret, validTransaction(t))
	require.NoError(t, err)

	parts := strings.Split(sealed, ":")
	require.Len(t, parts, 3)

	// Flip one bit in every component in turn.
	for i, name := range []string{"iv", "authTag", "ciphertext"} {
		t.Run(name, func(t *testing.T) {
			raw, err := base64.StdEncoding.DecodeString(parts[i])
			require.NoError(t, err)
			raw[0] ^= 0x01

			tampered := make([]string, 3)
			copy(tampered, parts)
			tampered[i] = base64.StdEncoding.EncodeToString(raw)

			assert.Nil(t, OpenTransaction(testSecret, strings.Join(tampered, ":")))
		})
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealed, err := SealTransaction(testSecret, validTransaction(t))
	require.NoError(t, err)

	otherSecret := "ffffffffffffffffffffffffffffffff"
	assert.Nil(t, OpenTransaction(otherSecret, sealed))
}

func TestOpenRejectsMalformedValues(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"not colon separated", "abcdef"},
		{"two parts", "aGVsbG8=:aGVsbG8="},
		{"four parts", "aGVsbG8=:aGVsbG8=:aGVsbG8=:aGVsbG8="},
		{"invalid base64", "!!!:aGVsbG8=:aGVsbG8="},
		{"wrong iv length", "aGVsbG8=:aGVsbG8=:aGVsbG8="},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, OpenTransaction(testSecret, tc.value))
		})
	}
}

func TestOpenRejectsEmptyFields(t *testing.T) {
	sealed, err := SealTransaction(testSecret, &Transaction{State: "s", Nonce: "n"})
	require.NoError(t, err)

	// Decrypts fine but carries no verifier, so it is not a usable
	// transaction.
	assert.Nil(t, OpenTransaction(testSecret, sealed))
}

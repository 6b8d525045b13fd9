package wallet

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenarcade/relay/service/codec"
)

// buildUnsignedTx assembles a wire-format transaction with the given number
// of empty signature slots and message payload.
func buildUnsignedTx(sigCount int, message []byte) []byte {
	tx := make([]byte, 1+sigCount*64+len(message))
	tx[0] = byte(sigCount)
	copy(tx[1+sigCount*64:], message)
	return tx
}

func configuredManager(t *testing.T) (*Manager, ed25519.PrivateKey) {
	t.Helper()
	priv := testKeypair(t)
	m, err := NewManager(codec.Encode(priv), testLogger())
	require.NoError(t, err)
	return m, priv
}

func TestSignTransaction_SingleSigner(t *testing.T) {
	m, priv := configuredManager(t)
	message := []byte("transfer 1 lamport to somebody")
	tx := buildUnsignedTx(1, message)

	signed, err := m.SignTransaction(tx)
	require.NoError(t, err)

	// Length is preserved and the message is untouched.
	require.Len(t, signed, len(tx))
	assert.Equal(t, byte(1), signed[0])
	assert.Equal(t, message, signed[65:])

	// Slot 0 holds a valid detached signature over the message.
	pub := priv.Public().(ed25519.PublicKey)
	assert.True(t, ed25519.Verify(pub, message, signed[1:65]))
}

func TestSignTransaction_OnlySlotZeroMutated(t *testing.T) {
	m, _ := configuredManager(t)
	message := []byte("multi signer payload")
	tx := buildUnsignedTx(3, message)
	// Fill the other slots with sentinel bytes that must survive signing.
	for i := 65; i < 1+3*64; i++ {
		tx[i] = 0xAB
	}

	signed, err := m.SignTransaction(tx)
	require.NoError(t, err)
	require.Len(t, signed, len(tx))

	// Slots 1 and 2 are untouched.
	for i := 65; i < 1+3*64; i++ {
		require.Equal(t, byte(0xAB), signed[i], "byte %d was mutated", i)
	}
	// Message offset shifts with the slot count.
	assert.Equal(t, message, signed[1+3*64:])
	// The input buffer itself is not mutated.
	for i := 1; i < 65; i++ {
		require.Equal(t, byte(0), tx[i])
	}
}

func TestSignTransaction_DeterministicOnSameMessage(t *testing.T) {
	m, _ := configuredManager(t)
	tx := buildUnsignedTx(1, []byte("same message"))

	a, err := m.SignTransaction(tx)
	require.NoError(t, err)
	b, err := m.SignTransaction(tx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSignTransaction_RejectsMalformed(t *testing.T) {
	m, _ := configuredManager(t)

	tests := []struct {
		name string
		tx   []byte
	}{
		{"empty", []byte{}},
		{"zero signature slots", buildUnsignedTx(0, []byte("msg"))},
		{"truncated before message", []byte{1, 0, 0, 0}},
		{"slots but no message", buildUnsignedTx(1, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SignTransaction(tt.tx)
			assert.Error(t, err)
		})
	}
}

func TestSignTransaction_NotConfigured(t *testing.T) {
	m, err := NewManager("", testLogger())
	require.NoError(t, err)

	_, err = m.SignTransaction(buildUnsignedTx(1, []byte("msg")))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

package wallet

import (
	"crypto/ed25519"
	"fmt"
)

// Solana wire format: [sig_count:u8][sig_count * 64-byte slots][message].
const signatureSlotSize = ed25519.SignatureSize

// SignTransaction signs a raw unsigned transaction in Solana wire format
// and returns a new buffer with the signature spliced into the first slot.
//
// The output is byte-identical in length to the input; only the 64 bytes
// of slot 0 are mutated. The relay signs as the sole signer: transactions
// with additional signature slots keep those slots untouched, and picking
// a slot other than 0 for partially pre-signed transactions is not
// supported.
func (m *Manager) SignTransaction(raw []byte) ([]byte, error) {
	if m.priv == nil {
		return nil, ErrNotConfigured
	}
	if len(raw) < 1 {
		return nil, fmt.Errorf("transaction too short: %d bytes", len(raw))
	}

	sigCount := int(raw[0])
	if sigCount < 1 {
		return nil, fmt.Errorf("transaction has no signature slots")
	}

	messageOffset := 1 + sigCount*signatureSlotSize
	if len(raw) <= messageOffset {
		return nil, fmt.Errorf("transaction truncated: %d bytes, message expected at offset %d", len(raw), messageOffset)
	}

	sig, err := m.sign(raw[messageOffset:])
	if err != nil {
		return nil, err
	}

	signed := make([]byte, len(raw))
	copy(signed, raw)
	copy(signed[1:1+signatureSlotSize], sig)
	return signed, nil
}

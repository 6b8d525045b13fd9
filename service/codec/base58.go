// Package codec implements the base58 encoding used for Solana account and
// signature string representations. It is a pure big-number encode/decode
// pair with no dependencies beyond the standard library.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// alphabet is the Bitcoin/Solana base58 alphabet. Note the absence of
// 0, O, I and l, which are visually ambiguous.
const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ErrInvalidCharacter indicates the input contains a rune outside the
// base58 alphabet.
var ErrInvalidCharacter = errors.New("invalid base58 character")

// Decode converts a base58 string to raw bytes.
// Leading '1' characters map to leading zero bytes.
func Decode(s string) ([]byte, error) {
	// Accumulate into a little-endian base-256 buffer.
	buf := make([]byte, 0, len(s))
	for i, r := range s {
		d := strings.IndexRune(alphabet, r)
		if d < 0 {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidCharacter, r, i)
		}
		carry := d
		for j := range buf {
			carry += int(buf[j]) * 58
			buf[j] = byte(carry & 0xff)
			carry >>= 8
		}
		for carry > 0 {
			buf = append(buf, byte(carry&0xff))
			carry >>= 8
		}
	}

	// Each leading '1' is a genuine leading zero byte.
	zeros := 0
	for _, r := range s {
		if r != '1' {
			break
		}
		zeros++
	}

	out := make([]byte, zeros+len(buf))
	for i, b := range buf {
		out[len(out)-1-i] = b
	}
	return out, nil
}

// Encode converts raw bytes to a base58 string.
// Leading zero bytes map to leading '1' characters.
func Encode(b []byte) string {
	// Accumulate into little-endian base-58 digits.
	digits := make([]byte, 0, len(b)*138/100+1)
	for _, c := range b {
		carry := int(c)
		for j := range digits {
			carry += int(digits[j]) << 8
			digits[j] = byte(carry % 58)
			carry /= 58
		}
		for carry > 0 {
			digits = append(digits, byte(carry%58))
			carry /= 58
		}
	}

	zeros := 0
	for _, c := range b {
		if c != 0 {
			break
		}
		zeros++
	}

	var sb strings.Builder
	sb.Grow(zeros + len(digits))
	for i := 0; i < zeros; i++ {
		sb.WriteByte('1')
	}
	for i := len(digits) - 1; i >= 0; i-- {
		sb.WriteByte(alphabet[digits[i]])
	}
	return sb.String()
}

package appointments

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet omits characters that read ambiguously over the phone
// (0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const codeLength = 10

// maxUnbiasedByte is the largest multiple of the alphabet size below
// 256; bytes at or above it are rejected so every character is drawn
// uniformly.
const maxUnbiasedByte = 256 - (256 % len(codeAlphabet))

// NewConfirmationCode generates the opaque client-facing identifier for
// an appointment. It carries no internal meaning and is safe to print on
// receipts and emails.
func NewConfirmationCode() (string, error) {
	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength)
	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("appointments: generate confirmation code: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == codeLength {
				break
			}
		}
	}
	return string(out), nil
}

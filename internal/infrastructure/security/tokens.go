package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const defaultTokenBytes = 32

// OpaqueTokens issues random URL-safe verification tokens.
type OpaqueTokens struct {
	n int
}

func NewOpaqueTokens(bytesLen int) *OpaqueTokens {
	if bytesLen <= 0 {
		bytesLen = defaultTokenBytes
	}
	return &OpaqueTokens{n: bytesLen}
}

func (g *OpaqueTokens) NewToken() (string, error) {
	if g.n <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, g.n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

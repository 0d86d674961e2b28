// Package artifact renders transient download exports, signs links to them
// and reclaims them once they expire.
package artifact

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid download signature")
	ErrLinkExpired      = errors.New("download link expired")
	ErrNotFound         = errors.New("artifact not found")
)

// Signer generates and validates HMAC-SHA256 signatures over fileName:expiresUnix.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("artifact signing secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the hex signature for fileName valid until expires.
func (s *Signer) Sign(fileName string, expires time.Time) string {
	return s.sign(fileName, expires.Unix())
}

func (s *Signer) sign(fileName string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", fileName, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature first so an attacker cannot probe expiry of forged links.
func (s *Signer) Verify(fileName, expires, signature string, now time.Time) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal([]byte(s.sign(fileName, exp)), []byte(signature)) {
		return ErrInvalidSignature
	}
	if now.Unix() >= exp {
		return ErrLinkExpired
	}
	return nil
}

package security

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	signerSeparator = ":"
	defaultSalt     = "bankid.transaction"
)

var (
	ErrBadSignature     = errors.New("security: bad signature")
	ErrSignatureExpired = errors.New("security: signature expired")
)

// TimestampSigner appends a timestamp and an HMAC-SHA256 signature to values
// as value:timestamp:signature, with the timestamp in base 36 unix seconds.
type TimestampSigner struct {
	key []byte
	now func() time.Time
}

type SignerOption func(*signerConfig)

type signerConfig struct {
	salt string
	now  func() time.Time
}

// WithSalt namespaces signatures so values signed for one purpose do not
// verify for another.
func WithSalt(salt string) SignerOption {
	return func(cfg *signerConfig) {
		if trimmed := strings.TrimSpace(salt); trimmed != "" {
			cfg.salt = trimmed
		}
	}
}

func WithSignerClock(now func() time.Time) SignerOption {
	return func(cfg *signerConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

func NewTimestampSigner(secret []byte, opts ...SignerOption) (*TimestampSigner, error) {
	secret = bytes.TrimSpace(secret)
	if len(secret) == 0 {
		return nil, fmt.Errorf("security: signer secret is required")
	}
	cfg := signerConfig{salt: defaultSalt, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, []byte(cfg.salt), []byte("signer")), key); err != nil {
		return nil, fmt.Errorf("security: derive signer key: %w", err)
	}
	return &TimestampSigner{key: key, now: cfg.now}, nil
}

func (s *TimestampSigner) Sign(value string) string {
	stamped := value + signerSeparator + strconv.FormatInt(s.now().Unix(), 36)
	return stamped + signerSeparator + s.signature(stamped)
}

// Unsign verifies signed and returns the original value. A maxAge of zero
// or less disables the age check.
func (s *TimestampSigner) Unsign(signed string, maxAge time.Duration) (string, error) {
	cut := strings.LastIndex(signed, signerSeparator)
	if cut < 0 {
		return "", ErrBadSignature
	}
	stamped, signature := signed[:cut], signed[cut+1:]
	if !hmac.Equal([]byte(signature), []byte(s.signature(stamped))) {
		return "", ErrBadSignature
	}

	cut = strings.LastIndex(stamped, signerSeparator)
	if cut < 0 {
		return "", ErrBadSignature
	}
	value, encodedTimestamp := stamped[:cut], stamped[cut+1:]
	timestamp, err := strconv.ParseInt(encodedTimestamp, 36, 64)
	if err != nil {
		return "", ErrBadSignature
	}
	if maxAge > 0 {
		age := s.now().Sub(time.Unix(timestamp, 0))
		if age > maxAge {
			return "", fmt.Errorf("%w: age %s exceeds %s", ErrSignatureExpired, age.Truncate(time.Second), maxAge)
		}
	}
	return value, nil
}

func (s *TimestampSigner) signature(value string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

package subsonic

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// saltBytes is the number of random bytes drawn per salt (16 hex chars).
const saltBytes = 8

// AuthToken is a salted password digest valid for a single request.
type AuthToken struct {
	Token     string // 32 lowercase hex chars
	Salt      string // 16 lowercase hex chars unless supplied by the caller
	Username  string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// IsExpired reports whether the token has an expiry that has passed.
func (t *AuthToken) IsExpired() bool {
	return t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt)
}

// GenerateToken computes md5(password+salt) for cfg.
//
// It returns nil and no error when cfg authenticates with an API key. An empty salt draws a random one,
// so repeated calls never produce the same token.
func GenerateToken(cfg Config, salt string) (*AuthToken, error) {
	if cfg.UsesAPIKey() {
		return nil, nil
	}

	if salt == "" {
		s, err := newSalt()
		if err != nil {
			return nil, err
		}
		salt = s
	}

	return &AuthToken{
		Token:     hashToken(cfg.Password, salt),
		Salt:      salt,
		Username:  cfg.Username,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// VerifyToken reports whether token is the digest of cfg's password and salt.
func VerifyToken(cfg Config, token, salt string) bool {
	want := hashToken(cfg.Password, salt)
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

// AuthParams merges token auth (u, t, s) with the protocol metadata (v, c, f).
func AuthParams(token *AuthToken, version, clientName, format string) url.Values {
	v := protocolParams(version, clientName, format)
	v.Set("u", token.Username)
	v.Set("t", token.Token)
	v.Set("s", token.Salt)
	return v
}

// KeyParams merges API-key auth (u, k) with the protocol metadata (v, c, f).
func KeyParams(username, key, version, clientName, format string) url.Values {
	v := protocolParams(version, clientName, format)
	v.Set("u", username)
	v.Set("k", key)
	return v
}

func protocolParams(version, clientName, format string) url.Values {
	v := url.Values{}
	v.Set("v", version)
	v.Set("c", clientName)
	if format != "" {
		v.Set("f", format)
	}
	return v
}

func hashToken(password, salt string) string {
	sum := md5.Sum([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

func newSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

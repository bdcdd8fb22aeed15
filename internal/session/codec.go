// Package session mints and verifies signed session tokens and moves them
// between HTTP requests and responses.
//
// A token is base64(payload) + "." + hex(HMAC-SHA256(secret, payload)) where
// payload is the JSON encoding of the identity fields plus an issue time and
// a random token id, so no two minted tokens are alike. Payloads holding only
// the identity fields are still accepted. Tokens carry no expiry; lifetime is
// bounded by the cookie Max-Age and by the revocation denylist.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"leads/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Verification failures. They are for server-side logging only and must not
// be surfaced to clients.
var (
	ErrNoToken           = errors.New("no session token")
	ErrMalformedToken    = errors.New("malformed session token")
	ErrSignatureMismatch = errors.New("session token signature mismatch")
	ErrIncompleteClaims  = errors.New("session token missing identity fields")
)

var tokenEncoding = base64.StdEncoding.Strict()

// claims is the signed payload. The identity fields are flattened into it.
type claims struct {
	models.Identity
	IssuedAt int64  `json:"iat,omitempty"`
	TokenID  string `json:"jti,omitempty"`
}

// Codec signs and verifies session tokens with a single secret.
type Codec struct {
	secret []byte
	now    func() time.Time
	newID  func() string
}

// NewCodec returns a Codec for secret. Whether the secret is acceptable for
// the environment is decided by configuration validation, not here.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	return &Codec{secret: []byte(secret), now: time.Now, newID: uuid.NewString}, nil
}

func (c *Codec) sign(payload []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Mint serializes id with a fresh issue time and token id and signs it.
// Minting the same identity twice yields different tokens, so revoking one
// session never affects a later login.
func (c *Codec) Mint(id models.Identity) (string, error) {
	payload, err := json.Marshal(claims{
		Identity: id,
		IssuedAt: c.now().Unix(),
		TokenID:  c.newID(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode identity: %w", err)
	}
	return tokenEncoding.EncodeToString(payload) + "." + c.sign(payload), nil
}

// Parse verifies token and returns the identity it carries, or an error
// describing why it was rejected.
func (c *Codec) Parse(token string) (*models.Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	encoded, sig, ok := splitToken(token)
	if !ok {
		return nil, ErrMalformedToken
	}

	payload, err := tokenEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	// Compare the hex text itself so that any change to the presented
	// signature, including letter case, is a mismatch.
	expected := c.sign(payload)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return nil, ErrSignatureMismatch
	}

	var cl claims
	if err := json.Unmarshal(payload, &cl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !cl.Identity.Complete() {
		return nil, ErrIncompleteClaims
	}
	id := cl.Identity
	return &id, nil
}

// Verify returns the identity carried by token, or nil for any token that is
// missing, malformed, forged or incomplete.
func (c *Codec) Verify(token string) *models.Identity {
	id, err := c.Parse(token)
	if err != nil {
		return nil
	}
	return id
}

// Signature returns the signature segment of a well-formed token, or "" if
// token does not have exactly two non-empty parts.
func Signature(token string) string {
	_, sig, ok := splitToken(token)
	if !ok {
		return ""
	}
	return sig
}

func splitToken(token string) (payload, sig string, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

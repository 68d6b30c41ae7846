// Package playback implements the signed, time-limited capability tokens that
// gate video streaming, and the access policy that consumes them.
package playback

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TokenTTL bounds how long a minted playback token stays valid.
const TokenTTL = 30 * time.Minute

// delimiter separates token fields. Identifiers containing it are rejected at
// mint time so the parsed field count stays unambiguous.
const delimiter = ":"

// signatureLen is the number of hex characters kept from the payload digest.
// 64 bits keeps tokens short; widening it invalidates outstanding tokens.
const signatureLen = 16

// Codec mints and verifies playback tokens. A token binds a video, a user and
// an expiry into one opaque string; nothing is stored server-side.
type Codec struct {
	secret []byte
}

// NewCodec constructs a Codec signing with the provided secret.
func NewCodec(secret []byte) *Codec {
	if len(secret) == 0 {
		panic("playback: signing secret must not be empty")
	}
	return &Codec{secret: secret}
}

// Mint issues a token granting userID playback of videoID until now+TokenTTL.
func (c *Codec) Mint(videoID, userID string, now time.Time) (string, error) {
	if videoID == "" || userID == "" {
		return "", errors.New("playback: video id and user id are required")
	}
	if strings.Contains(videoID, delimiter) || strings.Contains(userID, delimiter) {
		return "", fmt.Errorf("playback: identifiers must not contain %q", delimiter)
	}

	expiry := now.Add(TokenTTL).Unix()
	payload := videoID + delimiter + userID + delimiter + strconv.FormatInt(expiry, 10)
	raw := payload + delimiter + c.sign(payload)

	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// Verify reports whether token grants userID playback of videoID at time now.
// It fails closed: any decode error, malformed payload, identity mismatch,
// expired window, or signature mismatch yields false. The signature is
// recomputed from the decoded fields, never from the caller's expectations, so
// a forged payload with matching outer ids but a tampered expiry cannot pass.
func (c *Codec) Verify(token, videoID, userID string, now time.Time) bool {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}

	parts := strings.Split(string(raw), delimiter)
	if len(parts) != 4 {
		return false
	}
	tokenVideoID, tokenUserID, expiryField, signature := parts[0], parts[1], parts[2], parts[3]

	if tokenVideoID != videoID || tokenUserID != userID {
		return false
	}

	expiry, err := strconv.ParseInt(expiryField, 10, 64)
	if err != nil {
		return false
	}
	if now.Unix() > expiry {
		return false
	}

	payload := tokenVideoID + delimiter + tokenUserID + delimiter + expiryField
	expected := c.sign(payload)

	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}

func (c *Codec) sign(payload string) string {
	digest := sha256.Sum256([]byte(payload + delimiter + string(c.secret)))
	return hex.EncodeToString(digest[:])[:signatureLen]
}

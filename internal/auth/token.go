package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EditClaims binds an edit token to one comment and one identity hash. The
// token is handed out once, when the comment is created, and spares the
// author from resubmitting their contact fields to edit or delete.
type EditClaims struct {
	CommentID int64  `json:"cid"`
	Hash      string `json:"hash"`
	Exp       int64  `json:"exp"`
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

func IssueEditToken(secret []byte, claims EditClaims) (string, error) {
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	signature := sign(secret, payload)
	return payload + "." + signature, nil
}

func ParseEditToken(secret []byte, token string) (EditClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return EditClaims{}, ErrInvalidToken
	}
	payload := parts[0]
	signature := parts[1]

	expected := sign(secret, payload)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return EditClaims{}, ErrInvalidToken
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return EditClaims{}, ErrInvalidToken
	}

	var claims EditClaims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return EditClaims{}, ErrInvalidToken
	}
	if claims.CommentID == 0 || claims.Hash == "" || claims.Exp == 0 {
		return EditClaims{}, ErrInvalidToken
	}
	if time.Now().Unix() >= claims.Exp {
		return EditClaims{}, ErrExpiredToken
	}
	return claims, nil
}

func sign(secret []byte, payload string) string {
	sum := hmac.New(sha256.New, secret)
	_, _ = sum.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(sum.Sum(nil))
}

// Package auth issues and verifies the bot's two JWT flavours:
// external-account tokens for the QA endpoint, and admin tokens for
// the admin HTTP surface. Both use RS256.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go/v4"

	"github.com/sharingcloud/prbot/prerr"
)

// ExternalClaims are the claims carried by an external-account token.
type ExternalClaims struct {
	IssuedAt int64  `json:"iat"`
	Issuer   string `json:"iss"`
}

// AdminClaims are the claims carried by an admin token.
type AdminClaims struct {
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

type externalJWTClaims struct {
	jwt.StandardClaims
}

type adminJWTClaims struct {
	jwt.StandardClaims
}

// IssueExternal mints a token for an external account identified by
// username, signed with its private key.
func IssueExternal(privateKeyPEM []byte, username string) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return "", prerr.Crypto("parse external account private key", err)
	}
	now := time.Now()
	claims := externalJWTClaims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt: jwt.At(now),
			Issuer:   username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", prerr.Crypto("sign external account token", err)
	}
	return signed, nil
}

// VerifyExternal checks tokenString's signature against publicKeyPEM
// and returns the carried claims.
func VerifyExternal(publicKeyPEM []byte, tokenString string) (ExternalClaims, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return ExternalClaims{}, prerr.Crypto("parse external account public key", err)
	}

	var claims externalJWTClaims
	_, err = jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return ExternalClaims{}, prerr.Crypto("verify external account token", err)
	}

	return ExternalClaims{
		IssuedAt: claimTime(claims.IssuedAt),
		Issuer:   claims.Issuer,
	}, nil
}

// IssueAdmin mints an admin token signed with the server's admin
// private key, valid for ttl.
func IssueAdmin(adminPrivateKeyPEM []byte, ttl time.Duration) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(adminPrivateKeyPEM)
	if err != nil {
		return "", prerr.Crypto("parse admin private key", err)
	}
	now := time.Now()
	claims := adminJWTClaims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  jwt.At(now),
			ExpiresAt: jwt.At(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", prerr.Crypto("sign admin token", err)
	}
	return signed, nil
}

// VerifyAdmin checks tokenString's signature and expiry against the
// server's admin public key.
func VerifyAdmin(adminPublicKeyPEM []byte, tokenString string) (AdminClaims, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(adminPublicKeyPEM)
	if err != nil {
		return AdminClaims{}, prerr.Crypto("parse admin public key", err)
	}

	var claims adminJWTClaims
	_, err = jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return AdminClaims{}, prerr.Crypto("verify admin token", err)
	}

	return AdminClaims{
		IssuedAt:  claimTime(claims.IssuedAt),
		ExpiresAt: claimTime(claims.ExpiresAt),
	}, nil
}

// UnverifiedIssuer extracts the "iss" claim from tokenString without
// checking its signature, so the caller can look up which account's
// public key to verify against. The token must still be verified via
// VerifyExternal before being trusted.
func UnverifiedIssuer(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return "", prerr.Crypto("malformed token", nil)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", prerr.Crypto("decode token payload", err)
	}
	var claims struct {
		Issuer string `json:"iss"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", prerr.Crypto("decode token claims", err)
	}
	return claims.Issuer, nil
}

func claimTime(t *jwt.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}

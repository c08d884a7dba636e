package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/auth"
)

func generateKeyPair(t *testing.T) (privatePEM, publicPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privateBytes := x509.MarshalPKCS1PrivateKey(key)
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privateBytes})

	publicBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicBytes})
	return privatePEM, publicPEM
}

func TestIssueAndVerifyExternalRoundTrips(t *testing.T) {
	priv, pub := generateKeyPair(t)

	token, err := auth.IssueExternal(priv, "alice")
	require.NoError(t, err)

	claims, err := auth.VerifyExternal(pub, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Issuer)
	assert.NotZero(t, claims.IssuedAt)
}

func TestVerifyExternalRejectsWrongKey(t *testing.T) {
	priv, _ := generateKeyPair(t)
	_, otherPub := generateKeyPair(t)

	token, err := auth.IssueExternal(priv, "alice")
	require.NoError(t, err)

	_, err = auth.VerifyExternal(otherPub, token)
	assert.Error(t, err)
}

func TestIssueAndVerifyAdminRoundTrips(t *testing.T) {
	priv, pub := generateKeyPair(t)

	token, err := auth.IssueAdmin(priv, time.Hour)
	require.NoError(t, err)

	claims, err := auth.VerifyAdmin(pub, token)
	require.NoError(t, err)
	assert.NotZero(t, claims.IssuedAt)
	assert.Greater(t, claims.ExpiresAt, claims.IssuedAt)
}

func TestVerifyAdminRejectsExpiredToken(t *testing.T) {
	priv, pub := generateKeyPair(t)

	token, err := auth.IssueAdmin(priv, -time.Hour)
	require.NoError(t, err)

	_, err = auth.VerifyAdmin(pub, token)
	assert.Error(t, err)
}

func TestUnverifiedIssuerExtractsIssuerWithoutVerifying(t *testing.T) {
	priv, _ := generateKeyPair(t)

	token, err := auth.IssueExternal(priv, "bob")
	require.NoError(t, err)

	issuer, err := auth.UnverifiedIssuer(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", issuer)
}

func TestUnverifiedIssuerRejectsMalformedToken(t *testing.T) {
	_, err := auth.UnverifiedIssuer("not-a-jwt")
	assert.Error(t, err)
}

// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/platform/sec"
)

func newService(t *testing.T) *sec.TokenService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return sec.NewTokenServiceFromKeys(key, &key.PublicKey, "kanko.test")
}

/*
TestTokenService_RoundTrip verifies a signed token verifies and keeps its claims.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newService(t)

	token, err := service.GenerateAccessToken("ops-1", "Night shift", sec.RoleOperator, time.Hour)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.OperatorID)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "kanko.test", claims.Issuer)
}

/*
TestTokenService_RejectsForeignKey ensures tokens signed elsewhere fail verification.
*/
func TestTokenService_RejectsForeignKey(t *testing.T) {
	signer := newService(t)
	verifier := newService(t)

	token, err := signer.GenerateAccessToken("ops-1", "", sec.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.Error(t, err)
}

/*
TestTokenService_VerifyOnly checks that a public-key-only service cannot sign.
*/
func TestTokenService_VerifyOnly(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	service := sec.NewTokenServiceFromKeys(nil, &key.PublicKey, "kanko.test")
	_, err = service.GenerateAccessToken("ops-1", "", sec.RoleViewer, time.Minute)
	assert.ErrorIs(t, err, sec.ErrSigningDisabled)
}

func TestUserRole_AtLeast(t *testing.T) {
	assert.True(t, sec.RoleAdmin.AtLeast(sec.RoleOperator))
	assert.True(t, sec.RoleOperator.AtLeast(sec.RoleViewer))
	assert.False(t, sec.RoleViewer.AtLeast(sec.RoleOperator))
	assert.False(t, sec.UserRole("guest").AtLeast(sec.RoleViewer))
}

func TestFingerprint(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := sec.Fingerprint("Acme", at)
	assert.Len(t, first, 64)
	assert.Equal(t, first, sec.Fingerprint("Acme", at))
	assert.NotEqual(t, first, sec.Fingerprint("Acme", at.Add(time.Nanosecond)))
	assert.NotEqual(t, first, sec.Fingerprint("Acme2", at))
}

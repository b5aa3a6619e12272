package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, exp, err := svc.GenerateAccessToken("staff-7", "Rahim", []string{"cashier"})
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-7", user.UserID)
	assert.Equal(t, "Rahim", user.Name)
	assert.Equal(t, []string{"cashier"}, user.Roles)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	token, _, err := svc.GenerateAccessToken("staff-7", "", nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		svc   *JWTService
		token string
	}{
		{"wrong secret", NewJWTService(DefaultJWTConfig("other")), token},
		{"wrong issuer", NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "elsewhere"}), token},
		{"garbage", svc, "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService(JWTConfig{Secret: "s", Issuer: "clinicledger", AccessTokenTTL: -time.Minute})
	// A negative TTL falls back to the default, so build an expired one directly.
	svc.config.AccessTokenTTL = -time.Minute
	token, _, err := svc.GenerateAccessToken("staff-1", "", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

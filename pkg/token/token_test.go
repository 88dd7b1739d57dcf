package token

import (
	"testing"
	"time"

	"github.com/LeoCommon/cellgw/pkg/log"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims gojwt.Claims) string {
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestValidate(t *testing.T) {
	log.Init(true)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	valid := sign(t, gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour))})
	assert.NoError(t, ValidateAt(valid, now))

	expired := sign(t, gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(now.Add(-time.Minute))})
	assert.ErrorIs(t, ValidateAt(expired, now), gojwt.ErrTokenExpired)

	almost := sign(t, gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(now.Add(2 * time.Second))})
	assert.ErrorIs(t, ValidateAt(almost, now), gojwt.ErrTokenExpired)

	early := sign(t, gojwt.RegisteredClaims{
		NotBefore: gojwt.NewNumericDate(now.Add(time.Hour)),
		ExpiresAt: gojwt.NewNumericDate(now.Add(2 * time.Hour)),
	})
	assert.ErrorIs(t, ValidateAt(early, now), gojwt.ErrTokenNotValidYet)

	noExpiry := sign(t, gojwt.MapClaims{"sub": "gateway"})
	assert.ErrorIs(t, ValidateAt(noExpiry, now), gojwt.ErrTokenRequiredClaimMissing)
}

func TestValidateMalformed(t *testing.T) {
	log.Init(true)

	assert.ErrorIs(t, Validate(""), ErrTokenMissing)
	assert.Error(t, Validate("not-a-token"))
}

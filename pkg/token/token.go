package token

import (
	"errors"
	"time"

	"github.com/LeoCommon/cellgw/pkg/log"
	gojwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ExpiryOffset treats tokens about to expire as expired, there is clock skew
// and the request still has to travel over the air
const ExpiryOffset = 5 * time.Second

var (
	ErrTokenMissing = errors.New("empty/missing token")
	ErrTokenExpired = gojwt.ErrTokenExpired
)

// Validate checks the time claims of a bearer token without verifying its signature,
// the server does that. It only keeps us from spending airtime on a dead token.
func Validate(tokenString string) error {
	return ValidateAt(tokenString, time.Now())
}

func ValidateAt(tokenString string, now time.Time) error {
	if len(tokenString) == 0 {
		return ErrTokenMissing
	}

	parser := gojwt.NewParser()

	// Try parsing in MapClaims mode
	token, _, err := parser.ParseUnverified(tokenString, gojwt.MapClaims{})
	if err != nil {
		token, _, err = parser.ParseUnverified(tokenString, &gojwt.RegisteredClaims{})
		if err != nil {
			log.Debug("token could not be parsed", zap.Error(err))
			return err
		}
	}

	// Check the optional not before field
	if startDate, err := token.Claims.GetNotBefore(); err == nil && startDate != nil {
		if startDate.After(now) {
			return gojwt.ErrTokenNotValidYet
		}
	}

	// The expiration time is mandatory for us
	expirationDate, err := token.Claims.GetExpirationTime()
	if err != nil {
		return err
	}
	if expirationDate == nil {
		return gojwt.ErrTokenRequiredClaimMissing
	}

	if expirationDate.Before(now.Add(ExpiryOffset)) {
		return ErrTokenExpired
	}

	return nil
}

package securestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var errNoExpClaim = errors.New("token has no exp claim")

// expiryFromToken reads the exp claim of an access token without verifying
// its signature; the client only needs the timestamp.
func expiryFromToken(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if exp == nil {
		return time.Time{}, errNoExpClaim
	}
	return exp.Time, nil
}

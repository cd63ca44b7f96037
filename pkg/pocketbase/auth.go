package pocketbase

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsAuthStoreValid reports whether the token is a JWT whose "exp" claim is
// still in the future. The signature is not verified; only the server can
// do that.
func (c *Client) IsAuthStoreValid() bool {
	return tokenValidAt(c.Token(), time.Now())
}

func tokenValidAt(token string, now time.Time) bool {
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(now)
}

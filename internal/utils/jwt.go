package utils // package utils provides token minting and input normalisation helpers

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Staff roles carried in the "role" claim.
const (
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken signs an HS256 JWT for a staff member with the sub, role,
// exp and iat claims. The sub claim is a decimal string so the JWT
// middleware can pass it through unchanged.
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims carried by every bearer token. The subject is the user id
// and the JWT ID names the access_tokens row that keeps the token alive.
type Claims struct {
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed token with the metadata needed to persist it.
type IssuedToken struct {
	Plain     string
	ID        string
	UserID    uint
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a new token for userID.
func (i *Issuer) Issue(userID uint) (IssuedToken, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	id := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{Plain: signed, ID: id, UserID: userID, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature and expiry and returns the user id and token id.
func (i *Issuer) Parse(tokenString string) (uint, string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return 0, "", ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 || claims.ID == "" {
		return 0, "", ErrInvalidToken
	}
	return uint(userID), claims.ID, nil
}

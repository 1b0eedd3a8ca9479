package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer は発行するトークンの iss クレームです。
const Issuer = "stock-alerts"

// ErrNoSubject は userID が0のときに返されます。
var ErrNoSubject = errors.New("token subject must be a positive user id")

// Generator は読み取りAPI用のアクセストークンを発行します。
type Generator interface {
	GenerateToken(userID uint) (string, error)
}

type generator struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
	newID      func() string
}

// NewGenerator は HS256 で署名する Generator を生成します。
func NewGenerator(secret string, expiration time.Duration) Generator {
	return &generator{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// GenerateToken は sub にユーザーID、jti に発行ごとのUUIDを持つトークンを発行します。
// sub はミドルウェアが数値として読むため RegisteredClaims ではなく MapClaims を使います。
func (g *generator) GenerateToken(userID uint) (string, error) {
	if userID == 0 {
		return "", ErrNoSubject
	}
	now := g.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": Issuer,
		"jti": g.newID(),
		"iat": now.Unix(),
		"exp": now.Add(g.expiration).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token for user %d: %w", userID, err)
	}
	return signed, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// JWTAuthProvider validates HS256 bearer tokens issued by the account
// service. Claims carry the user id, display name and subscription tier.
type JWTAuthProvider struct {
	secret []byte
	logger internal.Logger
}

type userClaims struct {
	Name string `json:"name"`
	Tier string `json:"tier"`
	jwt.RegisteredClaims
}

func NewJWTAuthProvider(secret string, logger internal.Logger) *JWTAuthProvider {
	return &JWTAuthProvider{secret: []byte(secret), logger: logger}
}

func (a *JWTAuthProvider) ValidateToken(ctx context.Context, token string) (*internal.User, error) {
	claims := &userClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		a.logger.Warnf("jwt validation failed: %v", err)
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	tier := claims.Tier
	if tier == "" {
		tier = TierFree
	}
	return &internal.User{ID: claims.Subject, Token: token, Name: claims.Name, Tier: tier}, nil
}

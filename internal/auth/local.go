package auth

import (
	"context"
	"errors"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// LocalAuthProvider accepts a single fixed token; development only.
type LocalAuthProvider struct {
	Token  string
	logger internal.Logger
}

func NewLocalAuthProvider(token string, logger internal.Logger) *LocalAuthProvider {
	return &LocalAuthProvider{Token: token, logger: logger}
}

func (a *LocalAuthProvider) ValidateToken(ctx context.Context, token string) (*internal.User, error) {
	if token == a.Token {
		return &internal.User{ID: "u1", Token: a.Token, Name: "Demo User", Tier: TierPremium}, nil
	}
	a.logger.Warnf("invalid token: %s", token)
	return nil, errors.New("invalid token")
}

package auth

import (
	"context"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

type Provider interface {
	ValidateToken(ctx context.Context, token string) (*internal.User, error)
}

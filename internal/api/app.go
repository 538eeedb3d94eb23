package api

import (
	"github.com/gin-gonic/gin"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/crypto"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/report"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/storage"
)

// App is the dependency surface handlers pull from. Keeping it an interface
// lets handler tests swap in a minimal fixture.
type App interface {
	Logger() internal.Logger
	Reports() *report.Service
	Entries() storage.EntryRepository
	Events() storage.EventRepository
	Cipher() *crypto.Service
}

// currentUser pulls the authenticated user set by the auth middleware.
func currentUser(c *gin.Context) (*internal.User, bool) {
	v, ok := c.Get("user")
	if !ok {
		return nil, false
	}
	user, ok := v.(*internal.User)
	return user, ok
}

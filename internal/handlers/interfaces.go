package handlers

import (
	"context"
	"time"

	"github.com/vidgate/backend/internal/auth"
	"github.com/vidgate/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// VideoStore captures the lookups required by the video handlers.
type VideoStore interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// CatalogSelector yields the videos eligible for a dashboard view.
type CatalogSelector interface {
	Dashboard(ctx context.Context) ([]models.Video, error)
}

// SessionManager issues, verifies and revokes bearer session tokens.
type SessionManager interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
	Verify(token string) (auth.Session, error)
	Revoke(token string) error
}

// PlaybackTokens mints and verifies per-(video,user) playback capabilities.
type PlaybackTokens interface {
	Mint(videoID, userID string, now time.Time) (string, error)
	Verify(token, videoID, userID string, now time.Time) bool
}

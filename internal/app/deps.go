package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidgate/backend/internal/auth"
	"github.com/vidgate/backend/internal/catalog"
	"github.com/vidgate/backend/internal/config"
	"github.com/vidgate/backend/internal/db"
	"github.com/vidgate/backend/internal/handlers"
	"github.com/vidgate/backend/internal/middleware"
	"github.com/vidgate/backend/internal/playback"
	"github.com/vidgate/backend/internal/repositories"
	"github.com/vidgate/backend/internal/storage"
	"github.com/vidgate/backend/internal/thumbs"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup stops background workers and must be called
// on shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(), error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	selector := catalog.NewSelector(videos)

	cleanup := func() {}
	if cfg.ObjectStore.Bucket != "" {
		store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("configure thumbnail storage: %w", err)
		}
		mirror := thumbs.NewMirror(store, videos, thumbs.MirrorConfig{}, logger)
		selector.Mirror = mirror
		cleanup = mirror.Close
	}

	return handlers.Dependencies{
		Users:          users,
		Videos:         videos,
		Catalog:        selector,
		Sessions:       auth.NewManager([]byte(cfg.Secret), cfg.SessionTTL, auth.NewInMemoryRevocationStore()),
		PlaybackTokens: playback.NewCodec([]byte(cfg.Secret)),
		LoginLimiter:   middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
	}, cleanup, nil
}

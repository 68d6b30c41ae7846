package repositories

import (
	"context"

	"github.com/vidgate/backend/internal/models"
)

// VideoRepository defines the data access contract for catalog videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindActive(ctx context.Context, limit int) ([]models.Video, error)
	Count(ctx context.Context) (int64, error)
	UpdateThumbnailURL(ctx context.Context, videoID, thumbnailURL string) error
}

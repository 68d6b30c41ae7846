// Package catalog decides which videos appear on the dashboard and seeds the
// store with a sample set on first use.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidgate/backend/internal/logging"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/repositories"
)

// DashboardLimit is how many videos a dashboard view exposes.
const DashboardLimit = 2

// sampleVideos is inserted once into an empty store. The upstream thumbnail
// URL embeds the streaming identifier, so it is never stored on the record;
// it only feeds the mirror, which re-hosts the image under the catalog id.
var sampleVideos = []seedVideo{
	{
		video: models.Video{
			Title:       "Introduction to Go Programming",
			Description: "Learn the basics of the Go programming language in this comprehensive tutorial.",
			YouTubeID:   "dQw4w9WgXcQ",
		},
		sourceThumbnail: "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
	},
	{
		video: models.Video{
			Title:       "Advanced Backend API Development",
			Description: "Build production-ready APIs, including authentication and database integration.",
			YouTubeID:   "Z1RJmh_OqeA",
		},
		sourceThumbnail: "https://img.youtube.com/vi/Z1RJmh_OqeA/maxresdefault.jpg",
	},
}

type seedVideo struct {
	video           models.Video
	sourceThumbnail string
}

// ThumbnailMirror schedules re-hosting of a video's public thumbnail.
type ThumbnailMirror interface {
	Enqueue(ctx context.Context, video models.Video) error
}

// Selector picks dashboard videos, seeding the backing store the first time it
// sees it empty.
type Selector struct {
	videos repositories.VideoRepository

	// Mirror, when set, is notified of newly seeded videos so their
	// thumbnails get re-hosted in object storage.
	Mirror ThumbnailMirror

	// seedMu serializes the check-and-seed step so two racing first requests
	// in this process cannot both decide to seed. Cross-process races are
	// absorbed by the store's conflict-tolerant insert.
	seedMu sync.Mutex

	// NowFunc allows tests to pin the clock. Defaults to time.Now.
	NowFunc func() time.Time
}

// NewSelector constructs a Selector over the provided video store.
func NewSelector(videos repositories.VideoRepository) *Selector {
	if videos == nil {
		panic("catalog: video repository must not be nil")
	}
	return &Selector{videos: videos}
}

// Dashboard returns up to DashboardLimit active videos in stable order,
// seeding the sample set first when the store is empty.
func (s *Selector) Dashboard(ctx context.Context) ([]models.Video, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	return s.videos.FindActive(ctx, DashboardLimit)
}

func (s *Selector) ensureSeeded(ctx context.Context) error {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	count, err := s.videos.Count(ctx)
	if err != nil {
		return fmt.Errorf("count videos: %w", err)
	}
	if count > 0 {
		return nil
	}

	ctx, span := logging.StartSpan(ctx, "catalog.seed")
	defer span.End()

	now := s.now()
	for i, sample := range sampleVideos {
		video := sample.video
		video.ID = uuid.NewString()
		video.IsActive = true
		// Distinct timestamps keep the seeded order stable under
		// created_at ordering.
		video.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		if err := s.videos.Create(ctx, video); err != nil {
			return fmt.Errorf("seed sample video: %w", err)
		}
		if s.Mirror != nil {
			// The mirror downloads from the upstream location and rewrites
			// the record's thumbnail to the re-hosted copy.
			source := video
			source.ThumbnailURL = sample.sourceThumbnail
			if err := s.Mirror.Enqueue(ctx, source); err != nil {
				return fmt.Errorf("enqueue thumbnail mirror: %w", err)
			}
		}
	}

	return nil
}

func (s *Selector) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

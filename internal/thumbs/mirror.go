// Package thumbs re-hosts video thumbnails in object storage so the outward
// thumbnail URLs stop referencing the upstream platform.
package thumbs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/vidgate/backend/internal/logging"
	"github.com/vidgate/backend/internal/models"
)

// ObjectStorage persists downloaded thumbnails and returns a public location.
type ObjectStorage interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// ThumbnailUpdater persists the re-hosted thumbnail location for a video.
type ThumbnailUpdater interface {
	UpdateThumbnailURL(ctx context.Context, videoID, thumbnailURL string) error
}

// MirrorConfig controls the concurrency characteristics of the mirror.
type MirrorConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Mirror asynchronously downloads video thumbnails and re-uploads them to
// object storage.
type Mirror struct {
	storage ObjectStorage
	updater ThumbnailUpdater
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration

	jobs   chan mirrorJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type mirrorJob struct {
	video models.Video
}

var errMirrorClosed = errors.New("thumbnail mirror closed")

// NewMirror constructs a background worker pool that mirrors thumbnails.
func NewMirror(storage ObjectStorage, updater ThumbnailUpdater, cfg MirrorConfig, logger *slog.Logger) *Mirror {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Mirror{
		storage: storage,
		updater: updater,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan mirrorJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	m.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go m.worker()
	}

	return m
}

// Enqueue schedules thumbnail mirroring for the supplied video.
func (m *Mirror) Enqueue(ctx context.Context, video models.Video) error {
	if video.ID == "" || video.ThumbnailURL == "" {
		return errors.New("thumbs: video id and thumbnail url are required")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return errMirrorClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return errMirrorClosed
	case m.jobs <- mirrorJob{video: video}:
		return nil
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (m *Mirror) Close() {
	m.once.Do(func() {
		m.cancel()
		close(m.jobs)
	})
	m.wg.Wait()
}

func (m *Mirror) worker() {
	defer m.wg.Done()

	for job := range m.jobs {
		m.handleJob(job)
	}
}

func (m *Mirror) handleJob(job mirrorJob) {
	if m.storage == nil || m.updater == nil {
		m.logger.Error("thumbnail mirror missing dependencies", "hasStorage", m.storage != nil, "hasUpdater", m.updater != nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*m.timeout)
	defer cancel()

	ctx, span := logging.StartSpan(logging.WithLogger(ctx, m.logger), "thumbs.mirror")
	defer span.End()
	logger := logging.FromContext(ctx)

	location, err := m.mirrorOne(ctx, job.video)
	if err != nil {
		logger.Error("thumbnail mirroring failed", "videoId", job.video.ID, "url", job.video.ThumbnailURL, "error", err)
		return
	}

	if err := m.updater.UpdateThumbnailURL(ctx, job.video.ID, location); err != nil {
		logger.Error("record mirrored thumbnail", "videoId", job.video.ID, "error", err)
		return
	}

	logger.Info("thumbnail mirrored", "videoId", job.video.ID, "location", location)
}

func (m *Mirror) mirrorOne(ctx context.Context, video models.Video) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, video.ThumbnailURL, nil)
	if err != nil {
		return "", fmt.Errorf("build thumbnail request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch thumbnail: unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := path.Join("thumbnails", video.ID+path.Ext(video.ThumbnailURL))
	location, err := m.storage.Save(ctx, key, contentType, resp.Body)
	if err != nil {
		return "", fmt.Errorf("store thumbnail: %w", err)
	}

	return location, nil
}

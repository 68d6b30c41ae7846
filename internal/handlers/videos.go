package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/vidgate/backend/internal/logging"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/playback"
	"github.com/vidgate/backend/internal/repositories"
)

// VideoHandler implements the dashboard and the token-gated stream endpoints.
type VideoHandler struct {
	Videos   VideoStore
	Catalog  CatalogSelector
	Sessions SessionManager
	Tokens   PlaybackTokens
	NowFunc  func() time.Time
}

// Dashboard handles GET /dashboard requests. Each listed video carries a
// fresh playback token bound to the requesting subject; the upstream
// streaming identifier never appears in the response.
func (h VideoHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	session, ok := requireSession(ctx, w, r, h.Sessions)
	if !ok {
		return
	}

	videos, err := h.Catalog.Dashboard(ctx)
	if err != nil {
		logger.Error("dashboard selection failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load dashboard"})
		return
	}

	now := h.now()
	items := make([]dashboardVideo, 0, len(videos))
	for _, video := range videos {
		token, err := h.Tokens.Mint(video.ID, session.Subject, now)
		if err != nil {
			logger.Error("failed to mint playback token", "error", err, "videoId", video.ID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to prepare playback"})
			return
		}
		items = append(items, dashboardVideo{
			VideoID:       video.ID,
			Title:         video.Title,
			Description:   video.Description,
			ThumbnailURL:  video.ThumbnailURL,
			CreatedAt:     video.CreatedAt.UTC().Format(time.RFC3339),
			PlaybackToken: token,
		})
	}

	respondJSON(ctx, w, http.StatusOK, dashboardResponse{Videos: items, Count: len(items)})
}

// Stream handles GET /video/{id}/stream requests, revealing the masked embed
// reference only after the access policy grants playback.
func (h VideoHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	session, ok := requireSession(ctx, w, r, h.Sessions)
	if !ok {
		return
	}

	videoID := r.PathValue("id")
	token := r.URL.Query().Get("token")

	video, found, err := h.lookupVideo(ctx, videoID)
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load video"})
		return
	}

	policy := playback.Policy{Tokens: h.Tokens}
	decision := policy.Authorize(videoRef(video, found), videoID, session.Subject, token, h.now())

	switch decision {
	case playback.Granted:
		embedURL := video.EmbedURL()
		respondJSON(ctx, w, http.StatusOK, streamResponse{
			VideoID:   videoID,
			Title:     video.Title,
			EmbedURL:  embedURL,
			EmbedHTML: renderEmbedHTML(video.Title, embedURL),
		})
	case playback.DeniedMissingToken:
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "playback token is required"})
	case playback.DeniedNotFound:
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
	case playback.DeniedInactive:
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "video is not available"})
	default:
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired playback token"})
	}
}

// Embed handles GET /video/{id}/embed requests. There is no bearer session
// here; the playback token and subject arrive as query parameters so a
// WebView can load the page directly.
func (h VideoHandler) Embed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	videoID := r.PathValue("id")
	token := r.URL.Query().Get("token")
	userID := r.URL.Query().Get("user_id")

	if token == "" || userID == "" {
		respondHTML(w, http.StatusUnauthorized, accessDeniedPage("Missing credentials"))
		return
	}

	video, found, err := h.lookupVideo(ctx, videoID)
	if err != nil {
		respondHTML(w, http.StatusInternalServerError, accessDeniedPage("Something went wrong"))
		return
	}
	if !found || !video.IsActive {
		respondHTML(w, http.StatusNotFound, notFoundPage())
		return
	}

	if !h.Tokens.Verify(token, videoID, userID, h.now()) {
		respondHTML(w, http.StatusUnauthorized, accessDeniedPage("Invalid or expired token"))
		return
	}

	respondHTML(w, http.StatusOK, renderEmbedHTML(video.Title, video.EmbedURL()))
}

// lookupVideo folds ErrNotFound into found=false so the access policy owns
// the not-found outcome; other store errors are logged and surfaced.
func (h VideoHandler) lookupVideo(ctx context.Context, videoID string) (models.Video, bool, error) {
	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, false, nil
		}
		logging.FromContext(ctx).Error("video lookup failed", "error", err, "videoId", videoID)
		return models.Video{}, false, err
	}
	return video, true, nil
}

func videoRef(video models.Video, found bool) *models.Video {
	if !found {
		return nil
	}
	return &video
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type dashboardResponse struct {
	Videos []dashboardVideo `json:"videos"`
	Count  int              `json:"count"`
}

type dashboardVideo struct {
	VideoID       string `json:"video_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ThumbnailURL  string `json:"thumbnail_url"`
	CreatedAt     string `json:"created_at"`
	PlaybackToken string `json:"playback_token"`
}

type streamResponse struct {
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	EmbedURL  string `json:"embed_url"`
	EmbedHTML string `json:"embed_html"`
}

var embedPageTemplate = template.Must(template.New("embed").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; }
        html, body { width: 100%; height: 100%; background: #000; }
        iframe { width: 100%; height: 100%; border: none; }
    </style>
</head>
<body>
    <iframe
        src="{{.EmbedURL}}"
        allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"
        allowfullscreen>
    </iframe>
</body>
</html>
`))

var messagePageTemplate = template.Must(template.New("message").Parse(
	`<html><body><h1>{{.Heading}}</h1>{{if .Detail}}<p>{{.Detail}}</p>{{end}}</body></html>`))

func renderEmbedHTML(title, embedURL string) string {
	var buf strings.Builder
	_ = embedPageTemplate.Execute(&buf, struct {
		Title    string
		EmbedURL string
	}{Title: title, EmbedURL: embedURL})
	return buf.String()
}

func accessDeniedPage(detail string) string {
	var buf strings.Builder
	_ = messagePageTemplate.Execute(&buf, struct {
		Heading string
		Detail  string
	}{Heading: "Access Denied", Detail: detail})
	return buf.String()
}

func notFoundPage() string {
	var buf strings.Builder
	_ = messagePageTemplate.Execute(&buf, struct {
		Heading string
		Detail  string
	}{Heading: "Video Not Found"})
	return buf.String()
}

func respondHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

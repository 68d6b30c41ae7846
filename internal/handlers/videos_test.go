package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vidgate/backend/internal/auth"
	"github.com/vidgate/backend/internal/catalog"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/playback"
	"github.com/vidgate/backend/internal/repositories"
)

var handlerTestNow = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

type inMemoryVideoStore struct {
	videos []models.Video
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) error {
	for _, existing := range s.videos {
		if existing.YouTubeID == video.YouTubeID {
			return nil
		}
	}
	s.videos = append(s.videos, video)
	return nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	for _, video := range s.videos {
		if video.ID == id {
			return video, nil
		}
	}
	return models.Video{}, repositories.ErrNotFound
}

func (s *inMemoryVideoStore) FindActive(_ context.Context, limit int) ([]models.Video, error) {
	var active []models.Video
	for _, video := range s.videos {
		if video.IsActive {
			active = append(active, video)
		}
		if len(active) == limit {
			break
		}
	}
	return active, nil
}

func (s *inMemoryVideoStore) Count(context.Context) (int64, error) {
	return int64(len(s.videos)), nil
}

func (s *inMemoryVideoStore) UpdateThumbnailURL(_ context.Context, id, url string) error {
	for i := range s.videos {
		if s.videos[i].ID == id {
			s.videos[i].ThumbnailURL = url
			return nil
		}
	}
	return repositories.ErrNotFound
}

type videoFixture struct {
	store    *inMemoryVideoStore
	handler  VideoHandler
	sessions *auth.Manager
	codec    *playback.Codec
}

func newVideoFixture(t *testing.T) videoFixture {
	t.Helper()

	store := &inMemoryVideoStore{}
	selector := catalog.NewSelector(store)
	selector.NowFunc = func() time.Time { return handlerTestNow }
	sessions := newTestSessionManager()
	codec := playback.NewCodec([]byte("playback-test-secret"))

	return videoFixture{
		store:    store,
		sessions: sessions,
		codec:    codec,
		handler: VideoHandler{
			Videos:   store,
			Catalog:  selector,
			Sessions: sessions,
			Tokens:   codec,
			NowFunc:  func() time.Time { return handlerTestNow },
		},
	}
}

func (f videoFixture) bearer(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := f.sessions.Issue(userID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return "Bearer " + token
}

func TestVideoHandlerDashboardSeedsCatalog(t *testing.T) {
	f := newVideoFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", f.bearer(t, "user-1"))
	rec := httptest.NewRecorder()

	f.handler.Dashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}

	body := rec.Body.String()
	for _, hidden := range []string{"dQw4w9WgXcQ", "Z1RJmh_OqeA", "youtube.com"} {
		if strings.Contains(body, hidden) {
			t.Fatalf("dashboard leaked upstream reference %q: %s", hidden, body)
		}
	}

	var resp dashboardResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Videos) != 2 {
		t.Fatalf("expected 2 videos got count=%d len=%d", resp.Count, len(resp.Videos))
	}

	for _, item := range resp.Videos {
		if item.VideoID == "" || item.Title == "" {
			t.Fatalf("incomplete dashboard item: %+v", item)
		}
		if item.PlaybackToken == "" {
			t.Fatalf("video %s is missing a playback token", item.VideoID)
		}
		if !f.codec.Verify(item.PlaybackToken, item.VideoID, "user-1", handlerTestNow) {
			t.Fatalf("playback token for %s does not verify for its owner", item.VideoID)
		}
		if f.codec.Verify(item.PlaybackToken, item.VideoID, "user-2", handlerTestNow) {
			t.Fatalf("playback token for %s verifies for another user", item.VideoID)
		}
	}
}

func TestVideoHandlerDashboardSeedsOnce(t *testing.T) {
	f := newVideoFixture(t)

	var first dashboardResponse
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Authorization", f.bearer(t, "user-1"))
		rec := httptest.NewRecorder()

		f.handler.Dashboard(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status %d got %d", i, http.StatusOK, rec.Code)
		}

		var resp dashboardResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("request %d: decode response: %v", i, err)
		}
		if resp.Count != 2 {
			t.Fatalf("request %d: expected 2 videos got %d", i, resp.Count)
		}
		if i == 0 {
			first = resp
			continue
		}
		for j, item := range resp.Videos {
			if item.VideoID != first.Videos[j].VideoID {
				t.Fatalf("request %d: order changed: %q vs %q", i, item.VideoID, first.Videos[j].VideoID)
			}
		}
	}

	if len(f.store.videos) != 2 {
		t.Fatalf("expected store to hold 2 videos after repeated dashboards, got %d", len(f.store.videos))
	}
}

func TestVideoHandlerDashboardUnauthenticated(t *testing.T) {
	f := newVideoFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()

	f.handler.Dashboard(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
	if len(f.store.videos) != 0 {
		t.Fatal("unauthenticated request must not seed the catalog")
	}
}

func (f videoFixture) addVideo(id, youtubeID string, active bool) models.Video {
	video := models.Video{
		ID:        id,
		Title:     "Video " + id,
		YouTubeID: youtubeID,
		IsActive:  active,
		CreatedAt: handlerTestNow,
	}
	f.store.videos = append(f.store.videos, video)
	return video
}

func streamRequest(f videoFixture, t *testing.T, userID, videoID, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/video/"+videoID+"/stream?token="+token, nil)
	req.SetPathValue("id", videoID)
	req.Header.Set("Authorization", f.bearer(t, userID))
	return req
}

func TestVideoHandlerStreamGranted(t *testing.T) {
	f := newVideoFixture(t)
	video := f.addVideo("video-1", "dQw4w9WgXcQ", true)

	token, err := f.codec.Mint(video.ID, "user-1", handlerTestNow)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.Stream(rec, streamRequest(f, t, "user-1", video.ID, token))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}

	var resp streamResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.VideoID != video.ID {
		t.Fatalf("expected video id %q got %q", video.ID, resp.VideoID)
	}
	if !strings.Contains(resp.EmbedURL, "dQw4w9WgXcQ") {
		t.Fatalf("embed url does not reference the upstream video: %q", resp.EmbedURL)
	}
	if !strings.Contains(resp.EmbedHTML, resp.EmbedURL) {
		t.Fatal("embed html does not contain the embed url")
	}
}

func TestVideoHandlerStreamMissingToken(t *testing.T) {
	f := newVideoFixture(t)
	video := f.addVideo("video-1", "dQw4w9WgXcQ", true)

	rec := httptest.NewRecorder()
	f.handler.Stream(rec, streamRequest(f, t, "user-1", video.ID, ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestVideoHandlerStreamUnknownVideo(t *testing.T) {
	f := newVideoFixture(t)

	token, err := f.codec.Mint("missing", "user-1", handlerTestNow)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.Stream(rec, streamRequest(f, t, "user-1", "missing", token))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestVideoHandlerStreamInactiveVideo(t *testing.T) {
	f := newVideoFixture(t)
	video := f.addVideo("video-1", "dQw4w9WgXcQ", false)

	// Even a valid token cannot unlock an inactive video, and the inactive
	// outcome wins over a bad token.
	valid, err := f.codec.Mint(video.ID, "user-1", handlerTestNow)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	for _, token := range []string{valid, "garbage"} {
		rec := httptest.NewRecorder()
		f.handler.Stream(rec, streamRequest(f, t, "user-1", video.ID, token))

		if rec.Code != http.StatusForbidden {
			t.Fatalf("token %q: expected status %d got %d", token, http.StatusForbidden, rec.Code)
		}
	}
}

func TestVideoHandlerStreamRejectsForeignToken(t *testing.T) {
	f := newVideoFixture(t)
	video := f.addVideo("video-1", "dQw4w9WgXcQ", true)

	// Minted for a different user.
	token, err := f.codec.Mint(video.ID, "user-2", handlerTestNow)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.Stream(rec, streamRequest(f, t, "user-1", video.ID, token))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestVideoHandlerStreamRejectsExpiredToken(t *testing.T) {
	f := newVideoFixture(t)
	video := f.addVideo("video-1", "dQw4w9WgXcQ", true)

	token, err := f.codec.Mint(video.ID, "user-1", handlerTestNow.Add(-time.Hour))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.Stream(rec, streamRequest(f, t, "user-1", video.ID, token))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func embedRequest(videoID, token, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/video/"+videoID+"/embed?token="+token+"&user_id="+userID, nil)
	req.SetPathValue("id", videoID)
	return req
}

func TestVideoHandlerEmbed(t *testing.T) {
	f := newVideoFixture(t)
	video := f.addVideo("video-1", "dQw4w9WgXcQ", true)

	token, err := f.codec.Mint(video.ID, "user-1", handlerTestNow)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.Embed(rec, embedRequest(video.ID, token, "user-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected an html response, got content type %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<iframe") {
		t.Fatalf("embed page has no iframe: %s", body)
	}
	if !strings.Contains(body, video.EmbedURL()) {
		t.Fatalf("embed page does not load the embed url: %s", body)
	}
}

func TestVideoHandlerEmbedMissingCredentials(t *testing.T) {
	f := newVideoFixture(t)
	video := f.addVideo("video-1", "dQw4w9WgXcQ", true)

	token, err := f.codec.Mint(video.ID, "user-1", handlerTestNow)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	cases := []struct {
		name  string
		token string
		user  string
	}{
		{name: "no token", token: "", user: "user-1"},
		{name: "no user", token: token, user: ""},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		f.handler.Embed(rec, embedRequest(video.ID, c.token, c.user))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected status %d got %d", c.name, http.StatusUnauthorized, rec.Code)
		}
	}
}

func TestVideoHandlerEmbedInvalidToken(t *testing.T) {
	f := newVideoFixture(t)
	video := f.addVideo("video-1", "dQw4w9WgXcQ", true)

	rec := httptest.NewRecorder()
	f.handler.Embed(rec, embedRequest(video.ID, "garbage", "user-1"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
	if strings.Contains(rec.Body.String(), "dQw4w9WgXcQ") {
		t.Fatal("denied embed response leaked the upstream video id")
	}
}

func TestVideoHandlerEmbedHiddenVideo(t *testing.T) {
	f := newVideoFixture(t)
	inactive := f.addVideo("video-1", "dQw4w9WgXcQ", false)

	token, err := f.codec.Mint(inactive.ID, "user-1", handlerTestNow)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	for _, videoID := range []string{inactive.ID, "missing"} {
		rec := httptest.NewRecorder()
		f.handler.Embed(rec, embedRequest(videoID, token, "user-1"))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("video %q: expected status %d got %d", videoID, http.StatusNotFound, rec.Code)
		}
	}
}

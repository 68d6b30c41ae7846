package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vidgate/backend/internal/models"
)

type staticCatalog struct{}

func (staticCatalog) Dashboard(context.Context) ([]models.Video, error) {
	return nil, nil
}

type alwaysValidTokens struct{}

func (alwaysValidTokens) Mint(videoID, userID string, _ time.Time) (string, error) {
	return videoID + ":" + userID, nil
}

func (alwaysValidTokens) Verify(string, string, string, time.Time) bool { return true }

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	HealthHandler{}.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHealthHandlerMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()

	HealthHandler{}.Handle(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

// TestRegisterRoutesPathValues exercises the mux patterns end to end so the
// {id} segment actually reaches the handlers as a path value.
func TestRegisterRoutesPathValues(t *testing.T) {
	store := &inMemoryVideoStore{}
	sessions := newTestSessionManager()
	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Users:          newInMemoryUserStore(),
		Videos:         store,
		Catalog:        staticCatalog{},
		Sessions:       sessions,
		PlaybackTokens: alwaysValidTokens{},
	})

	token, _, err := sessions.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	videoFixture{store: store}.addVideo("video-1", "dQw4w9WgXcQ", true)

	req := httptest.NewRequest(http.MethodGet, "/video/video-1/stream?token=anything", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}

	var resp streamResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.VideoID != "video-1" {
		t.Fatalf("path value did not reach the handler: %+v", resp)
	}
}

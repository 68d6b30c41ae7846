package models

import (
	"fmt"
	"time"
)

// User represents an account within the VidGate platform.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Video is a catalog entry. YouTubeID is the upstream streaming identifier
// and must never leave the backend except inside an authorized embed reference.
type Video struct {
	ID           string
	Title        string
	Description  string
	YouTubeID    string
	ThumbnailURL string
	IsActive     bool
	CreatedAt    time.Time
}

// embedURLTemplate masks the upstream player behind a fixed query policy:
// autoplay on, related videos suppressed, minimal branding.
const embedURLTemplate = "https://www.youtube.com/embed/%s?autoplay=1&rel=0&modestbranding=1"

// EmbedURL builds the masked embed reference for an authorized playback.
// This is the only place the streaming identifier becomes externally visible.
func (v Video) EmbedURL() string {
	return fmt.Sprintf(embedURLTemplate, v.YouTubeID)
}

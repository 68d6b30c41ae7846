package playback

import (
	"time"

	"github.com/vidgate/backend/internal/models"
)

// Decision is the terminal outcome of evaluating a stream request.
type Decision int

const (
	// Granted allows the caller to reveal the masked embed reference.
	Granted Decision = iota
	// DeniedMissingToken means no playback token accompanied the request.
	DeniedMissingToken
	// DeniedNotFound means no video record exists for the requested id.
	DeniedNotFound
	// DeniedInactive means the video exists but is not currently served.
	DeniedInactive
	// DeniedInvalidToken folds every token failure (decode, binding, expiry,
	// signature) into one outcome so clients learn nothing useful from it.
	DeniedInvalidToken
)

// TokenVerifier is the subset of the codec the policy needs.
type TokenVerifier interface {
	Verify(token, videoID, userID string, now time.Time) bool
}

// Policy decides whether a playback request may proceed.
type Policy struct {
	Tokens TokenVerifier
}

// Authorize walks the access checks in order: token presence, video existence,
// active flag, then token verification bound to this video and subject.
// video is nil when the lookup found no record.
func (p Policy) Authorize(video *models.Video, videoID, subjectID, token string, now time.Time) Decision {
	if token == "" {
		return DeniedMissingToken
	}
	if video == nil {
		return DeniedNotFound
	}
	if !video.IsActive {
		return DeniedInactive
	}
	if !p.Tokens.Verify(token, videoID, subjectID, now) {
		return DeniedInvalidToken
	}
	return Granted
}

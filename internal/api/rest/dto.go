package rest

import (
	"errors"

	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/playtracker"
)

const MAX_PAGE_SIZE = 100

// ToggleLikeRequest is the body of POST /likes/toggle
type ToggleLikeRequest struct {
	FID domain.FID `json:"fid"`
	NFT domain.NFT `json:"nft"`
}

// ToggleLikeResponse reports the like state after the toggle
type ToggleLikeResponse struct {
	Liked    bool            `json:"liked"`
	MediaKey domain.MediaKey `json:"media_key"`
}

// LikeStatusQuery holds query parameters for GET /likes/status
type LikeStatusQuery struct {
	FID      string `form:"fid"`
	MediaKey string `form:"media_key"`
}

// LikeStatusResponse reports whether a user likes the content and how many users do
type LikeStatusResponse struct {
	MediaKey  domain.MediaKey `json:"media_key"`
	Liked     bool            `json:"liked"`
	LikeCount int64           `json:"like_count"`
}

// MediaListResponse wraps a list of snapshots
type MediaListResponse struct {
	Items []domain.NFTSnapshot `json:"items"`
}

// RecentlyPlayedQuery holds query parameters for GET /users/:fid/plays/recent
type RecentlyPlayedQuery struct {
	Limit int `form:"limit,default=20"`
}

// Validate checks the requested page size
func (q RecentlyPlayedQuery) Validate() error {
	if q.Limit < 1 || q.Limit > MAX_PAGE_SIZE {
		return errors.New("limit must be between 1 and 100")
	}
	return nil
}

// CreateSessionResponse returns the id of a new play session
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// ProgressRequest is the body of POST /plays/sessions/:id/progress
type ProgressRequest struct {
	FID         domain.FID `json:"fid"`
	NFT         domain.NFT `json:"nft"`
	CurrentTime float64    `json:"current_time"`
	Duration    float64    `json:"duration"`
}

// SessionResponse reports the state of a play session
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	MediaKey  domain.MediaKey `json:"media_key,omitempty"`
}

func newSessionResponse(id string, session playtracker.Session) SessionResponse {
	return SessionResponse{
		SessionID: id,
		State:     session.State.String(),
		MediaKey:  session.MediaKey,
	}
}

// MediaKeyRequest carries a bare media key
type MediaKeyRequest struct {
	MediaKey domain.MediaKey `json:"media_key"`
}

// TopPlayedResponse wraps the materialized ranking
type TopPlayedResponse struct {
	Items []domain.TopPlayedEntry `json:"items"`
}

// RepairResponse reports what a repair changed
type RepairResponse struct {
	MediaKey domain.MediaKey `json:"media_key"`
	Outcome  string          `json:"outcome"`
}

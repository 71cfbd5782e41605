package rest

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/ledger"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/migrator"
	"github.com/feral-file/ff-media-ledger/internal/playtracker"
	"github.com/feral-file/ff-media-ledger/internal/repairer"
	"github.com/feral-file/ff-media-ledger/internal/topplayed"
)

const LIKED_MEDIA_EVENT = "liked_media"

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// ToggleLike flips the like of a user for an NFT's content
	// POST /api/v1/likes/toggle
	ToggleLike(c *gin.Context)

	// GetLikedMedia lists the content a user likes, newest first
	// GET /api/v1/users/:fid/likes
	GetLikedMedia(c *gin.Context)

	// StreamLikedMedia pushes the user's liked content as server-sent events on every change
	// GET /api/v1/users/:fid/likes/stream
	StreamLikedMedia(c *gin.Context)

	// GetLikeStatus reports whether a user likes the content and its global like count
	// GET /api/v1/likes/status?fid=<fid>&media_key=<media_key>
	GetLikeStatus(c *gin.Context)

	// CreatePlaySession opens a play session for one player instance
	// POST /api/v1/plays/sessions
	CreatePlaySession(c *gin.Context)

	// TrackProgress feeds a playback progress update to a session
	// POST /api/v1/plays/sessions/:id/progress
	TrackProgress(c *gin.Context)

	// ResetPlaySession returns a session to idle so the same media can count again
	// POST /api/v1/plays/sessions/:id/reset
	ResetPlaySession(c *gin.Context)

	// DeletePlaySession closes a session
	// DELETE /api/v1/plays/sessions/:id
	DeletePlaySession(c *gin.Context)

	// GetRecentlyPlayed lists the content a user played, newest first
	// GET /api/v1/users/:fid/plays/recent?limit=<limit>
	GetRecentlyPlayed(c *gin.Context)

	// GetTopPlayed returns the materialized top played ranking
	// GET /api/v1/top-played
	GetTopPlayed(c *gin.Context)

	// RefreshTopPlayed recomputes the ranking (requires authentication)
	// POST /api/v1/admin/top-played/refresh
	RefreshTopPlayed(c *gin.Context)

	// RepairLikeAggregate reconciles the like aggregate of a key (requires authentication)
	// POST /api/v1/admin/repair
	RepairLikeAggregate(c *gin.Context)

	// MigrateUserLikes runs the legacy like migration for a user (requires authentication)
	// POST /api/v1/admin/users/:fid/migrate
	MigrateUserLikes(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// Dependencies holds the components the handlers drive
type Dependencies struct {
	Ledger       ledger.Ledger
	Sessions     *playtracker.SessionRegistry
	Recorder     playtracker.PlayRecorder
	Materializer topplayed.Materializer
	Repairer     repairer.Repairer
	Migrator     migrator.Migrator

	// StreamsDone is closed when the server shuts down so open streams end
	StreamsDone <-chan struct{}
}

// handler implements the Handler interface
type handler struct {
	deps Dependencies
}

// NewHandler creates a new REST API handler
func NewHandler(deps Dependencies) Handler {
	return &handler{deps: deps}
}

// fidParam parses the :fid path parameter, responding on failure
func fidParam(c *gin.Context) (domain.FID, bool) {
	fid, err := domain.ParseFID(c.Param("fid"))
	if err != nil {
		respondBadRequest(c, "Invalid fid", err.Error())
		return 0, false
	}
	return fid, true
}

// ToggleLike flips the like of a user for an NFT's content
func (h *handler) ToggleLike(c *gin.Context) {
	var req ToggleLikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	liked, err := h.deps.Ledger.ToggleLike(c.Request.Context(), req.FID, req.NFT)
	if err != nil {
		respondError(c, err, "Failed to toggle like", zap.Int64("fid", int64(req.FID)))
		return
	}

	c.JSON(http.StatusOK, ToggleLikeResponse{
		Liked:    liked,
		MediaKey: req.NFT.MediaKey(),
	})
}

// GetLikedMedia lists the content a user likes, newest first
func (h *handler) GetLikedMedia(c *gin.Context) {
	fid, ok := fidParam(c)
	if !ok {
		return
	}

	items, err := h.deps.Ledger.GetLikedMedia(c.Request.Context(), fid)
	if err != nil {
		respondError(c, err, "Failed to get liked media", zap.Int64("fid", int64(fid)))
		return
	}

	c.JSON(http.StatusOK, MediaListResponse{Items: nonNilSnapshots(items)})
}

// StreamLikedMedia pushes the user's liked content as server-sent events.
// Only the newest snapshot is kept while the client is behind.
func (h *handler) StreamLikedMedia(c *gin.Context) {
	fid, ok := fidParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	updates := make(chan []domain.NFTSnapshot, 1)
	unsubscribe, err := h.deps.Ledger.SubscribeLikedMedia(ctx, fid, func(items []domain.NFTSnapshot) {
		for {
			select {
			case updates <- items:
				return
			default:
			}
			// Drop the stale snapshot and retry
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		respondError(c, err, "Failed to subscribe to liked media", zap.Int64("fid", int64(fid)))
		return
	}
	defer unsubscribe()

	// Streams outlive the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	logger.DebugCtx(ctx, "Liked media stream opened", zap.Int64("fid", int64(fid)))

	for {
		select {
		case <-ctx.Done():
			logger.DebugCtx(ctx, "Liked media stream closed", zap.Int64("fid", int64(fid)))
			return
		case <-h.deps.StreamsDone:
			return
		case items := <-updates:
			c.SSEvent(LIKED_MEDIA_EVENT, MediaListResponse{Items: nonNilSnapshots(items)})
			c.Writer.Flush()
		}
	}
}

// GetLikeStatus reports whether a user likes the content and its global like count
func (h *handler) GetLikeStatus(c *gin.Context) {
	var query LikeStatusQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	fid, err := domain.ParseFID(query.FID)
	if err != nil {
		respondBadRequest(c, "Invalid fid", err.Error())
		return
	}
	key := domain.MediaKey(strings.TrimSpace(query.MediaKey))
	if key.Empty() {
		respondBadRequest(c, "media_key is required")
		return
	}

	ctx := c.Request.Context()
	liked, err := h.deps.Ledger.IsLiked(ctx, fid, key)
	if err != nil {
		respondError(c, err, "Failed to get like status", zap.Int64("fid", int64(fid)))
		return
	}
	count, err := h.deps.Ledger.GetLikeCount(ctx, key)
	if err != nil {
		respondError(c, err, "Failed to get like count", zap.String("mediaKey", key.String()))
		return
	}

	c.JSON(http.StatusOK, LikeStatusResponse{
		MediaKey:  key,
		Liked:     liked,
		LikeCount: count,
	})
}

// CreatePlaySession opens a play session for one player instance
func (h *handler) CreatePlaySession(c *gin.Context) {
	id, _ := h.deps.Sessions.Create()
	c.JSON(http.StatusCreated, CreateSessionResponse{SessionID: id})
}

// TrackProgress feeds a playback progress update to a session
func (h *handler) TrackProgress(c *gin.Context) {
	id := c.Param("id")
	tracker, err := h.deps.Sessions.Get(id)
	if err != nil {
		respondError(c, err, "Play session not found")
		return
	}

	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	// Start is a no-op while the session already holds this media
	if err := tracker.Start(req.FID, req.NFT); err != nil {
		respondError(c, err, "Failed to start play session")
		return
	}

	err = tracker.TrackProgress(c.Request.Context(), req.NFT.MediaKey(), req.FID, req.CurrentTime, req.Duration)
	if err != nil {
		respondError(c, err, "Failed to track progress", zap.String("session_id", id))
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(id, tracker.Session()))
}

// ResetPlaySession returns a session to idle so the same media can count again
func (h *handler) ResetPlaySession(c *gin.Context) {
	id := c.Param("id")
	tracker, err := h.deps.Sessions.Get(id)
	if err != nil {
		respondError(c, err, "Play session not found")
		return
	}

	var req MediaKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.MediaKey.Empty() {
		respondBadRequest(c, "media_key is required")
		return
	}

	tracker.ResetForMedia(req.MediaKey)

	c.JSON(http.StatusOK, newSessionResponse(id, tracker.Session()))
}

// DeletePlaySession closes a session
func (h *handler) DeletePlaySession(c *gin.Context) {
	h.deps.Sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// GetRecentlyPlayed lists the content a user played, newest first
func (h *handler) GetRecentlyPlayed(c *gin.Context) {
	fid, ok := fidParam(c)
	if !ok {
		return
	}

	var query RecentlyPlayedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if err := query.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	items, err := h.deps.Recorder.GetRecentlyPlayed(c.Request.Context(), fid, query.Limit)
	if err != nil {
		respondError(c, err, "Failed to get recently played", zap.Int64("fid", int64(fid)))
		return
	}

	c.JSON(http.StatusOK, MediaListResponse{Items: nonNilSnapshots(items)})
}

// GetTopPlayed returns the materialized top played ranking
func (h *handler) GetTopPlayed(c *gin.Context) {
	entries, err := h.deps.Materializer.GetTopPlayed(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get top played")
		return
	}
	if entries == nil {
		entries = []domain.TopPlayedEntry{}
	}

	c.JSON(http.StatusOK, TopPlayedResponse{Items: entries})
}

// RefreshTopPlayed recomputes the ranking
func (h *handler) RefreshTopPlayed(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.deps.Materializer.Refresh(ctx); err != nil {
		respondError(c, err, "Failed to refresh top played")
		return
	}

	h.GetTopPlayed(c)
}

// RepairLikeAggregate reconciles the like aggregate of a key
func (h *handler) RepairLikeAggregate(c *gin.Context) {
	var req MediaKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.MediaKey.Empty() {
		respondBadRequest(c, "media_key is required")
		return
	}

	outcome, err := h.deps.Repairer.Repair(c.Request.Context(), req.MediaKey)
	if err != nil {
		respondError(c, err, "Failed to repair like aggregate", zap.String("mediaKey", req.MediaKey.String()))
		return
	}

	c.JSON(http.StatusOK, RepairResponse{
		MediaKey: req.MediaKey,
		Outcome:  string(outcome),
	})
}

// MigrateUserLikes runs the legacy like migration for a user
func (h *handler) MigrateUserLikes(c *gin.Context) {
	fid, ok := fidParam(c)
	if !ok {
		return
	}

	report, err := h.deps.Migrator.CleanupLikes(c.Request.Context(), fid)
	if err != nil {
		respondError(c, err, "Failed to migrate likes", zap.Int64("fid", int64(fid)))
		return
	}

	c.JSON(http.StatusOK, report)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-media-ledger-api",
	})
}

func nonNilSnapshots(items []domain.NFTSnapshot) []domain.NFTSnapshot {
	if items == nil {
		return []domain.NFTSnapshot{}
	}
	return items
}

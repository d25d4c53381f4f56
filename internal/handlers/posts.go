package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clipcast/api/internal/middleware"
	"clipcast/api/internal/models"
	"clipcast/api/internal/repository"
	"clipcast/api/internal/service"
)

type postResponse struct {
	ID            string    `json:"id"`
	VideoID       *string   `json:"videoId,omitempty"`
	Caption       string    `json:"caption"`
	Platforms     []string  `json:"platforms"`
	ScheduledAt   time.Time `json:"scheduledAt"`
	Status        string    `json:"status"`
	FailureReason *string   `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toPostResponse(post models.Post) postResponse {
	return postResponse{
		ID:            post.ID,
		VideoID:       post.VideoID,
		Caption:       post.Caption,
		Platforms:     post.Platforms,
		ScheduledAt:   post.ScheduledAt,
		Status:        string(post.Status),
		FailureReason: post.FailureReason,
		CreatedAt:     post.CreatedAt,
	}
}

type schedulePostRequest struct {
	VideoID     *string   `json:"videoId"`
	Caption     string    `json:"caption" binding:"required"`
	Platforms   []string  `json:"platforms" binding:"required,min=1"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
}

func (h HandlerSet) SchedulePost(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req schedulePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.postService.Schedule(c.Request.Context(), service.ScheduleInput{
		UserID:      principal.ID,
		VideoID:     req.VideoID,
		Caption:     req.Caption,
		Platforms:   req.Platforms,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPlatform),
			errors.Is(err, service.ErrScheduleInPast),
			errors.Is(err, repository.ErrVideoNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			h.log.Error().Err(err).Msg("schedule post failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": toPostResponse(post)})
}

func (h HandlerSet) ListPosts(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := pagination(c)
	posts, err := h.postService.ListByUser(c.Request.Context(), principal.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]postResponse, 0, len(posts))
	for _, post := range posts {
		items = append(items, toPostResponse(post))
	}
	c.JSON(http.StatusOK, gin.H{"posts": items})
}

func (h HandlerSet) CancelPost(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err := h.postService.Cancel(c.Request.Context(), principal.ID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrPostNotCancelable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Trends(c *gin.Context) {
	topics, err := h.trends.Fetch(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.log.Error().Err(err).Msg("trends fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "trends unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

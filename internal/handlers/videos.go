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

type videoResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"sizeBytes"`
	Caption   *string   `json:"caption,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func toVideoResponse(video models.Video, url string) videoResponse {
	return videoResponse{
		ID:        video.ID,
		Title:     video.Title,
		URL:       url,
		Format:    video.Format,
		SizeBytes: video.SizeBytes,
		Caption:   video.Caption,
		Status:    string(video.Status),
		CreatedAt: video.CreatedAt,
	}
}

func (h HandlerSet) UploadVideo(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	result, err := h.videoService.Upload(c.Request.Context(), service.UploadInput{
		UserID: principal.ID,
		Title:  c.PostForm("title"),
		File:   file,
		Header: header,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFormat) || errors.Is(err, service.ErrVideoTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("user_id", principal.ID).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"video": toVideoResponse(result.Video, result.URL)})
}

func (h HandlerSet) ListVideos(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := pagination(c)
	videos, err := h.videoService.ListByUser(c.Request.Context(), principal.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		items = append(items, toVideoResponse(video, ""))
	}
	c.JSON(http.StatusOK, gin.H{"videos": items})
}

func (h HandlerSet) GetVideo(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	video, err := h.videoService.Get(c.Request.Context(), principal.ID, c.Param("id"))
	if err != nil {
		h.sendVideoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"video": toVideoResponse(video, "")})
}

func (h HandlerSet) DeleteVideo(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.videoService.Delete(c.Request.Context(), principal.ID, c.Param("id")); err != nil {
		h.sendVideoError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type captionRequest struct {
	Tone     string   `json:"tone"`
	Keywords []string `json:"keywords"`
}

func (h HandlerSet) GenerateCaptions(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req captionRequest
	_ = c.ShouldBindJSON(&req) // body optional

	candidates, err := h.videoService.GenerateCaption(c.Request.Context(), principal.ID, c.Param("id"), req.Tone, req.Keywords)
	if err != nil {
		h.sendVideoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"captions": candidates})
}

func (h HandlerSet) sendVideoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("video request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

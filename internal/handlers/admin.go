package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clipcast/api/internal/middleware"
	"clipcast/api/internal/models"
	"clipcast/api/internal/repository"
	"clipcast/api/internal/service"
)

func pagination(c *gin.Context) (limit int, offset int) {
	limit = 50
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, err := h.adminService.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(users))
	for _, user := range users {
		item := gin.H{
			"id":          user.ID,
			"email":       user.Email,
			"displayName": user.DisplayName,
			"status":      string(user.Status),
			"createdAt":   user.CreatedAt,
		}
		if user.StatusReason != nil {
			item["statusReason"] = *user.StatusReason
		}
		if user.StatusExpiry != nil {
			item["statusExpiry"] = user.StatusExpiry.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"users": items})
}

type restrictRequest struct {
	Reason   string `json:"reason" binding:"required"`
	Duration int    `json:"duration"` // days, 0 = permanent
}

func (h HandlerSet) AdminBanUser(c *gin.Context) {
	h.restrictUser(c, models.UserStatusBanned)
}

func (h HandlerSet) AdminSuspendUser(c *gin.Context) {
	h.restrictUser(c, models.UserStatusSuspended)
}

func (h HandlerSet) restrictUser(c *gin.Context, status models.UserStatus) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req restrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.adminService.RestrictUser(c.Request.Context(), service.RestrictInput{
		AdminID:      principal.ID,
		UserID:       c.Param("id"),
		Status:       status,
		Reason:       req.Reason,
		DurationDays: req.Duration,
	})
	if err != nil {
		h.sendAdminError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminReactivateUser(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.adminService.ReactivateUser(c.Request.Context(), principal.ID, c.Param("id")); err != nil {
		h.sendAdminError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), principal.ID, c.Param("id")); err != nil {
		h.sendAdminError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminListMedia(c *gin.Context) {
	limit, offset := pagination(c)
	videos, err := h.videoService.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(videos))
	for _, video := range videos {
		items = append(items, gin.H{
			"id":        video.ID,
			"userId":    video.UserID,
			"title":     video.Title,
			"format":    video.Format,
			"sizeBytes": video.SizeBytes,
			"status":    string(video.Status),
			"createdAt": video.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"media": items})
}

func (h HandlerSet) AdminDeleteMedia(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.videoService.AdminDelete(c.Request.Context(), principal.ID, c.Param("id")); err != nil {
		h.sendAdminError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminListPosts(c *gin.Context) {
	limit, offset := pagination(c)
	posts, err := h.postService.ListAll(c.Request.Context(), limit, offset)
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

func (h HandlerSet) AdminListSettings(c *gin.Context) {
	settings, err := h.adminService.ListSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(settings))
	for _, setting := range settings {
		items = append(items, gin.H{
			"key":       setting.Key,
			"value":     setting.Value,
			"updatedBy": setting.UpdatedBy,
			"updatedAt": setting.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"settings": items})
}

type putSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h HandlerSet) AdminPutSetting(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.adminService.PutSetting(c.Request.Context(), principal.ID, c.Param("key"), req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminListActivity(c *gin.Context) {
	limit, offset := pagination(c)
	records, err := h.activity.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, record := range records {
		items = append(items, gin.H{
			"id":           record.ID,
			"adminId":      record.AdminID,
			"action":       record.Action,
			"resourceType": record.ResourceType,
			"resourceId":   record.ResourceID,
			"details":      record.Details,
			"success":      record.Success,
			"createdAt":    record.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"activity": items})
}

func (h HandlerSet) AdminListAdmins(c *gin.Context) {
	limit, offset := pagination(c)
	admins, err := h.adminService.ListAdmins(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		items = append(items, gin.H{
			"id":          admin.ID,
			"email":       admin.Email,
			"displayName": admin.DisplayName,
			"role":        string(admin.Role),
			"permissions": admin.Permissions,
			"isActive":    admin.IsActive,
			"createdAt":   admin.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"admins": items})
}

type createAdminRequest struct {
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=12"`
	DisplayName string   `json:"displayName" binding:"required"`
	Role        string   `json:"role" binding:"required,oneof=superadmin admin moderator"`
	Permissions []string `json:"permissions"`
}

func (h HandlerSet) AdminCreateAdmin(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.adminService.CreateAdmin(c.Request.Context(), service.CreateAdminInput{
		ActorID:     principal.ID,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        models.AdminRole(req.Role),
		Permissions: req.Permissions,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"admin": gin.H{
		"id":    admin.ID,
		"email": admin.Email,
		"role":  string(admin.Role),
	}})
}

type updateAdminRoleRequest struct {
	Role        string   `json:"role" binding:"required,oneof=superadmin admin moderator"`
	Permissions []string `json:"permissions"`
}

func (h HandlerSet) AdminUpdateAdminRole(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateAdminRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.adminService.UpdateAdminRole(c.Request.Context(), principal.ID, c.Param("id"), models.AdminRole(req.Role), req.Permissions)
	if err != nil {
		h.sendAdminError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type setAdminActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h HandlerSet) AdminSetAdminActive(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req setAdminActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.adminService.SetAdminActive(c.Request.Context(), principal.ID, c.Param("id"), *req.Active)
	if err != nil {
		h.sendAdminError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) sendAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrAdminNotFound),
		errors.Is(err, repository.ErrVideoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("admin request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

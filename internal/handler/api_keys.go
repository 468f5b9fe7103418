package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MattewMattew/ManagmentBoard/internal/service"
)

type APIKeyHandler struct {
	Service *service.APIKeyService
	Logger  *zap.Logger
}

type saveAPIKeyRequest struct {
	RedmineAPIKey string `json:"redmine_api_key"`
}

func (h *APIKeyHandler) Register(r *gin.Engine) {
	r.GET("/check-api-keys", h.status)
	r.POST("/check-api-keys", h.save)
}

// @Summary Report whether a Redmine API key is configured
// @Tags credentials
// @Param verify query bool false "also check the key against Redmine"
// @Success 200 {object} apiResponse
// @Router /check-api-keys [get]
func (h *APIKeyHandler) status(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	st, err := h.Service.Status(c.Request.Context(), boolQueryDefault(c, "verify", false))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("api key status failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "failed to check api key", nil)
		return
	}
	Ok(c, st, nil)
}

// @Summary Save the Redmine API key
// @Tags credentials
// @Param body body saveAPIKeyRequest true "api key"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /check-api-keys [post]
func (h *APIKeyHandler) save(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req saveAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if strings.TrimSpace(req.RedmineAPIKey) == "" {
		Error(c, http.StatusBadRequest, "redmine_api_key is required", nil)
		return
	}
	if err := h.Service.Save(req.RedmineAPIKey); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("save api key failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "failed to save api key", nil)
		return
	}
	Ok(c, gin.H{"configured": true}, nil)
}

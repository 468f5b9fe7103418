package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MattewMattew/ManagmentBoard/internal/service"
)

type IssueHandler struct {
	Query  *service.IssueQueryService
	Sync   *service.IssueSyncService
	Logger *zap.Logger
}

func (h *IssueHandler) Register(r *gin.Engine) {
	r.GET("/issues", h.listIssues)
	r.POST("/sync-issues", h.syncIssues)
	r.GET("/sync-runs", h.listSyncRuns)
}

// @Summary List stored issues
// @Tags issues
// @Param limit query int false "page size (0 = all)"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /issues [get]
func (h *IssueHandler) listIssues(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)
	items, total, err := h.Query.ListIssues(c.Request.Context(), limit, offset)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list issues failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "failed to load issues", nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Sync issues from Redmine
// @Tags issues
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Failure 500 {object} apiResponse
// @Router /sync-issues [post]
func (h *IssueHandler) syncIssues(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	// A dropped client connection must not abort a run midway.
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.Sync.Run(ctx, service.TriggerHTTP)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			Error(c, http.StatusConflict, "sync already in progress", nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("issue sync request failed", zap.String("run_id", result.RunID), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "failed to sync issues", map[string]any{
			"run_id": result.RunID,
		})
		return
	}
	Ok(c, result, nil)
}

// @Summary List recent sync runs
// @Tags issues
// @Param limit query int false "max rows"
// @Success 200 {object} apiResponse
// @Router /sync-runs [get]
func (h *IssueHandler) listSyncRuns(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	runs, err := h.Sync.ListRuns(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load sync runs", nil)
		return
	}
	Ok(c, runs, nil)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/service"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/response"
)

type rulesDryRunner interface {
	DryRunRules(ctx context.Context, actor *models.JWTClaims, req dto.DryRunRulesRequest) (*models.DryRunResult, error)
}

type orgDeletionLog interface {
	ClampLimit(limit int) int
	ListRecent(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.DeletionEvent, error)
	Export(ctx context.Context, actor *models.JWTClaims, format string, limit int) (*service.DeletionExport, error)
}

// LifecycleHandler exposes organization wide lifecycle endpoints.
type LifecycleHandler struct {
	dryRuns   rulesDryRunner
	deletions orgDeletionLog
}

// NewLifecycleHandler builds the handler.
func NewLifecycleHandler(dryRuns rulesDryRunner, deletions orgDeletionLog) *LifecycleHandler {
	return &LifecycleHandler{dryRuns: dryRuns, deletions: deletions}
}

// DryRunRules godoc
// @Summary Preview unsaved retention rules
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.DryRunRulesRequest true "Rules to preview"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lifecycle/dry-run [post]
func (h *LifecycleHandler) DryRunRules(c *gin.Context) {
	var req dto.DryRunRulesRequest
	if !bindJSON(c, &req, "invalid dry run payload") {
		return
	}
	result, err := h.dryRuns.DryRunRules(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Deletions godoc
// @Summary List recent snapshot deletions
// @Tags Lifecycle
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum events"
// @Success 200 {object} response.Envelope
// @Router /lifecycle/deletions [get]
func (h *LifecycleHandler) Deletions(c *gin.Context) {
	var query dto.DeletionsQuery
	if !bindQuery(c, &query, "invalid deletions query") {
		return
	}
	limit := h.deletions.ClampLimit(query.Limit)
	events, err := h.deletions.ListRecent(c.Request.Context(), claimsFromContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, &models.Pagination{Limit: limit, TotalCount: len(events)})
}

// ExportDeletions godoc
// @Summary Download recent snapshot deletions
// @Tags Lifecycle
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param limit query int false "Maximum events"
// @Success 200 {file} file
// @Router /lifecycle/deletions/export [get]
func (h *LifecycleHandler) ExportDeletions(c *gin.Context) {
	var query dto.DeletionsExportQuery
	if !bindQuery(c, &query, "invalid export query") {
		return
	}
	file, err := h.deletions.Export(c.Request.Context(), claimsFromContext(c), query.Format, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/response"
)

type legalHoldService interface {
	Place(ctx context.Context, actor *models.JWTClaims, snapshotID string, req dto.PlaceLegalHoldRequest) (*models.LegalHold, error)
	Lift(ctx context.Context, actor *models.JWTClaims, snapshotID string) error
	List(ctx context.Context, actor *models.JWTClaims) ([]models.LegalHold, error)
}

// LegalHoldHandler exposes legal hold endpoints.
type LegalHoldHandler struct {
	service legalHoldService
}

// NewLegalHoldHandler builds the handler.
func NewLegalHoldHandler(service legalHoldService) *LegalHoldHandler {
	return &LegalHoldHandler{service: service}
}

// List godoc
// @Summary List legal holds
// @Tags Legal Holds
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /legal-holds [get]
func (h *LegalHoldHandler) List(c *gin.Context) {
	holds, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holds, &models.Pagination{Limit: len(holds), TotalCount: len(holds)})
}

// Place godoc
// @Summary Place or update a legal hold
// @Tags Legal Holds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param snapshot_id path string true "Snapshot ID"
// @Param payload body dto.PlaceLegalHoldRequest true "Hold reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /legal-holds/{snapshot_id} [put]
func (h *LegalHoldHandler) Place(c *gin.Context) {
	var req dto.PlaceLegalHoldRequest
	if !bindJSON(c, &req, "invalid legal hold payload") {
		return
	}
	hold, err := h.service.Place(c.Request.Context(), claimsFromContext(c), c.Param("snapshot_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hold, nil)
}

// Lift godoc
// @Summary Lift a legal hold
// @Tags Legal Holds
// @Security BearerAuth
// @Param snapshot_id path string true "Snapshot ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /legal-holds/{snapshot_id} [delete]
func (h *LegalHoldHandler) Lift(c *gin.Context) {
	if err := h.service.Lift(c.Request.Context(), claimsFromContext(c), c.Param("snapshot_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/response"
)

type lifecyclePolicyService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateLifecyclePolicyRequest) (*models.LifecyclePolicy, error)
	List(ctx context.Context, actor *models.JWTClaims) ([]models.LifecyclePolicy, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.LifecyclePolicy, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateLifecyclePolicyRequest) (*models.LifecyclePolicy, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

type policyDryRunner interface {
	DryRun(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.DryRunResult, error)
}

type policyEnforcer interface {
	Enforce(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.EnforcementReport, error)
}

type policyDeletionLog interface {
	ClampLimit(limit int) int
	ListByPolicy(ctx context.Context, actor *models.JWTClaims, policyID string, limit int) ([]models.DeletionEvent, error)
	Reconcile(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.LifecyclePolicy, error)
}

// LifecyclePolicyHandler exposes retention policy endpoints.
type LifecyclePolicyHandler struct {
	policies  lifecyclePolicyService
	dryRuns   policyDryRunner
	enforcer  policyEnforcer
	deletions policyDeletionLog
}

// NewLifecyclePolicyHandler builds the handler.
func NewLifecyclePolicyHandler(policies lifecyclePolicyService, dryRuns policyDryRunner, enforcer policyEnforcer, deletions policyDeletionLog) *LifecyclePolicyHandler {
	return &LifecyclePolicyHandler{policies: policies, dryRuns: dryRuns, enforcer: enforcer, deletions: deletions}
}

// Create godoc
// @Summary Create lifecycle policy
// @Tags Lifecycle Policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateLifecyclePolicyRequest true "Policy payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lifecycle-policies [post]
func (h *LifecyclePolicyHandler) Create(c *gin.Context) {
	var req dto.CreateLifecyclePolicyRequest
	if !bindJSON(c, &req, "invalid lifecycle policy payload") {
		return
	}
	policy, err := h.policies.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, policy)
}

// List godoc
// @Summary List lifecycle policies
// @Tags Lifecycle Policies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lifecycle-policies [get]
func (h *LifecyclePolicyHandler) List(c *gin.Context) {
	policies, err := h.policies.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policies, &models.Pagination{Limit: len(policies), TotalCount: len(policies)})
}

// Get godoc
// @Summary Get lifecycle policy
// @Tags Lifecycle Policies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lifecycle-policies/{id} [get]
func (h *LifecyclePolicyHandler) Get(c *gin.Context) {
	policy, err := h.policies.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Update godoc
// @Summary Update lifecycle policy
// @Description Partial update. Omitted fields are unchanged; supplied rules replace the rule set.
// @Tags Lifecycle Policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy ID"
// @Param payload body dto.UpdateLifecyclePolicyRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lifecycle-policies/{id} [patch]
func (h *LifecyclePolicyHandler) Update(c *gin.Context) {
	var req dto.UpdateLifecyclePolicyRequest
	if !bindJSON(c, &req, "invalid lifecycle policy payload") {
		return
	}
	policy, err := h.policies.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Delete godoc
// @Summary Delete lifecycle policy
// @Tags Lifecycle Policies
// @Security BearerAuth
// @Param id path string true "Policy ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /lifecycle-policies/{id} [delete]
func (h *LifecyclePolicyHandler) Delete(c *gin.Context) {
	if err := h.policies.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DryRun godoc
// @Summary Preview enforcement of a policy
// @Description Evaluates every snapshot in scope without deleting anything. Policies of any status can be previewed.
// @Tags Lifecycle Policies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy ID"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /lifecycle-policies/{id}/dry-run [post]
func (h *LifecyclePolicyHandler) DryRun(c *gin.Context) {
	result, err := h.dryRuns.DryRun(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Enforce godoc
// @Summary Enforce a policy now
// @Tags Lifecycle Policies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /lifecycle-policies/{id}/enforce [post]
func (h *LifecyclePolicyHandler) Enforce(c *gin.Context) {
	report, err := h.enforcer.Enforce(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		if report != nil {
			response.ErrorWithData(c, err, report)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Deletions godoc
// @Summary List deletions made by a policy
// @Tags Lifecycle Policies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy ID"
// @Param limit query int false "Maximum events"
// @Success 200 {object} response.Envelope
// @Router /lifecycle-policies/{id}/deletions [get]
func (h *LifecyclePolicyHandler) Deletions(c *gin.Context) {
	var query dto.DeletionsQuery
	if !bindQuery(c, &query, "invalid deletions query") {
		return
	}
	limit := h.deletions.ClampLimit(query.Limit)
	events, err := h.deletions.ListByPolicy(c.Request.Context(), claimsFromContext(c), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, &models.Pagination{Limit: limit, TotalCount: len(events)})
}

// Reconcile godoc
// @Summary Recompute policy counters from the deletion log
// @Tags Lifecycle Policies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Policy ID"
// @Success 200 {object} response.Envelope
// @Router /lifecycle-policies/{id}/reconcile [post]
func (h *LifecyclePolicyHandler) Reconcile(c *gin.Context) {
	policy, err := h.deletions.Reconcile(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/middleware"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/service"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

type lifecycleServiceMock struct {
	created     dto.CreateLifecyclePolicyRequest
	getErr      error
	enforceErr  error
	report      *models.EnforcementReport
	listLimit   int
	exportErr   error
	dryRunRules dto.DryRunRulesRequest
}

func (m *lifecycleServiceMock) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateLifecyclePolicyRequest) (*models.LifecyclePolicy, error) {
	m.created = req
	return &models.LifecyclePolicy{ID: "pol-1", OrgID: actor.OrgID, Name: req.Name}, nil
}

func (m *lifecycleServiceMock) List(ctx context.Context, actor *models.JWTClaims) ([]models.LifecyclePolicy, error) {
	return []models.LifecyclePolicy{{ID: "pol-1"}, {ID: "pol-2"}}, nil
}

func (m *lifecycleServiceMock) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.LifecyclePolicy, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.LifecyclePolicy{ID: id}, nil
}

func (m *lifecycleServiceMock) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateLifecyclePolicyRequest) (*models.LifecyclePolicy, error) {
	policy := &models.LifecyclePolicy{ID: id}
	if req.Name != nil {
		policy.Name = *req.Name
	}
	return policy, nil
}

func (m *lifecycleServiceMock) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	return nil
}

func (m *lifecycleServiceMock) DryRun(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.DryRunResult, error) {
	return &models.DryRunResult{PolicyID: policyID, Evaluations: []models.Evaluation{}}, nil
}

func (m *lifecycleServiceMock) DryRunRules(ctx context.Context, actor *models.JWTClaims, req dto.DryRunRulesRequest) (*models.DryRunResult, error) {
	m.dryRunRules = req
	return &models.DryRunResult{Evaluations: []models.Evaluation{}}, nil
}

func (m *lifecycleServiceMock) Enforce(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.EnforcementReport, error) {
	return m.report, m.enforceErr
}

func (m *lifecycleServiceMock) ClampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func (m *lifecycleServiceMock) ListByPolicy(ctx context.Context, actor *models.JWTClaims, policyID string, limit int) ([]models.DeletionEvent, error) {
	m.listLimit = limit
	return []models.DeletionEvent{{ID: "evt-1", PolicyID: policyID}}, nil
}

func (m *lifecycleServiceMock) ListRecent(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.DeletionEvent, error) {
	m.listLimit = limit
	return []models.DeletionEvent{{ID: "evt-1"}, {ID: "evt-2"}}, nil
}

func (m *lifecycleServiceMock) Export(ctx context.Context, actor *models.JWTClaims, format string, limit int) (*service.DeletionExport, error) {
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	return &service.DeletionExport{Filename: "snapshot-deletions.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("a,b\n")}, nil
}

func (m *lifecycleServiceMock) Reconcile(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.LifecyclePolicy, error) {
	return &models.LifecyclePolicy{ID: policyID, DeletionCount: 3}, nil
}

func newLifecycleRouter(m *lifecycleServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", OrgID: "org-1", Role: models.RoleAdmin})
		c.Next()
	})
	policies := NewLifecyclePolicyHandler(m, m, m, m)
	lifecycle := NewLifecycleHandler(m, m)
	r.POST("/lifecycle-policies", policies.Create)
	r.GET("/lifecycle-policies", policies.List)
	r.GET("/lifecycle-policies/:id", policies.Get)
	r.PATCH("/lifecycle-policies/:id", policies.Update)
	r.DELETE("/lifecycle-policies/:id", policies.Delete)
	r.POST("/lifecycle-policies/:id/dry-run", policies.DryRun)
	r.POST("/lifecycle-policies/:id/enforce", policies.Enforce)
	r.GET("/lifecycle-policies/:id/deletions", policies.Deletions)
	r.POST("/lifecycle-policies/:id/reconcile", policies.Reconcile)
	r.POST("/lifecycle/dry-run", lifecycle.DryRunRules)
	r.GET("/lifecycle/deletions", lifecycle.Deletions)
	r.GET("/lifecycle/deletions/export", lifecycle.ExportDeletions)
	return r
}

func serve(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestLifecyclePolicyHandlerCreate(t *testing.T) {
	m := &lifecycleServiceMock{}
	r := newLifecycleRouter(m)

	body := []byte(`{"name":"nightly","rules":[{"level":"internal","retention":{"min_days":30,"max_days":365}}]}`)
	w := serve(r, http.MethodPost, "/lifecycle-policies", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "nightly", m.created.Name)
	require.Len(t, m.created.Rules, 1)
	assert.Equal(t, 365, m.created.Rules[0].Retention.MaxDays)

	w = serve(r, http.MethodPost, "/lifecycle-policies", []byte(`{"name":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestLifecyclePolicyHandlerReadAndUpdate(t *testing.T) {
	m := &lifecycleServiceMock{}
	r := newLifecycleRouter(m)

	w := serve(r, http.MethodGet, "/lifecycle-policies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode(t, w).Pagination.TotalCount)

	w = serve(r, http.MethodPatch, "/lifecycle-policies/pol-7", []byte(`{"name":"renamed"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"name":"renamed"`)

	w = serve(r, http.MethodDelete, "/lifecycle-policies/pol-7", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	m.getErr = appErrors.Clone(appErrors.ErrNotFound, "lifecycle policy not found")
	w = serve(r, http.MethodGet, "/lifecycle-policies/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "lifecycle policy not found", decode(t, w).Error.Message)
}

func TestLifecyclePolicyHandlerDryRun(t *testing.T) {
	r := newLifecycleRouter(&lifecycleServiceMock{})

	w := serve(r, http.MethodPost, "/lifecycle-policies/pol-3/dry-run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"policy_id":"pol-3"`)
}

func TestLifecyclePolicyHandlerEnforce(t *testing.T) {
	m := &lifecycleServiceMock{report: &models.EnforcementReport{PolicyID: "pol-1", DeletedCount: 2}}
	r := newLifecycleRouter(m)

	w := serve(r, http.MethodPost, "/lifecycle-policies/pol-1/enforce", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"deleted_count":2`)

	m.enforceErr = appErrors.Clone(appErrors.ErrSourceUnavailable, "")
	m.report = &models.EnforcementReport{PolicyID: "pol-1", DeletedCount: 1}
	w = serve(r, http.MethodPost, "/lifecycle-policies/pol-1/enforce", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w)
	assert.Equal(t, "SOURCE_UNAVAILABLE", env.Error.Code)
	assert.Contains(t, string(env.Data), `"deleted_count":1`)

	m.enforceErr = appErrors.Clone(appErrors.ErrConflict, "enforcement already running for this policy")
	m.report = nil
	w = serve(r, http.MethodPost, "/lifecycle-policies/pol-1/enforce", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, decode(t, w).Data)
}

func TestLifecycleHandlerDeletions(t *testing.T) {
	m := &lifecycleServiceMock{}
	r := newLifecycleRouter(m)

	w := serve(r, http.MethodGet, "/lifecycle/deletions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, 100, env.Pagination.Limit)
	assert.Equal(t, 2, env.Pagination.TotalCount)

	w = serve(r, http.MethodGet, "/lifecycle/deletions?limit=5000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1000, m.listLimit)

	w = serve(r, http.MethodGet, "/lifecycle/deletions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	m.listLimit = 0
	w = serve(r, http.MethodGet, "/lifecycle/deletions?limit=-5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
	assert.Zero(t, m.listLimit, "invalid limits never reach the service")

	w = serve(r, http.MethodGet, "/lifecycle-policies/pol-1/deletions?limit=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, m.listLimit)

	w = serve(r, http.MethodGet, "/lifecycle-policies/pol-1/deletions?limit=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, m.listLimit)
}

func TestLifecycleHandlerExport(t *testing.T) {
	m := &lifecycleServiceMock{}
	r := newLifecycleRouter(m)

	w := serve(r, http.MethodGet, "/lifecycle/deletions/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="snapshot-deletions.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())

	w = serve(r, http.MethodGet, "/lifecycle/deletions/export?format=PDF&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/lifecycle/deletions/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid export query", decode(t, w).Error.Message)

	w = serve(r, http.MethodGet, "/lifecycle/deletions/export?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	m.exportErr = appErrors.Clone(appErrors.ErrInternal, "")
	w = serve(r, http.MethodGet, "/lifecycle/deletions/export", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLifecycleHandlerDryRunRulesAndReconcile(t *testing.T) {
	m := &lifecycleServiceMock{}
	r := newLifecycleRouter(m)

	w := serve(r, http.MethodPost, "/lifecycle/dry-run", []byte(`{"rules":[{"level":"public","retention":{"min_days":0,"max_days":0}}],"repository_ids":["repo-1"]}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"repo-1"}, m.dryRunRules.RepositoryIDs)

	w = serve(r, http.MethodPost, "/lifecycle-policies/pol-1/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"deletion_count":3`)
}

type legalHoldServiceMock struct {
	liftErr error
	placed  string
}

func (m *legalHoldServiceMock) Place(ctx context.Context, actor *models.JWTClaims, snapshotID string, req dto.PlaceLegalHoldRequest) (*models.LegalHold, error) {
	m.placed = snapshotID
	return &models.LegalHold{ID: "hold-1", OrgID: actor.OrgID, SnapshotID: snapshotID, Reason: req.Reason}, nil
}

func (m *legalHoldServiceMock) Lift(ctx context.Context, actor *models.JWTClaims, snapshotID string) error {
	return m.liftErr
}

func (m *legalHoldServiceMock) List(ctx context.Context, actor *models.JWTClaims) ([]models.LegalHold, error) {
	return []models.LegalHold{}, nil
}

func TestLegalHoldHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := &legalHoldServiceMock{}
	h := NewLegalHoldHandler(m)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", OrgID: "org-1", Role: models.RoleAdmin})
	})
	r.GET("/legal-holds", h.List)
	r.PUT("/legal-holds/:snapshot_id", h.Place)
	r.DELETE("/legal-holds/:snapshot_id", h.Lift)

	w := serve(r, http.MethodPut, "/legal-holds/snap-9", []byte(`{"reason":"litigation"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "snap-9", m.placed)

	w = serve(r, http.MethodGet, "/legal-holds", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodDelete, "/legal-holds/snap-9", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	m.liftErr = appErrors.Clone(appErrors.ErrNotFound, "legal hold not found")
	w = serve(r, http.MethodDelete, "/legal-holds/snap-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	up := NewMetricsHandler(nil, pingerStub{}, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	up.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")}, nil)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	down.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	down.Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsHandlerServesPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordDeletion(10)
	h := NewMetricsHandler(metrics, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lifecycle_snapshots_deleted_total")
}

package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestErrorUsesTypedStatus(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrConflict, "enforcement already running"))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.True(t, c.IsAborted())
}

func TestErrorRecordsInternalFailures(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("db down"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, c.Errors, 1)
}

func TestAttachment(t *testing.T) {
	c, w := newContext()
	Attachment(c, "deletions.csv", "text/csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="deletions.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestErrorWithDataKeepsPartialResult(t *testing.T) {
	c, w := newContext()
	ErrorWithData(c, appErrors.Clone(appErrors.ErrSourceUnavailable, ""), map[string]int{"deleted_count": 1})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Data  map[string]int   `json:"data"`
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data["deleted_count"])
	assert.Equal(t, "SOURCE_UNAVAILABLE", body.Error.Code)
	assert.Len(t, c.Errors, 1)
}

package job

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	post := func(d *Dispatcher, kind string, body any) *httptest.ResponseRecorder {
		r := gin.New()
		Register(r.Group("/api/v1"), d)
		payload, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+kind, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("Should dispatch the job and return the report", func(t *testing.T) {
		reporter := &MockReporter{}
		reporter.On("Fail", mock.Anything, mock.MatchedBy(func(j *Job) bool {
			return j.Key == "job-1" && j.Kind == KindUpdateStatus
		}), mock.Anything, 4).Return(nil)
		d := NewDispatcher(reporter, Collaborators{Entities: &MockEntityStore{}})

		w := post(d, "update_status", map[string]any{"key": "job-1", "retries": 5, "variables": map[string]any{}})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Data Report `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, OutcomeFailed, resp.Data.Outcome)
		reporter.AssertExpectations(t)
	})
	t.Run("Should return 404 for unknown kinds", func(t *testing.T) {
		w := post(NewDispatcher(&MockReporter{}, Collaborators{}), "teleport", map[string]any{"key": "k"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("Should require a job key", func(t *testing.T) {
		w := post(NewDispatcher(&MockReporter{}, Collaborators{}), "log_activity", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

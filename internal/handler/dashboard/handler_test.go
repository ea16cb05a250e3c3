package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/edupal/backend/internal/model/dashboard"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
)

func serve(path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(dashboard.NewMemoryStore()).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestDashboardView(t *testing.T) {
	resp := serve("/dashboard/student?userName=Lan")
	require.Equal(t, http.StatusOK, resp.Code)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Equal(t, role.Student, view.Role)
	assert.Contains(t, view.Headline, "Lan")
	assert.NotEmpty(t, view.Stats)
}

func TestDashboardViewDefaultsUserName(t *testing.T) {
	resp := serve("/dashboard/teacher")
	require.Equal(t, http.StatusOK, resp.Code)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Equal(t, "Xin chào, Nguyễn Văn A!", view.Headline)
}

func TestDashboardUnknownRole(t *testing.T) {
	resp := serve("/dashboard/guest")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

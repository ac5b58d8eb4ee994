package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/agent"
	"github.com/me-sharif-hasan/tunneller/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	doc := config.Defaults()
	doc.Domain = "agent.example"
	store, err := config.New(doc)
	require.NoError(t, err)
	a := agent.New(zap.NewNop(), store)
	return New(a, zap.NewNop())
}

func TestHandleStatusReportsIdleByDefault(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "IDLE", resp.State)
	require.False(t, resp.Running)
	require.Equal(t, "agent.example", resp.Domain)
}

func TestHandleAddRouteThenListRoutes(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(config.RuleSpec{PathPattern: "/api/*", TargetHost: "127.0.0.1", TargetPort: 8080, StripPrefix: true})

	req := httptest.NewRequest(http.MethodPost, "/routes/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/routes/", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var routes []config.RuleSpec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))
	require.Len(t, routes, 1)
	require.Equal(t, "/api/*", routes[0].PathPattern)
}

func TestHandleAddRouteRejectsInvalidSpec(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(config.RuleSpec{PathPattern: "", TargetHost: "", TargetPort: 0})

	req := httptest.NewRequest(http.MethodPost, "/routes/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteRouteOutOfRange(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/routes/5", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSetModeValidation(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(modeRequest{Mode: "BOGUS"})
	req := httptest.NewRequest(http.MethodPut, "/config/mode", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClientStartMarksAgentRunning(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/client/start", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, s.Agent.Running())
	s.Agent.Stop()
}

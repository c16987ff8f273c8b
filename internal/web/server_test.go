package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/meshwatch/internal/engine"
	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/probes"
	"github.com/user/meshwatch/internal/roster"
	"github.com/user/meshwatch/internal/topology"
)

type downSource struct{}

func (downSource) Fetch(stop func() bool) (string, error) {
	return "", errors.New("router unreachable")
}

type stubProbe struct {
	kind    model.Kind
	release chan struct{}
}

func (p stubProbe) Kind() model.Kind { return p.kind }

func (p stubProbe) Check(address string, stop func() bool) model.Outcome {
	if p.release != nil {
		<-p.release
	}
	return model.PingOutcome{PacketsTx: 1, PacketsRx: 1}
}

func testServer(t *testing.T, release chan struct{}) *Server {
	t.Helper()

	r, err := roster.New([]model.Device{
		{Label: "A", Address: "fd12::a"},
		{Label: "B", Address: "fd12::b"},
	})
	require.NoError(t, err)

	source := downSource{}
	cache := topology.NewCache(source, nil, time.Minute, nil)
	feed := engine.NewFeed()
	eng := engine.New(engine.NewRegistry(), r, cache, feed, feed, probes.Settings{}, "")
	eng.SetFactory(func(kind model.Kind, s probes.Settings) (probes.Probe, error) {
		return stubProbe{kind: kind, release: release}, nil
	})

	return NewServer(eng, feed, source, 0)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func waitIdle(t *testing.T, s *Server, kind model.Kind) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !s.eng.Registry().Status(kind).Running {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("run never finished")
}

func TestStartRejectsBadRequests(t *testing.T) {
	s := testServer(t, nil)

	w := postJSON(t, s.handleStart, "/api/start_test", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, s.handleStart, "/api/start_test", `{"test_type":"traceroute"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartConflictOnDuplicate(t *testing.T) {
	release := make(chan struct{})
	s := testServer(t, release)

	w := postJSON(t, s.handleStart, "/api/start_test", `{"test_type":"ping"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, s.handleStart, "/api/start_test", `{"test_type":"ping"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Test already running")

	close(release)
	waitIdle(t, s, model.KindPing)
}

func TestControlEndpointsRequirePost(t *testing.T) {
	s := testServer(t, nil)

	handlers := []http.HandlerFunc{
		s.handleStart, s.handleStop, s.handlePause, s.handleResume, s.handleRetest,
	}
	for _, h := range handlers {
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		w := httptest.NewRecorder()
		h(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	}

	// No state was touched by the rejected calls.
	assert.False(t, s.eng.Registry().Status(model.KindPing).Running)
}

func TestControlEndpointsArePermissive(t *testing.T) {
	s := testServer(t, nil)

	// Stopping, pausing and resuming an idle kind all succeed.
	for _, h := range []http.HandlerFunc{s.handleStop, s.handlePause, s.handleResume} {
		w := postJSON(t, h, "/api/x", `{"test_type":"signal"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/test_status/ping", nil)
	w := httptest.NewRecorder()
	s.handleStatus(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var state model.RunState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, model.KindPing, state.Kind)
	assert.False(t, state.Running)

	req = httptest.NewRequest(http.MethodGet, "/api/test_status/bogus", nil)
	w = httptest.NewRecorder()
	s.handleStatus(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressEndpoint(t *testing.T) {
	s := testServer(t, nil)

	w := postJSON(t, s.handleStart, "/api/start_test", `{"test_type":"ping"}`)
	require.Equal(t, http.StatusOK, w.Code)
	waitIdle(t, s, model.KindPing)

	req := httptest.NewRequest(http.MethodGet, "/api/progress/ping", nil)
	rec := httptest.NewRecorder()
	s.handleProgress(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events []model.ProgressEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 2)
	assert.Equal(t, "A", resp.Events[0].Device.Label)
}

func TestTopologyLookupRequiresAddress(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/topology/lookup", nil)
	w := httptest.NewRecorder()
	s.handleTopologyLookup(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/topology/lookup?address=fd12::a", nil)
	w = httptest.NewRecorder()
	s.handleTopologyLookup(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"found":false`)
}

func TestRetestRequiresTarget(t *testing.T) {
	s := testServer(t, nil)

	w := postJSON(t, s.handleRetest, "/api/retest_device", `{"test_type":"ping","label":"A"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, s.handleRetest, "/api/retest_device", `{"test_type":"ping","ip":"fd12::a","label":"A"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

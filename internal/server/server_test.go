package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/responsed/internal/compression"
	"github.com/fyrsmithlabs/responsed/pkg/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(engine.New(zap.NewNop()), zap.NewNop(), nil)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestNewServer_NilEngine(t *testing.T) {
	_, err := NewServer(nil, zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePlan(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/plan",
		`{"message":"Is the API healthy?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var plan engine.Plan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, 256, plan.MaxTokens)
	assert.Less(t, plan.ThinkingBudget, 8192)
	assert.NotEmpty(t, plan.Instruction)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/plan", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/plan", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompress(t *testing.T) {
	s := newTestServer(t)

	body := fmt.Sprintf(`{"text":%q,"mode":"light"}`,
		"I hope this helps! The deploy is complete.")
	rec := doJSON(t, s, http.MethodPost, "/api/v1/compress", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var res compression.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotContains(t, res.Compressed, "I hope this helps")
	assert.LessOrEqual(t, res.CompressedLength, res.OriginalLength)

	// Default mode is auto; short text selects none.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/compress", `{"text":"short"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, compression.ModeNone, res.Mode)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/compress", `{"text":"x","mode":"extreme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/compress", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleValidate(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/validate",
		`{"message":"Is it up?","response":"{\"answer\":true,\"reason\":\"all green\"}"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Valid)

	// Validation failures are 200s with errors in the body.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/validate",
		`{"message":"Is it up?","response":"not json"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)
}

func TestStreamLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/streams",
		`{"mode":"light","sentence_threshold":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created StreamCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.StreamID)

	chunkPath := "/api/v1/streams/" + created.StreamID + "/chunks"

	rec = doJSON(t, s, http.MethodPost, chunkPath, `{"chunk":"First sentence here. "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out StreamOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "First sentence here. ", out.Output)

	rec = doJSON(t, s, http.MethodPost, chunkPath, `{"chunk":"Second sentence here."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Output, "First sentence here.")
	assert.Contains(t, out.Output, "Second sentence here.")

	rec = doJSON(t, s, http.MethodPost, "/api/v1/streams/"+created.StreamID+"/flush", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Flushing ends the session.
	rec = doJSON(t, s, http.MethodPost, chunkPath, `{"chunk":"late"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamDelete(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/streams", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created StreamCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/streams/"+created.StreamID, nil)
	w := httptest.NewRecorder()
	s.Echo().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	s.Echo().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamUnknownMode(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/v1/streams", `{"mode":"extreme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

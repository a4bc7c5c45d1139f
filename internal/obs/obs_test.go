package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestFrom_AddsScenarioCorrelation(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	ctx := WithScenario(context.Background(), "3D model viewer", "preview a model")
	ctx = WithStep(ctx, "the user previews the file \"cube.obj\"")
	From(ctx).Info("step_started")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	require.Equal(t, "step_started", entries[0]["msg"])
	require.Equal(t, "3D model viewer", entries[0]["feature"])
	require.Equal(t, "preview a model", entries[0]["scenario"])
	require.Equal(t, "the user previews the file \"cube.obj\"", entries[0]["step"])
	require.True(t, strings.HasPrefix(entries[0]["scenario_id"].(string), "scn-"))
}

func TestWithScenario_ResetsStepAndID(t *testing.T) {
	first := WithStep(WithScenario(context.Background(), "f", "a"), "step one")
	second := WithScenario(first, "f", "b")

	c1 := CorrelationFromContext(first)
	c2 := CorrelationFromContext(second)
	require.NotEqual(t, c1.ScenarioID, c2.ScenarioID)
	require.Empty(t, c2.Step)
	require.Equal(t, "b", c2.Scenario)
}

func TestCorrelationFromContext_Empty(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	require.Equal(t, Correlation{}, CorrelationFromContext(nil))
	require.Equal(t, Correlation{}, CorrelationFromContext(context.Background()))
}

func TestAccessLogMiddleware_RecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	handler := AccessLogMiddleware("fakeocis", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, CorrelationFromContext(r.Context()).RequestID)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPut, "/remote.php/dav/files/admin/cube.obj", strings.NewReader("v 0 0 0"))
	req.Header.Set("X-Request-Id", "req-fixed")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "req-fixed", rec.Header().Get("X-Request-Id"))
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	require.Equal(t, "http_access", entries[0]["msg"])
	require.Equal(t, "fakeocis", entries[0]["pkg"])
	require.Equal(t, float64(http.StatusCreated), entries[0]["status"])
	require.Equal(t, float64(2), entries[0]["resp_bytes"])
	require.Equal(t, "req-fixed", entries[0]["request_id"])
}

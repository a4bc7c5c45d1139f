package main

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"features"}, splitList("features"))
	require.Equal(t, []string{"a.feature", "b"}, splitList(" a.feature, ,b ,"))
	require.Empty(t, splitList(""))
}

func TestRun_InvalidConfigExitsWithUsageCode(t *testing.T) {
	t.Setenv("BASE_URL_OCIS", "not a url")
	require.Equal(t, 2, run(runOptions{paths: "features", format: "progress", concurrency: 1}))
}

func TestStartFake_ServesLoginPage(t *testing.T) {
	baseURL, stop, err := startFake("admin", "admin")
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get(baseURL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `id="oc-login-username"`)
}

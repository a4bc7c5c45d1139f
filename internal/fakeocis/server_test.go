package fakeocis

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/viewer-e2e/internal/ratelimit"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	fake := New("admin", "admin")
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return fake, srv
}

func davRequest(t *testing.T, method, target, body string, withAuth bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	if withAuth {
		req.SetBasicAuth("admin", "admin")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestDAV_PutListDeleteAndEmptyTrash(t *testing.T) {
	fake, srv := newTestServer(t)
	ctx := context.Background()

	resp := davRequest(t, http.MethodPut, srv.URL+"/remote.php/dav/files/admin/cube.obj", "v 0 0 0\n", true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	names, err := fake.Files(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"cube.obj"}, names)

	resp = davRequest(t, "PROPFIND", srv.URL+"/remote.php/dav/files/admin/cube.obj", "", true)
	require.Equal(t, http.StatusMultiStatus, resp.StatusCode)

	resp = davRequest(t, http.MethodDelete, srv.URL+"/remote.php/dav/files/admin/cube.obj", "", true)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, []string{"cube.obj"}, fake.Trash())

	names, err = fake.Files(ctx)
	require.NoError(t, err)
	require.Empty(t, names)

	resp = davRequest(t, http.MethodDelete, srv.URL+"/remote.php/dav/trash-bin/admin", "", true)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, fake.Trash())
	require.Equal(t, 1, fake.TrashPurges())
}

func TestDAV_RejectsMissingOrForeignCredentials(t *testing.T) {
	_, srv := newTestServer(t)

	resp := davRequest(t, http.MethodPut, srv.URL+"/remote.php/dav/files/admin/cube.obj", "x", false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	resp = davRequest(t, http.MethodPut, srv.URL+"/remote.php/dav/files/einstein/cube.obj", "x", true)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = davRequest(t, http.MethodDelete, srv.URL+"/remote.php/dav/trash-bin/einstein", "", true)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLogin_SetsSessionAndRendersFiles(t *testing.T) {
	fake, srv := newTestServer(t)
	require.NoError(t, fake.PutFile(context.Background(), "teapot.stl", []byte("solid teapot")))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Contains(t, string(body), `id="oc-login-username"`)

	resp, err = client.PostForm(srv.URL+"/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotContains(t, string(body), `id="web-content"`)

	resp, err = client.PostForm(srv.URL+"/login", url.Values{"username": {"admin"}, "password": {"admin"}})
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `id="web-content"`)
	require.Contains(t, string(body), `data-test-resource-name="teapot.stl"`)

	// The session cookie also authorizes DAV uploads from the page.
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/remote.php/dav/files/admin/cube.obj", strings.NewReader("v 0 0 0"))
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = client.PostForm(srv.URL+"/logout", nil)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Contains(t, string(body), `id="oc-login-username"`)
}

func TestStaticAssetsServed(t *testing.T) {
	_, srv := newTestServer(t)
	for _, name := range []string{"app.js", "app.css"} {
		resp, err := http.Get(srv.URL + "/static/" + name)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, name)
	}
}

func TestDAV_RateLimitedAccountGets429(t *testing.T) {
	fake := New("admin", "admin", WithRateLimit(ratelimit.Config{RPS: 0.001, Burst: 2}))
	t.Cleanup(fake.Close)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	target := srv.URL + "/remote.php/dav/trash-bin/admin"
	for i := 0; i < 2; i++ {
		resp := davRequest(t, http.MethodDelete, target, "", true)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	resp := davRequest(t, http.MethodDelete, target, "", true)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("Retry-After"))
	require.Equal(t, 2, fake.TrashPurges())

	// The login page is never throttled.
	page, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	_ = page.Body.Close()
	require.Equal(t, http.StatusOK, page.StatusCode)
}

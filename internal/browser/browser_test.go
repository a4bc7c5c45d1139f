package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/viewer-e2e/internal/config"
)

func launchOrSkip(t *testing.T, opts Options) *Browser {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	b, err := Launch(opts)
	if err != nil {
		t.Skip("Playwright not available:", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Headless = true
	cfg.SlowMo = 120 * time.Millisecond

	opts := OptionsFromConfig(cfg)
	require.True(t, opts.Headless)
	require.Equal(t, 120*time.Millisecond, opts.SlowMo)
	require.Equal(t, 60*time.Second, opts.Timeout)
	require.Equal(t, "https://localhost:9200", opts.BaseURL)
	require.True(t, opts.IgnoreHTTPSErrors)
	require.False(t, opts.Install)
}

func TestSessions_AreIsolatedAndUseBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("seen"); err == nil {
			_, _ = w.Write([]byte("<p id='state'>returning</p>"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "seen", Value: "1", Path: "/"})
		_, _ = w.Write([]byte("<p id='state'>first</p>"))
	}))
	defer srv.Close()

	b := launchOrSkip(t, Options{Headless: true, Timeout: 5 * time.Second, BaseURL: srv.URL})
	ctx := context.Background()

	first, err := b.NewSession(ctx)
	require.NoError(t, err)
	defer first.Close()

	_, err = first.Page.Goto("/")
	require.NoError(t, err)
	_, err = first.Page.Reload()
	require.NoError(t, err)
	text, err := first.Page.Locator("#state").TextContent()
	require.NoError(t, err)
	require.Equal(t, "returning", text)

	second, err := b.NewSession(ctx)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.Page.Goto("/")
	require.NoError(t, err)
	text, err = second.Page.Locator("#state").TextContent()
	require.NoError(t, err)
	require.Equal(t, "first", text, "cookies must not leak between sessions")
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	b := launchOrSkip(t, Options{Headless: true, Timeout: 5 * time.Second})

	s, err := b.NewSession(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Page.Goto("about:blank")
	require.Error(t, err)
}

func TestSession_DefaultTimeoutApplies(t *testing.T) {
	b := launchOrSkip(t, Options{Headless: true, Timeout: 300 * time.Millisecond})

	s, err := b.NewSession(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Page.SetContent("<p>nothing here</p>"))
	start := time.Now()
	err = s.Page.Locator("#never").WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	})
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

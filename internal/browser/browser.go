// Package browser owns the Playwright process and hands out one isolated
// browser context per scenario.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/viewer-e2e/internal/config"
	"github.com/kuitang/viewer-e2e/internal/obs"
)

// Options controls how Chromium is launched and how sessions are set up.
type Options struct {
	Headless          bool
	SlowMo            time.Duration
	Timeout           time.Duration
	BaseURL           string
	IgnoreHTTPSErrors bool
	// Install downloads the Chromium build Playwright needs before launch.
	Install bool
}

// OptionsFromConfig maps suite configuration onto launch options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Headless:          cfg.Headless,
		SlowMo:            cfg.SlowMo,
		Timeout:           cfg.Timeout,
		BaseURL:           cfg.BaseURL,
		IgnoreHTTPSErrors: cfg.InsecureTLS,
	}
}

// Browser is a running Chromium instance.
type Browser struct {
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Playwright and Chromium.
func Launch(opts Options) (*Browser, error) {
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	obs.Pkg("browser").Info("browser_launched",
		"headless", opts.Headless,
		"slow_mo_ms", opts.SlowMo.Milliseconds(),
		"version", browser.Version(),
	)
	return &Browser{opts: opts, pw: pw, browser: browser}, nil
}

// Close stops Chromium and the Playwright driver. Safe to call twice.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = errors.Join(b.browser.Close(), b.pw.Stop())
	})
	return b.closeErr
}

// Session is one scenario's browser context and page.
type Session struct {
	Context playwright.BrowserContext
	Page    playwright.Page

	closeOnce sync.Once
	closeErr  error
}

// NewSession opens a fresh context and page. Cookies and storage are not
// shared with any other session.
func (b *Browser) NewSession(ctx context.Context) (*Session, error) {
	contextOpts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(b.opts.IgnoreHTTPSErrors),
	}
	if b.opts.BaseURL != "" {
		contextOpts.BaseURL = playwright.String(b.opts.BaseURL)
	}

	bctx, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	timeoutMS := float64(b.opts.Timeout.Milliseconds())
	if timeoutMS > 0 {
		bctx.SetDefaultTimeout(timeoutMS)
		bctx.SetDefaultNavigationTimeout(timeoutMS)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	obs.From(ctx).Debug("browser_session_opened", "pkg", "browser", "timeout_ms", timeoutMS)
	return &Session{Context: bctx, Page: page}, nil
}

// Close closes the browser context and every page in it. Safe to call twice.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Context.Close()
	})
	return s.closeErr
}

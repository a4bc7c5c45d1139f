// Package steps binds the Gherkin vocabulary of the viewer features to the
// page objects and the fixture client. Each scenario owns one browser
// context, carried in the step context, and is torn down by an After hook
// whether it passed or failed.
package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/kuitang/viewer-e2e/internal/browser"
	"github.com/kuitang/viewer-e2e/internal/config"
	"github.com/kuitang/viewer-e2e/internal/davclient"
	"github.com/kuitang/viewer-e2e/internal/errs"
	"github.com/kuitang/viewer-e2e/internal/obs"
	"github.com/kuitang/viewer-e2e/internal/pages"
)

// Fixtures is the subset of the WebDAV fixture client the bindings use.
type Fixtures interface {
	UploadFile(ctx context.Context, filename string) error
	DeleteFile(ctx context.Context, filename string) error
	EmptyTrashbin(ctx context.Context) error
}

var _ Fixtures = (*davclient.Client)(nil)

// Suite holds what scenarios share: configuration, the browser process and
// the fixture client.
type Suite struct {
	cfg      *config.Config
	browser  *browser.Browser
	fixtures Fixtures
}

// NewSuite creates the bindings for one test run.
func NewSuite(cfg *config.Config, b *browser.Browser, fixtures Fixtures) *Suite {
	return &Suite{cfg: cfg, browser: b, fixtures: fixtures}
}

// scenario is the per-scenario state. It never outlives its scenario.
type scenario struct {
	session  *browser.Session
	login    *pages.Session
	viewer   *pages.Viewer
	uploaded []string
}

// track records filename for teardown, once.
func (sc *scenario) track(filename string) {
	for _, name := range sc.uploaded {
		if name == filename {
			return
		}
	}
	sc.uploaded = append(sc.uploaded, filename)
}

type scenarioKey struct{}

func scenarioFrom(ctx context.Context) (*scenario, error) {
	sc, ok := ctx.Value(scenarioKey{}).(*scenario)
	if !ok || sc == nil {
		return nil, errs.New(errs.FailedPrecondition, "no browser session for this scenario")
	}
	return sc, nil
}

// InitializeScenario registers hooks and steps. It is the godog
// ScenarioInitializer for the viewer features.
func (s *Suite) InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(s.beforeScenario)
	ctx.After(s.afterScenario)
	ctx.StepContext().Before(func(ctx context.Context, st *godog.Step) (context.Context, error) {
		return obs.WithStep(ctx, st.Text), nil
	})
	s.registerSteps(ctx)
}

func (s *Suite) beforeScenario(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	ctx = obs.WithScenario(ctx, sc.Uri, sc.Name)

	session, err := s.browser.NewSession(ctx)
	if err != nil {
		return ctx, errs.Wrap(errs.Unavailable, "open browser session", err)
	}
	state := &scenario{
		session: session,
		login:   pages.NewSession(session.Page, s.cfg.BaseURL),
		viewer:  pages.NewViewer(session.Page, s.cfg.AssetsDir, s.cfg.MinTimeout),
	}
	obs.From(ctx).Info("scenario_started", "pkg", "steps")
	return context.WithValue(ctx, scenarioKey{}, state), nil
}

// afterScenario deletes every file the scenario uploaded, empties the trash
// bin and closes the browser context. Cleanup failures fail the scenario only
// when it had otherwise passed.
func (s *Suite) afterScenario(ctx context.Context, _ *godog.Scenario, scenarioErr error) (context.Context, error) {
	log := obs.From(ctx).With("pkg", "steps")
	sc, err := scenarioFrom(ctx)
	if err != nil {
		// Before failed; nothing was opened.
		return ctx, nil
	}

	var cleanupErrs []error
	for _, name := range sc.uploaded {
		if err := s.fixtures.DeleteFile(ctx, name); err != nil && !errs.Is(err, errs.NotFound) {
			cleanupErrs = append(cleanupErrs, fmt.Errorf("delete %q: %w", name, err))
		}
	}
	if len(sc.uploaded) > 0 {
		if err := s.fixtures.EmptyTrashbin(ctx); err != nil {
			cleanupErrs = append(cleanupErrs, fmt.Errorf("empty trash bin: %w", err))
		}
	}
	if err := sc.session.Close(); err != nil {
		cleanupErrs = append(cleanupErrs, fmt.Errorf("close browser session: %w", err))
	}

	cleanupErr := errors.Join(cleanupErrs...)
	status := "passed"
	if scenarioErr != nil {
		status = "failed"
	}
	if cleanupErr != nil {
		log.Warn("scenario_cleanup_failed", "status", status, "error", cleanupErr)
	}
	log.Info("scenario_finished", "status", status, "uploaded", len(sc.uploaded))

	if scenarioErr == nil && cleanupErr != nil {
		return ctx, errs.Wrap(errs.Internal, "scenario cleanup", cleanupErr)
	}
	return ctx, nil
}

// viewer-e2e runs the 3D model viewer feature files against an oCIS
// instance configured through the environment.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"

	"github.com/kuitang/viewer-e2e/internal/browser"
	"github.com/kuitang/viewer-e2e/internal/config"
	"github.com/kuitang/viewer-e2e/internal/davclient"
	"github.com/kuitang/viewer-e2e/internal/fakeocis"
	"github.com/kuitang/viewer-e2e/internal/obs"
	"github.com/kuitang/viewer-e2e/internal/steps"
)

func main() {
	paths := flag.String("paths", "features", "comma-separated feature files or directories")
	tags := flag.String("tags", "", "tag expression selecting scenarios, e.g. \"~@wip\"")
	format := flag.String("format", "pretty", "godog formatter: pretty, progress, cucumber, junit")
	concurrency := flag.Int("concurrency", 1, "scenarios run in parallel")
	install := flag.Bool("install", false, "download the Playwright Chromium build before running")
	fake := flag.Bool("fake", false, "run against an in-process fake oCIS instead of BASE_URL_OCIS")
	flag.Parse()

	os.Exit(run(runOptions{
		paths:       *paths,
		tags:        *tags,
		format:      *format,
		concurrency: *concurrency,
		install:     *install,
		fake:        *fake,
	}))
}

type runOptions struct {
	paths       string
	tags        string
	format      string
	concurrency int
	install     bool
	fake        bool
}

func run(ro runOptions) int {
	obs.Init()
	log := obs.Pkg("main")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error("config_invalid", "error", err)
		return 2
	}

	if ro.fake {
		baseURL, stop, err := startFake(cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			log.Error("fake_start_failed", "error", err)
			return 1
		}
		defer stop()
		cfg.BaseURL = baseURL
		log.Info("fake_started", "base_url", baseURL)
	}

	opts := browser.OptionsFromConfig(cfg)
	opts.Install = ro.install
	b, err := browser.Launch(opts)
	if err != nil {
		log.Error("browser_launch_failed", "error", err)
		return 1
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn("browser_close_failed", "error", err)
		}
	}()

	fixtures, err := davclient.New(davclient.Config{
		BaseURL:     cfg.BaseURL,
		User:        cfg.AdminUser,
		Password:    cfg.AdminPassword,
		AssetsDir:   cfg.AssetsDir,
		InsecureTLS: cfg.InsecureTLS,
		RPS:         cfg.FixtureRPS,
	})
	if err != nil {
		log.Error("fixture_client_invalid", "error", err)
		return 2
	}

	log.Info("run_started",
		"base_url", cfg.BaseURL,
		"paths", ro.paths,
		"tags", ro.tags,
		"concurrency", ro.concurrency,
		"headless", cfg.Headless,
	)

	status := godog.TestSuite{
		Name:                "viewer-e2e",
		ScenarioInitializer: steps.NewSuite(cfg, b, fixtures).InitializeScenario,
		Options: &godog.Options{
			Format:      ro.format,
			Paths:       splitList(ro.paths),
			Tags:        ro.tags,
			Concurrency: ro.concurrency,
			Output:      colors.Colored(os.Stdout),
		},
	}.Run()

	log.Info("run_finished", "status", status)
	return status
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// startFake serves the fake application on a loopback port.
func startFake(user, password string) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	fake := fakeocis.New(user, password)
	srv := &http.Server{Handler: fake.Handler()}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Pkg("main").Error("fake_serve_failed", "error", err)
		}
	}()
	stop := func() {
		_ = srv.Shutdown(context.Background())
		fake.Close()
	}
	return "http://" + ln.Addr().String(), stop, nil
}

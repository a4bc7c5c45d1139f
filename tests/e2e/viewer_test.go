package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"

	"github.com/kuitang/viewer-e2e/internal/browser"
	"github.com/kuitang/viewer-e2e/internal/config"
	"github.com/kuitang/viewer-e2e/internal/davclient"
	"github.com/kuitang/viewer-e2e/internal/steps"
)

// TestViewerFeatures runs features/ against the oCIS instance named by
// BASE_URL_OCIS. It only runs with OCIS_E2E=1, since it needs a live server
// and a Playwright Chromium install.
func TestViewerFeatures(t *testing.T) {
	if os.Getenv("OCIS_E2E") != "1" {
		t.Skip("set OCIS_E2E=1 to run the viewer features against a live oCIS")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("invalid configuration: %v", err)
	}
	cfg.AssetsDir = resolveFromRoot(cfg.AssetsDir)

	b, err := browser.Launch(browser.OptionsFromConfig(cfg))
	if err != nil {
		t.Fatalf("launch browser: %v", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			t.Logf("close browser: %v", err)
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
		t.Fatalf("fixture client: %v", err)
	}

	status := godog.TestSuite{
		Name:                "viewer",
		ScenarioInitializer: steps.NewSuite(cfg, b, fixtures).InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{resolveFromRoot("features")},
			Tags:     os.Getenv("E2E_TAGS"),
			TestingT: t,
		},
	}.Run()
	if status != 0 {
		t.Fatalf("feature run exited with status %d", status)
	}
}

func TestFixtureAssetsPresent(t *testing.T) {
	dir := resolveFromRoot(config.Default().AssetsDir)
	for _, name := range []string{"cube.obj", "tetrahedron.stl", "triangle.gltf"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("fixture %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("fixture %s is empty", name)
		}
	}
}

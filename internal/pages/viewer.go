package pages

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/viewer-e2e/internal/errs"
)

// maxDragSpacing is the horizontal inset of a rotation drag from the canvas edges.
const maxDragSpacing = 180

// Size is a height/width pair of CSS pixel strings, e.g. "720px".
type Size struct {
	Height string
	Width  string
}

func (s Size) String() string {
	return s.Width + "x" + s.Height
}

// Viewer drives the file list upload control and the 3D model viewer.
type Viewer struct {
	page       playwright.Page
	assetsDir  string
	minTimeout time.Duration
}

// NewViewer binds the viewer page object to page. Local files for uploads
// are resolved against assetsDir; minTimeout bounds checks that are expected
// to settle immediately, such as topbar visibility.
func NewViewer(page playwright.Page, assetsDir string, minTimeout time.Duration) *Viewer {
	return &Viewer{page: page, assetsDir: assetsDir, minTimeout: minTimeout}
}

// UploadFile uploads filename from the assets directory through the upload
// menu, dismisses the progress dialog, and waits for the file's row.
func (v *Viewer) UploadFile(filename string) error {
	localPath := filepath.Join(v.assetsDir, filepath.FromSlash(filename))
	if _, err := os.Stat(localPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.NotFound, fmt.Sprintf("fixture %q not found in %s", filename, v.assetsDir), err)
		}
		return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("stat fixture %q", filename), err)
	}

	if err := v.page.Locator(selUploadMenuButton).Click(); err != nil {
		return errs.Wrap(errs.Unavailable, "open upload menu", err)
	}
	if err := v.page.Locator(selFileUploadInput).SetInputFiles(localPath); err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("select %q for upload", filename), err)
	}
	if err := v.page.Locator(selUploadInfoClose).Click(); err != nil {
		return errs.Wrap(errs.Unavailable, "close upload info", err)
	}
	if err := v.waitVisible(ResourceRow(filename)); err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("uploaded file %q did not appear in the file list", filename), err)
	}
	return nil
}

// PreviewFile opens filename from the file list and waits for the viewport.
func (v *Viewer) PreviewFile(filename string) error {
	if err := v.page.Locator(ResourceRow(filename)).Click(); err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("open %q from file list", filename), err)
	}
	if err := v.waitVisible(selViewport); err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("viewport for %q did not appear", filename), err)
	}
	return nil
}

// CheckViewport asserts the viewport and canvas are visible and that the
// accessibility description names filename.
func (v *Viewer) CheckViewport(filename string) error {
	if err := v.waitVisible(selViewport); err != nil {
		return errs.Wrap(errs.Unavailable, "viewport not visible", err)
	}
	if err := v.waitVisible(selViewportCanvas); err != nil {
		return errs.Wrap(errs.Unavailable, "viewport canvas not visible", err)
	}
	description, err := v.ViewportDescription()
	if err != nil {
		return err
	}
	if !strings.Contains(description, filename) {
		return errs.New(errs.FailedPrecondition,
			fmt.Sprintf("viewport description %q does not mention %q", description, filename))
	}
	return nil
}

// CheckFileName asserts the topbar shows filename, both as the topbar
// resource entry and as the rendered basename plus extension.
func (v *Viewer) CheckFileName(filename string) error {
	if err := v.waitVisible(TopbarResource(filename)); err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("topbar entry for %q not visible", filename), err)
	}
	shown, err := v.TopbarResourceName()
	if err != nil {
		return err
	}
	shown = strings.NewReplacer("\n", "", "\r", "").Replace(shown)
	if !strings.Contains(shown, filename) {
		return errs.New(errs.FailedPrecondition,
			fmt.Sprintf("topbar shows %q, expected it to contain %q", shown, filename))
	}
	return nil
}

// CheckTopbarVisibility asserts the topbar is visible or hidden.
func (v *Viewer) CheckTopbarVisibility(shouldBeVisible bool) error {
	state, want := playwright.WaitForSelectorStateHidden, "hidden"
	if shouldBeVisible {
		state, want = playwright.WaitForSelectorStateVisible, "visible"
	}
	opts := playwright.LocatorWaitForOptions{State: state}
	if v.minTimeout > 0 {
		opts.Timeout = playwright.Float(float64(v.minTimeout.Milliseconds()))
	}
	if err := v.page.Locator(selTopbar).WaitFor(opts); err != nil {
		return errs.Wrap(errs.FailedPrecondition, "topbar expected to be "+want, err)
	}
	return nil
}

// CheckFullscreenMode asserts the viewport wrapper fills the window exactly.
func (v *Viewer) CheckFullscreenMode() error {
	wrapper, err := v.ViewportWrapperSize()
	if err != nil {
		return err
	}
	window, err := v.WindowInnerSize()
	if err != nil {
		return err
	}
	if wrapper != window {
		return errs.New(errs.FailedPrecondition,
			fmt.Sprintf("viewport wrapper is %s, window is %s", wrapper, window))
	}
	return nil
}

// CheckStandardDisplayMode has no observable check of its own yet; the
// standard-mode step pairs it with CheckTopbarVisibility(true).
func (v *Viewer) CheckStandardDisplayMode() error {
	return nil
}

// ToggleFullscreenMode clicks the fullscreen control.
func (v *Viewer) ToggleFullscreenMode() error {
	return v.click(selButtonFullscreen, "fullscreen")
}

// ResetViewport clicks the reset control.
func (v *Viewer) ResetViewport() error {
	return v.click(selButtonReset, "reset")
}

// DisplayNextModel clicks the next control.
func (v *Viewer) DisplayNextModel() error {
	return v.click(selButtonNext, "next")
}

// DisplayPreviousModel clicks the previous control.
func (v *Viewer) DisplayPreviousModel() error {
	return v.click(selButtonPrevious, "previous")
}

// ViewportDescription returns the viewport's screen-reader heading.
func (v *Viewer) ViewportDescription() (string, error) {
	text, err := v.page.Locator(selViewportDescription).TextContent()
	if err != nil {
		return "", errs.Wrap(errs.Unavailable, "read viewport description", err)
	}
	return text, nil
}

// TopbarResourceName returns the topbar basename joined with its extension.
func (v *Viewer) TopbarResourceName() (string, error) {
	base, err := v.page.Locator(selTopbarBasename).InnerText()
	if err != nil {
		return "", errs.Wrap(errs.Unavailable, "read topbar basename", err)
	}
	ext, err := v.page.Locator(selTopbarExtension).InnerText()
	if err != nil {
		return "", errs.Wrap(errs.Unavailable, "read topbar extension", err)
	}
	return base + ext, nil
}

// ViewportWrapperSize returns the wrapper's computed height and width.
func (v *Viewer) ViewportWrapperSize() (Size, error) {
	height, err := v.ComputedStyle(selViewportWrapper, "height")
	if err != nil {
		return Size{}, err
	}
	width, err := v.ComputedStyle(selViewportWrapper, "width")
	if err != nil {
		return Size{}, err
	}
	return Size{Height: height, Width: width}, nil
}

// WindowInnerSize returns window.innerHeight and innerWidth in px.
func (v *Viewer) WindowInnerSize() (Size, error) {
	raw, err := v.page.Evaluate(`() => [window.innerHeight + "px", window.innerWidth + "px"]`)
	if err != nil {
		return Size{}, errs.Wrap(errs.Unavailable, "read window size", err)
	}
	pair, ok := raw.([]interface{})
	if !ok || len(pair) != 2 {
		return Size{}, errs.New(errs.Internal, fmt.Sprintf("unexpected window size value %v", raw))
	}
	return Size{Height: fmt.Sprint(pair[0]), Width: fmt.Sprint(pair[1])}, nil
}

// ComputedStyle returns the computed CSS property of the first element
// matching selector.
func (v *Viewer) ComputedStyle(selector, property string) (string, error) {
	loc := v.page.Locator(selector).First()
	if err := loc.WaitFor(); err != nil {
		return "", errs.Wrap(errs.Unavailable, fmt.Sprintf("%s not present", selector), err)
	}
	value, err := loc.Evaluate(`(el, prop) => window.getComputedStyle(el).getPropertyValue(prop)`, property)
	if err != nil {
		return "", errs.Wrap(errs.Unavailable, fmt.Sprintf("computed %s of %s", property, selector), err)
	}
	s, ok := value.(string)
	if !ok {
		return "", errs.New(errs.Internal, fmt.Sprintf("computed %s of %s is %T", property, selector, value))
	}
	return s, nil
}

// RotateModel drags horizontally across the canvas.
func (v *Viewer) RotateModel() error {
	canvas := v.page.Locator(selViewportCanvas)
	if err := canvas.Focus(); err != nil {
		return errs.Wrap(errs.Unavailable, "focus canvas", err)
	}
	box, err := canvas.BoundingBox()
	if err != nil {
		return errs.Wrap(errs.Unavailable, "canvas bounding box", err)
	}
	if box == nil {
		return errs.New(errs.FailedPrecondition, "canvas is not rendered")
	}

	spacing := min(float64(maxDragSpacing), box.Width/4)
	startX := box.X + spacing
	endX := box.X + box.Width - 2*spacing
	y := box.Y + box.Height/2

	mouse := v.page.Mouse()
	if err := mouse.Move(startX, y); err != nil {
		return errs.Wrap(errs.Unavailable, "move to drag start", err)
	}
	if err := mouse.Down(); err != nil {
		return errs.Wrap(errs.Unavailable, "press mouse", err)
	}
	if err := mouse.Move(endX, y, playwright.MouseMoveOptions{Steps: playwright.Int(10)}); err != nil {
		return errs.Wrap(errs.Unavailable, "drag across canvas", err)
	}
	if err := mouse.Up(); err != nil {
		return errs.Wrap(errs.Unavailable, "release mouse", err)
	}
	return nil
}

// ZoomModel scrolls the mouse wheel over the canvas centre. Negative steps
// zoom in.
func (v *Viewer) ZoomModel(deltaY float64) error {
	canvas := v.page.Locator(selViewportCanvas)
	box, err := canvas.BoundingBox()
	if err != nil {
		return errs.Wrap(errs.Unavailable, "canvas bounding box", err)
	}
	if box == nil {
		return errs.New(errs.FailedPrecondition, "canvas is not rendered")
	}
	mouse := v.page.Mouse()
	if err := mouse.Move(box.X+box.Width/2, box.Y+box.Height/2); err != nil {
		return errs.Wrap(errs.Unavailable, "move to canvas", err)
	}
	if err := mouse.Wheel(0, deltaY); err != nil {
		return errs.Wrap(errs.Unavailable, "wheel over canvas", err)
	}
	return nil
}

func (v *Viewer) click(selector, control string) error {
	if err := v.page.Locator(selector).Click(); err != nil {
		return errs.Wrap(errs.Unavailable, "click "+control+" control", err)
	}
	return nil
}

func (v *Viewer) waitVisible(selector string) error {
	return v.page.Locator(selector).WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	})
}

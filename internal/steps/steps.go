package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/kuitang/viewer-e2e/internal/errs"
)

func (s *Suite) registerSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^the user has logged in with username "([^"]*)" and password "([^"]*)"$`, s.userHasLoggedIn)
	ctx.Step(`^the user has uploaded the following 3D models:$`, s.userHasUploaded)
	ctx.Step(`^the administrator has uploaded the following 3D models via WebDAV:$`, s.adminHasUploaded)
	ctx.Step(`^the user previews the file "([^"]*)" in the 3D model viewer$`, s.userPreviewsFile)
	ctx.Step(`^the 3D model "([^"]*)" should be displayed in the viewport$`, s.modelShouldBeDisplayed)
	ctx.Step(`^the file name "([^"]*)" should be shown in the topbar$`, s.fileNameShouldBeShown)
	ctx.Step(`^the user (?:enters|exits) fullscreen mode$`, s.userTogglesFullscreen)
	ctx.Step(`^the 3D model should be displayed in fullscreen mode$`, s.modelShouldBeFullscreen)
	ctx.Step(`^the 3D model should be display in standard mode$`, s.modelShouldBeStandard)
	ctx.Step(`^the user rotates the model$`, pending)
	ctx.Step(`^the user zooms into the model$`, pending)
	ctx.Step(`^the size and position of the 3D model will be changed accordingly$`, pending)
	ctx.Step(`^the user resets the viewport$`, s.userResetsViewport)
	ctx.Step(`^the 3D model should be display in the default size and position$`, pending)
	ctx.Step(`^the user navigates to the next model$`, s.userNavigatesNext)
	ctx.Step(`^the user navigates to the previous model$`, s.userNavigatesPrevious)
	ctx.Step(`^the user logs out$`, s.userLogsOut)
}

// pending marks camera manipulation steps that have no observable check.
func pending() error {
	return godog.ErrPending
}

func (s *Suite) userHasLoggedIn(ctx context.Context, username, password string) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	if err := sc.login.Open(); err != nil {
		return err
	}
	return sc.login.Login(username, password)
}

func (s *Suite) userHasUploaded(ctx context.Context, table *godog.Table) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	filenames, err := tableColumn(table, "filename")
	if err != nil {
		return err
	}
	for _, name := range filenames {
		sc.track(name)
		if err := sc.viewer.UploadFile(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Suite) adminHasUploaded(ctx context.Context, table *godog.Table) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	filenames, err := tableColumn(table, "filename")
	if err != nil {
		return err
	}
	for _, name := range filenames {
		sc.track(name)
		if err := s.fixtures.UploadFile(ctx, name); err != nil {
			return err
		}
	}
	// A files list that is already open only shows the new files after a reload.
	if page := sc.session.Page; page.URL() != "about:blank" {
		if _, err := page.Reload(); err != nil {
			return errs.Wrap(errs.Unavailable, "reload after fixture upload", err)
		}
	}
	return nil
}

func (s *Suite) userPreviewsFile(ctx context.Context, filename string) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	return sc.viewer.PreviewFile(filename)
}

func (s *Suite) modelShouldBeDisplayed(ctx context.Context, filename string) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	return sc.viewer.CheckViewport(filename)
}

func (s *Suite) fileNameShouldBeShown(ctx context.Context, filename string) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	if err := sc.viewer.CheckTopbarVisibility(true); err != nil {
		return err
	}
	return sc.viewer.CheckFileName(filename)
}

func (s *Suite) userTogglesFullscreen(ctx context.Context) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	return sc.viewer.ToggleFullscreenMode()
}

func (s *Suite) modelShouldBeFullscreen(ctx context.Context) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	if err := sc.viewer.CheckFullscreenMode(); err != nil {
		return err
	}
	return sc.viewer.CheckTopbarVisibility(false)
}

func (s *Suite) modelShouldBeStandard(ctx context.Context) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	if err := sc.viewer.CheckStandardDisplayMode(); err != nil {
		return err
	}
	return sc.viewer.CheckTopbarVisibility(true)
}

func (s *Suite) userResetsViewport(ctx context.Context) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	return sc.viewer.ResetViewport()
}

func (s *Suite) userNavigatesNext(ctx context.Context) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	return sc.viewer.DisplayNextModel()
}

func (s *Suite) userNavigatesPrevious(ctx context.Context) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	return sc.viewer.DisplayPreviousModel()
}

func (s *Suite) userLogsOut(ctx context.Context) error {
	sc, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	return sc.login.Logout()
}

// tableColumn returns the values of column, using the first row as header.
func tableColumn(table *godog.Table, column string) ([]string, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, errs.New(errs.InvalidArgument, "data table is empty")
	}
	idx := -1
	for i, cell := range table.Rows[0].Cells {
		if cell.Value == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("data table has no %q column", column))
	}

	values := make([]string, 0, len(table.Rows)-1)
	for n, row := range table.Rows[1:] {
		if idx >= len(row.Cells) {
			return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("data table row %d has no %q cell", n+1, column))
		}
		values = append(values, row.Cells[idx].Value)
	}
	return values, nil
}

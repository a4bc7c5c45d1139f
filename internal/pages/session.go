package pages

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/viewer-e2e/internal/errs"
)

// Session drives the login form and the account menu.
type Session struct {
	page    playwright.Page
	baseURL string
}

// NewSession binds the session page object to page.
func NewSession(page playwright.Page, baseURL string) *Session {
	return &Session{page: page, baseURL: baseURL}
}

// Open navigates to the application's start page.
func (s *Session) Open() error {
	if _, err := s.page.Goto(s.baseURL); err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("open %s", s.baseURL), err)
	}
	return nil
}

// Login submits the login form and blocks until the authenticated shell is
// rendered. Wrong credentials surface as a timeout on that wait.
func (s *Session) Login(username, password string) error {
	if err := s.page.Locator(selUsername).Fill(username); err != nil {
		return errs.Wrap(errs.Unavailable, "fill username", err)
	}
	if err := s.page.Locator(selPassword).Fill(password); err != nil {
		return errs.Wrap(errs.Unavailable, "fill password", err)
	}
	if err := s.page.Locator(selLoginButton).Click(); err != nil {
		return errs.Wrap(errs.Unavailable, "submit login", err)
	}
	if err := s.page.Locator(selWebContent).WaitFor(); err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("login as %q: main content did not load", username), err)
	}
	return nil
}

// Logout opens the user menu and clicks log out. There is no post-condition.
func (s *Session) Logout() error {
	if err := s.page.Locator(selUserMenuButton).Click(); err != nil {
		return errs.Wrap(errs.Unavailable, "open user menu", err)
	}
	if err := s.page.Locator(selLogout).Click(); err != nil {
		return errs.Wrap(errs.Unavailable, "click logout", err)
	}
	return nil
}

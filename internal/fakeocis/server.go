// Package fakeocis is a self-contained stand-in for the oCIS web application.
// It serves the login form, the files table, the 3D model viewer markup and a
// WebDAV file tree with the same selectors and routes as the real product, so
// the suite's page objects, bindings and fixture client can be exercised
// against an in-process httptest server.
package fakeocis

import (
	"context"
	"crypto/subtle"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/webdav"

	"github.com/kuitang/viewer-e2e/internal/errs"
	"github.com/kuitang/viewer-e2e/internal/obs"
	"github.com/kuitang/viewer-e2e/internal/ratelimit"
	"github.com/kuitang/viewer-e2e/internal/urlutil"
)

// SessionCookieName is the cookie set after a successful form login.
const SessionCookieName = "oc_session"

//go:embed assets
var assetsFS embed.FS

var pageTemplates = template.Must(template.ParseFS(assetsFS, "assets/*.html.tmpl"))

// Server is the fake application. The zero value is not usable; use New.
type Server struct {
	user     string
	password string

	files   webdav.FileSystem
	dav     *webdav.Handler
	limiter *ratelimit.RateLimiter

	mu       sync.Mutex
	sessions map[string]struct{}
	trash    []string
	purges   int
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit throttles WebDAV requests per account, answering 429 like an
// overloaded oCIS proxy.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		s.limiter = ratelimit.NewRateLimiter(cfg)
	}
}

// New creates a fake application with one account.
func New(user, password string, opts ...Option) *Server {
	files := webdav.NewMemFS()
	s := &Server{
		user:     user,
		password: password,
		files:    files,
		dav: &webdav.Handler{
			Prefix:     "/" + strings.TrimSuffix(urlutil.DAVPath(user, ""), "/"),
			FileSystem: files,
			LockSystem: webdav.NewMemLS(),
		},
		sessions: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases background resources. The handler stays usable.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Handler returns the HTTP handler serving every route of the fake.
func (s *Server) Handler() http.Handler {
	static, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /files", s.handleFiles)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.Handle("/remote.php/dav/files/{user}/", s.throttle(http.HandlerFunc(s.handleDAV)))
	mux.Handle("/remote.php/dav/files/{user}", s.throttle(http.HandlerFunc(s.handleDAV)))
	mux.Handle("DELETE /remote.php/dav/trash-bin/{user}", s.throttle(http.HandlerFunc(s.handleEmptyTrash)))
	return obs.AccessLogMiddleware("fakeocis", mux)
}

// PutFile stores a file directly, bypassing HTTP.
func (s *Server) PutFile(ctx context.Context, name string, content []byte) error {
	f, err := s.files.OpenFile(ctx, "/"+name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Files returns the sorted names of the files in the account root.
func (s *Server) Files(ctx context.Context) ([]string, error) {
	dir, err := s.files.OpenFile(ctx, "/", os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer dir.Close()
	infos, err := dir.Readdir(-1)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Trash returns the names deleted since the trash bin was last emptied.
func (s *Server) Trash() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.trash...)
}

// TrashPurges returns how many times the trash bin was emptied.
func (s *Server) TrashPurges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purges
}

type pageData struct {
	User      string
	LoginFail bool
	Files     []string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		obs.Pkg("fakeocis").Error("render_failed", "template", name, "error", err)
	}
}

func (s *Server) throttle(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return ratelimit.Middleware(s.limiter, s.accountOf)(next)
}

// accountOf names the account a request acts as, or "" when anonymous.
func (s *Server) accountOf(r *http.Request) string {
	if user, _, ok := r.BasicAuth(); ok {
		return user
	}
	if s.hasSession(r) {
		return s.user
	}
	return ""
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.hasSession(r) {
		http.Redirect(w, r, "/files", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html.tmpl", pageData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.credentialsMatch(r.PostForm.Get("username"), r.PostForm.Get("password")) {
		s.render(w, http.StatusUnauthorized, "login.html.tmpl", pageData{LoginFail: true})
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = struct{}{}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/files", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if !s.hasSession(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	names, err := s.Files(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "files.html.tmpl", pageData{User: s.user, Files: names})
}

func (s *Server) handleDAV(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		writeError(w, err)
		return
	}
	if r.Method == http.MethodDelete {
		name := strings.TrimPrefix(r.URL.Path, s.dav.Prefix)
		if _, err := s.files.Stat(r.Context(), name); err == nil {
			s.mu.Lock()
			s.trash = append(s.trash, path.Base(name))
			s.mu.Unlock()
		}
	}
	s.dav.ServeHTTP(w, r)
}

func (s *Server) handleEmptyTrash(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	s.trash = nil
	s.purges++
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// authorize accepts Basic auth or a session cookie, and only for the
// account's own namespace.
func (s *Server) authorize(r *http.Request) error {
	user, password, ok := r.BasicAuth()
	switch {
	case ok && s.credentialsMatch(user, password):
	case !ok && s.hasSession(r):
	default:
		return errs.New(errs.Unauthenticated, "authentication required")
	}
	if r.PathValue("user") != s.user {
		return errs.New(errs.PermissionDenied, "namespace belongs to another user")
	}
	return nil
}

func (s *Server) credentialsMatch(user, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	return userOK && passOK
}

func (s *Server) hasSession(r *http.Request) bool {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[c.Value]
	return ok
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	if code == errs.Unauthenticated {
		w.Header().Set("WWW-Authenticate", `Basic realm="fakeocis"`)
	}
	http.Error(w, err.Error(), errs.HTTPStatus(code))
}

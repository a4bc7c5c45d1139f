// Package davclient seeds and removes test fixtures through the oCIS WebDAV
// API, independent of any browser session.
package davclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/kuitang/viewer-e2e/internal/errs"
	"github.com/kuitang/viewer-e2e/internal/logutil"
	"github.com/kuitang/viewer-e2e/internal/obs"
	"github.com/kuitang/viewer-e2e/internal/urlutil"
)

const maxErrorBodyChars = 200

// Client issues authenticated WebDAV requests for one user namespace.
type Client struct {
	httpClient *http.Client
	baseURL    string
	user       string
	password   string
	assetsDir  string
	limiter    *rate.Limiter
}

// Config holds the configuration for creating a fixture client.
type Config struct {
	// BaseURL is the oCIS origin, e.g. "https://localhost:9200".
	BaseURL string
	// User and Password are the Basic auth credentials; User also names the
	// DAV namespace files are written to.
	User     string
	Password string
	// AssetsDir is the local directory fixture files are read from.
	AssetsDir string
	// InsecureTLS disables certificate verification for self-signed dev servers.
	InsecureTLS bool
	// RPS throttles requests when positive.
	RPS float64
	// HTTPClient overrides the client built from InsecureTLS.
	HTTPClient *http.Client
}

// New creates a fixture client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errs.New(errs.InvalidArgument, "davclient: base URL is required")
	}
	if cfg.User == "" {
		return nil, errs.New(errs.InvalidArgument, "davclient: user is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureTLS {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // dev certificates
		}
		httpClient = &http.Client{Transport: transport}
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		user:       cfg.User,
		password:   cfg.Password,
		assetsDir:  cfg.AssetsDir,
		limiter:    limiter,
	}, nil
}

// FileURL returns the DAV URL of filename in the client's namespace.
func (c *Client) FileURL(filename string) string {
	return urlutil.JoinPath(c.baseURL, urlutil.DAVPath(c.user, filename))
}

// UploadFile reads filename from the assets directory and PUTs it into the
// user's namespace. A missing local file fails before any request is sent.
func (c *Client) UploadFile(ctx context.Context, filename string) error {
	content, err := os.ReadFile(filepath.Join(c.assetsDir, filepath.FromSlash(filename)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.NotFound, fmt.Sprintf("fixture %q not found in %s", filename, c.assetsDir), err)
		}
		return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("read fixture %q", filename), err)
	}
	return c.do(ctx, http.MethodPut, urlutil.DAVPath(c.user, filename), content, nil)
}

// DeleteFile removes filename from the user's namespace. oCIS moves it to
// the trash bin.
func (c *Client) DeleteFile(ctx context.Context, filename string) error {
	return c.do(ctx, http.MethodDelete, urlutil.DAVPath(c.user, filename), nil, nil)
}

// EmptyTrashbin purges every soft-deleted item of the user.
func (c *Client) EmptyTrashbin(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, urlutil.TrashbinPath(c.user), nil, nil)
}

// Exists reports whether filename is present, using a depth-0 PROPFIND.
func (c *Client) Exists(ctx context.Context, filename string) (bool, error) {
	header := http.Header{}
	header.Set("Depth", "0")
	err := c.do(ctx, "PROPFIND", urlutil.DAVPath(c.user, filename), nil, header)
	if err == nil {
		return true, nil
	}
	if errs.Is(err, errs.NotFound) {
		return false, nil
	}
	return false, err
}

// do performs one request against base URL + relPath with Basic auth.
// Responses outside 2xx are returned as coded errors; nothing is retried.
func (c *Client) do(ctx context.Context, method, relPath string, body []byte, header http.Header) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errs.Wrap(errs.Unavailable, fmt.Sprintf("%s %s: throttle", method, relPath), err)
		}
	}

	target := urlutil.JoinPath(c.baseURL, relPath)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("%s %s: build request", method, relPath), err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.SetBasicAuth(c.user, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if corr := obs.CorrelationFromContext(ctx); corr.ScenarioID != "" {
		req.Header.Set("X-Request-Id", corr.ScenarioID)
	}

	log := obs.From(ctx).With("pkg", "davclient")
	log.Debug("dav_request",
		"method", method,
		"url", logutil.RedactURL(target),
		"headers", logutil.FormatHeadersForLog(req.Header),
		"req_bytes", len(body),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("%s %s", method, logutil.RedactURL(target)), err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	log.Debug("dav_response", "method", method, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("%s %s: unexpected status %d", method, logutil.RedactURL(target), resp.StatusCode)
		if preview := logutil.TruncateForLog(string(respBody), maxErrorBodyChars); preview != "" {
			msg += ": " + preview
		}
		return errs.New(errs.CodeFromHTTPStatus(resp.StatusCode), msg)
	}
	return nil
}

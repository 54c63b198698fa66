package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"collection-manager/core/derivative"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var (
	// ErrNotFound is returned when the remote rejects a request for a missing or hidden resource.
	// It is terminal and never retried.
	ErrNotFound = errors.New("remote resource not found")
	// ErrAuth is returned when the client cannot obtain an access token.
	ErrAuth = errors.New("remote authentication failed")
)

// Bookmark visibilities.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Client talks to the remote illustration API.
type Client struct {
	cfg    Config
	api    *http.Client
	files  *http.Client
	fs     afero.Fs
	cache  *DetailCache
	logger *zap.Logger
	wait   time.Duration
}

// NewClient authenticates with the refresh token and returns a ready client.
// Authentication failures are wrapped in ErrAuth.
func NewClient(ctx context.Context, cfg Config, fs afero.Fs, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token not configured", ErrAuth)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	base := &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"User-Agent":      cfg.UserAgent,
				"Accept-Language": cfg.Language,
				"App-OS":          "android",
				"Referer":         cfg.Referer,
			},
		},
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.AuthURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
	ts := oauthCfg.TokenSource(authCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	api := oauth2.NewClient(authCtx, ts)
	api.Timeout = timeout

	return &Client{
		cfg:    cfg,
		api:    api,
		files:  base,
		fs:     fs,
		cache:  NewDetailCache(),
		logger: logger,
		wait:   time.Duration(cfg.WaitMS) * time.Millisecond,
	}, nil
}

// Cache returns the per-run detail cache.
func (c *Client) Cache() *DetailCache {
	return c.cache
}

// Remember seeds the detail cache with a payload obtained elsewhere, such as a bookmark page.
func (c *Client) Remember(illust *Illust) {
	c.cache.Put(illust)
}

// IllustDetail returns the detail of one illustration, consulting the per-run cache first.
func (c *Client) IllustDetail(ctx context.Context, id int) (*Illust, error) {
	return c.cache.GetOrFetch(ctx, id, c.fetchDetail)
}

func (c *Client) fetchDetail(ctx context.Context, id int) (*Illust, error) {
	u := c.endpoint("/v1/illust/detail", url.Values{
		"illust_id": {strconv.Itoa(id)},
		"filter":    {"for_android"},
	})

	var illust *Illust
	err := c.retry(ctx, "illust_detail", func() error {
		var resp detailResponse
		if err := c.getJSON(ctx, u, &resp); err != nil {
			return err
		}
		if resp.Error != nil {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, resp.Error))
		}
		if resp.Illust == nil {
			return errors.New("response carries no illust")
		}
		illust = resp.Illust
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("illust %d: %w", id, err)
	}
	return illust, nil
}

// BookmarkPage fetches one page of a user's bookmarks.
// An empty cursor requests the first page; otherwise cursor is the NextURL of the previous page.
func (c *Client) BookmarkPage(ctx context.Context, userID int, visibility, cursor string) (*BookmarkPage, error) {
	if visibility != VisibilityPublic && visibility != VisibilityPrivate {
		return nil, fmt.Errorf("invalid bookmark visibility %q", visibility)
	}

	query := url.Values{
		"user_id":  {strconv.Itoa(userID)},
		"restrict": {visibility},
	}
	if cursor != "" {
		next, err := url.Parse(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid bookmark cursor: %w", err)
		}
		query = next.Query()
	}
	u := c.endpoint("/v1/user/bookmarks/illust", query)

	var page *BookmarkPage
	err := c.retry(ctx, "user_bookmarks_illust", func() error {
		var resp bookmarkResponse
		if err := c.getJSON(ctx, u, &resp); err != nil {
			return err
		}
		if resp.Error != nil {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, resp.Error))
		}
		page = &BookmarkPage{Illusts: resp.Illusts}
		if resp.NextURL != nil {
			page.NextURL = *resp.NextURL
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bookmarks of user %d: %w", userID, err)
	}
	return page, nil
}

// Download stores the asset at rawURL in dir and returns its filename.
// The file is fully decoded after transfer; truncated or corrupt files count as failed
// attempts. A failed download never leaves a partial file behind.
func (c *Client) Download(ctx context.Context, rawURL, dir string) (string, error) {
	name := FileName(rawURL)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive filename from %q", rawURL)
	}
	dst := filepath.Join(dir, name)

	err := c.retry(ctx, "download", func() error {
		if err := c.fetchFile(ctx, rawURL, dst); err != nil {
			c.removePartial(dst)
			return err
		}
		if err := derivative.Verify(c.fs, dst); err != nil {
			c.removePartial(dst)
			return err
		}
		return nil
	})
	if err != nil {
		c.removePartial(dst)
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	return name, nil
}

func (c *Client) fetchFile(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	res, err := c.files.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer res.Body.Close()

	if err := statusError(res.StatusCode, nil); err != nil {
		return err
	}

	f, err := c.fs.Create(dst)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create %s: %w", dst, err))
	}
	if _, err := io.Copy(f, res.Body); err != nil {
		f.Close()
		return fmt.Errorf("transfer interrupted: %w", err)
	}
	return f.Close()
}

func (c *Client) removePartial(path string) {
	if err := c.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("Failed to remove partial download", zap.String("path", path), zap.Error(err))
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	res, err := c.api.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := statusError(res.StatusCode, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError classifies a response status. 429 and 5xx are transient,
// 400/403/404/410 mean the resource is gone, other 4xx are terminal.
func statusError(code int, body []byte) error {
	if code < 400 {
		return nil
	}
	msg := http.StatusText(code)
	var payload struct {
		Error *errorBody `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil && payload.Error != nil {
		msg = payload.Error.String()
	}

	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("status %d: %s", code, msg)
	case code == http.StatusBadRequest, code == http.StatusForbidden, code == http.StatusNotFound, code == http.StatusGone:
		return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrNotFound, code, msg))
	default:
		return backoff.Permanent(fmt.Errorf("status %d: %s", code, msg))
	}
}

// retry runs op with a fixed delay between attempts, then waits once more after success.
func (c *Client) retry(ctx context.Context, call string, op func() error) error {
	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.wait), uint64(c.cfg.MaxRetries)),
		ctx,
	)
	err := backoff.RetryNotify(func() error {
		attempt++
		return op()
	}, policy, func(err error, _ time.Duration) {
		c.logger.Warn("Remote call failed, retrying",
			zap.String("call", call),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.cfg.MaxRetries),
			zap.Error(err))
	})
	if err != nil {
		return err
	}
	c.pause(ctx)
	return nil
}

func (c *Client) pause(ctx context.Context) {
	if c.wait <= 0 {
		return
	}
	t := time.NewTimer(c.wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	return strings.TrimRight(c.cfg.APIURL, "/") + path + "?" + query.Encode()
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" && r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(r)
}

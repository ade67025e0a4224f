// Package smokeshow publishes static files to a temporary smokeshow.helpmanual.io site.
package smokeshow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultCreateURL is the smokeshow endpoint that creates a new site.
	DefaultCreateURL = "https://smokeshow.helpmanual.io/create/"

	// smokeshow spells the header the British way.
	authHeader = "Authorisation"

	defaultAttempts        = 3
	defaultInitialInterval = 100 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	CreateURL       string
	UserAgent       string
	HTTPClient      *http.Client
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// GenerateKey replaces the proof of work key search used when no key is given.
	GenerateKey func(ctx context.Context, logger *slog.Logger) (string, error)
}

// Client talks to the smokeshow API.
type Client struct {
	logger      *slog.Logger
	http        *http.Client
	createURL   string
	userAgent   string
	attempts    int
	initial     time.Duration
	maxInterval time.Duration
	generateKey func(ctx context.Context, logger *slog.Logger) (string, error)
}

// NewClient constructs a smokeshow client.
func NewClient(logger *slog.Logger, opts Options) *Client {
	c := &Client{
		logger:      logger,
		http:        opts.HTTPClient,
		createURL:   opts.CreateURL,
		userAgent:   opts.UserAgent,
		attempts:    opts.MaxAttempts,
		initial:     opts.InitialInterval,
		maxInterval: opts.MaxInterval,
		generateKey: opts.GenerateKey,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 5 * time.Minute}
	}
	if c.createURL == "" {
		c.createURL = DefaultCreateURL
	}
	if c.attempts <= 0 {
		c.attempts = defaultAttempts
	}
	if c.initial <= 0 {
		c.initial = defaultInitialInterval
	}
	if c.maxInterval <= 0 {
		c.maxInterval = defaultMaxInterval
	}
	if c.generateKey == nil {
		c.generateKey = GenerateKey
	}
	return c
}

// CreateResponse describes a freshly created site.
type CreateResponse struct {
	Message          string    `json:"message"`
	SecretKey        string    `json:"secret_key"`
	SiteCreation     time.Time `json:"site_creation"`
	SiteExpiration   time.Time `json:"site_expiration"`
	SitesCreated24h  int       `json:"sites_created_24h"`
	UploadExpiration time.Time `json:"upload_expiration"`
	URL              string    `json:"url"`
}

// UploadResponse describes one uploaded file.
type UploadResponse struct {
	Path          string `json:"path"`
	ContentType   string `json:"content_type"`
	Size          int64  `json:"size"`
	TotalSiteSize int64  `json:"total_site_size"`
}

// StatusError is an unexpected HTTP response from smokeshow.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("smokeshow responded with %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Site is a created smokeshow site that accepts uploads.
type Site struct {
	client *Client
	base   *url.URL
	Info   CreateResponse
}

// Create creates a new site, generating a key first when key is empty.
func (c *Client) Create(ctx context.Context, key string) (*Site, error) {
	if key == "" {
		var err error
		if key, err = c.generateKey(ctx, c.logger); err != nil {
			return nil, err
		}
	}

	var info CreateResponse
	err := c.retry(ctx, "create site", func() error {
		return c.post(ctx, c.createURL, key, "", nil, &info)
	})
	if err != nil {
		return nil, fmt.Errorf("create smokeshow site: %w", err)
	}
	base, err := url.Parse(info.URL)
	if err != nil {
		return nil, fmt.Errorf("parse smokeshow site url %q: %w", info.URL, err)
	}

	c.logger.Info(info.Message,
		"created_at", info.SiteCreation.Format(time.RFC3339),
		"expires_at", info.SiteExpiration.Format(time.RFC3339),
		"sites_created_24h", info.SitesCreated24h,
		"upload_to", info.URL,
	)
	return &Site{client: c, base: base, Info: info}, nil
}

// Upload stores data under name on the site and returns its public URL.
func (s *Site) Upload(ctx context.Context, name string, data []byte, contentType string) (*url.URL, error) {
	target := s.base.ResolveReference(&url.URL{Path: name})

	var info UploadResponse
	err := s.client.retry(ctx, "upload "+name, func() error {
		return s.client.post(ctx, target.String(), s.Info.SecretKey, contentType, data, &info)
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	s.client.logger.Info(fmt.Sprintf("Uploaded %s (%s, %s, total %s)",
		info.Path, info.ContentType, humanize.IBytes(uint64(info.Size)), humanize.IBytes(uint64(info.TotalSiteSize))))
	return target, nil
}

// Result holds the published locations of a report.
type Result struct {
	Expiration time.Time
	HTMLURL    string
	PreviewURL string
}

// Publish creates a site and uploads the HTML page and SVG preview concurrently.
func (c *Client) Publish(ctx context.Context, key, page string, preview []byte) (Result, error) {
	site, err := c.Create(ctx, key)
	if err != nil {
		return Result{}, err
	}

	var htmlURL, previewURL *url.URL
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := site.Upload(gctx, "index.html", []byte(page), "text/html")
		htmlURL = u
		return err
	})
	g.Go(func() error {
		u, err := site.Upload(gctx, "preview.svg", preview, "image/svg+xml")
		previewURL = u
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	// The page is served from its parent path, without a trailing slash.
	pageURL := *htmlURL
	if strings.HasSuffix(pageURL.Path, "/index.html") {
		pageURL.Path = strings.TrimSuffix(pageURL.Path, "/index.html")
		pageURL.RawPath = ""
	}
	return Result{
		Expiration: site.Info.SiteExpiration,
		HTMLURL:    pageURL.String(),
		PreviewURL: previewURL.String(),
	}, nil
}

func (c *Client) post(ctx context.Context, target, auth, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set(authHeader, auth)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		if resp.StatusCode/100 == 5 {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode smokeshow response: %w", err))
	}
	return nil
}

// retry runs op with exponential backoff and jitter. Errors wrapped with
// backoff.Permanent end the loop immediately and are returned unwrapped.
func (c *Client) retry(ctx context.Context, what string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.attempts-1)), ctx)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.logger.Warn("smokeshow request failed, retrying", "operation", what, "error", err, "wait", wait)
	})
}

package demostf

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public demos.tf api endpoint.
const DefaultBaseURL = "https://api.demos.tf/"

const defaultTimeout = 15 * time.Second

// accessKeyHeader carries the access key for reading private demos. The
// server reads it case-insensitively.
const accessKeyHeader = "ACCESS_KEY"

// Client is an api client for demos.tf. Its configuration is immutable after
// construction and the client is safe for concurrent use; each operation is a
// single independent request/response cycle.
type Client struct {
	baseURL     *url.URL
	accessKey   string
	httpClient  *http.Client
	baseTimeout time.Duration
	userAgent   string
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAccessKey sets the access key used for uploads and private demos.
func WithAccessKey(key string) Option {
	return func(c *Client) {
		c.accessKey = key
	}
}

// WithTimeout sets the base request timeout. Downloads scale this timeout
// with the demo duration.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.baseTimeout = timeout
		}
	}
}

// WithHTTPClient sets a custom http client. The caller keeps responsibility
// for its timeout settings.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the logger used for debug-level request traces. The access
// key is never logged. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the given api endpoint, DefaultBaseURL for the
// public service.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, ErrInvalidBaseURL
	}
	// keep a trailing slash so path joining below stays predictable
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	client := &Client{
		baseURL:     parsed,
		baseTimeout: defaultTimeout,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		client.httpClient = cleanhttp.DefaultPooledClient()
		client.httpClient.Timeout = client.baseTimeout
	}

	return client, nil
}

// List fetches one page of demos with the provided options. Pages start
// counting at 1.
func (c *Client) List(ctx context.Context, params ListParams, page int) ([]Demo, error) {
	return c.listURL(ctx, "list", c.baseURL.JoinPath("demos"), params, page)
}

// ListUploads fetches one page of demos uploaded by the given user. Pages
// start counting at 1.
func (c *Client) ListUploads(ctx context.Context, uploader steamid.SteamID, params ListParams, page int) ([]Demo, error) {
	return c.listURL(ctx, "list uploads", c.baseURL.JoinPath("uploads", steam64(uploader)), params, page)
}

func (c *Client) listURL(ctx context.Context, op string, u *url.URL, params ListParams, page int) ([]Demo, error) {
	values, err := params.values(page)
	if err != nil {
		return nil, err
	}
	u.RawQuery = values.Encode()

	var demos []Demo
	if err := c.getJSON(ctx, op, u, &demos); err != nil {
		return nil, err
	}
	// server order is kept as-is
	return demos, nil
}

// Get fetches a single demo by id, players included. Fails with ErrNotFound
// when no such demo exists.
func (c *Client) Get(ctx context.Context, id uint32) (*Demo, error) {
	var demo Demo
	u := c.baseURL.JoinPath("demos", strconv.FormatUint(uint64(id), 10))
	if err := c.getJSON(ctx, "get demo", u, &demo); err != nil {
		return nil, err
	}
	return &demo, nil
}

// GetChat fetches the chat log of a demo.
func (c *Client) GetChat(ctx context.Context, demoID uint32) ([]ChatMessage, error) {
	var chat []ChatMessage
	u := c.baseURL.JoinPath("demos", strconv.FormatUint(uint64(demoID), 10), "chat")
	if err := c.getJSON(ctx, "get chat", u, &chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetUser fetches user info by id. Fails with ErrNotFound when no such user
// exists.
func (c *Client) GetUser(ctx context.Context, id uint32) (*User, error) {
	var user User
	u := c.baseURL.JoinPath("users", strconv.FormatUint(uint64(id), 10))
	if err := c.getJSON(ctx, "get user", u, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers searches users by name.
func (c *Client) SearchUsers(ctx context.Context, name string) ([]User, error) {
	u := c.baseURL.JoinPath("users", "search")
	u.RawQuery = url.Values{"query": {name}}.Encode()

	var users []User
	if err := c.getJSON(ctx, "search users", u, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Upload streams a demo file and its metadata to the service, returning the
// id of the newly created demo. Fails with ErrUnauthorized when the client has
// no access key configured or the server rejects it, and with ErrBodyConsumed
// when the request was already used.
func (c *Client) Upload(ctx context.Context, upload *UploadRequest) (uint32, error) {
	const op = "upload"

	if c.accessKey == "" {
		return 0, fmt.Errorf("demostf: %s: no access key configured: %w", op, ErrUnauthorized)
	}
	if !upload.consume() {
		return 0, fmt.Errorf("demostf: %s: %w", op, ErrBodyConsumed)
	}

	body, contentType := upload.multipartBody(c.accessKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath("upload").String(), body)
	if err != nil {
		body.Close()
		return 0, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug().Str("op", op).Str("name", upload.Name).Msg("uploading demo")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	return decodeUploadResponse(op, resp)
}

// SetURL updates the storage location of a demo. The edit key authorizes the
// change, the hash has to match the stored demo. Fails with ErrNotFound for
// unknown demos and ErrHashMismatch when the server rejects the hash.
func (c *Client) SetURL(ctx context.Context, demoID uint32, backend, path, demoURL string, hash Hash, key string) error {
	const op = "set url"

	form := url.Values{
		"hash":    {hash.String()},
		"backend": {backend},
		"url":     {demoURL},
		"path":    {path},
		"key":     {key},
	}

	u := c.baseURL.JoinPath("demos", strconv.FormatUint(uint64(demoID), 10), "url")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug().Str("op", op).Uint32("demo", demoID).Str("backend", backend).Msg("updating demo url")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	return checkStatus(op, resp)
}

// getJSON issues an authenticated GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, op string, u *url.URL, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.accessKey != "" {
		req.Header.Set(accessKeyHeader, c.accessKey)
	}

	c.logger.Debug().Str("op", op).Str("url", u.String()).Msg("demos.tf api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	return decodeJSON(op, resp, v)
}

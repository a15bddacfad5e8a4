// Package apiclient is a typed client for the diary service REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/movie-diary/internal/apierror"
	"github.com/Clark-Hu/movie-diary/internal/domain"
)

const maxErrorBody = 64 << 10

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Payload    *apierror.Payload
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Payload.Message(http.StatusText(e.StatusCode)))
}

// ErrorPayload exposes the decoded body so callers can derive a user-facing message.
func (e *StatusError) ErrorPayload() *apierror.Payload { return e.Payload }

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client talks to the diary service. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  logrus.FieldLogger

	mu    sync.RWMutex
	token string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithToken sets the initial access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New constructs a Client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse api url")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Errorf("api url %q must be absolute", baseURL)
	}
	timeout := 15 * time.Second
	c := &Client{
		baseURL: parsed,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register creates an account and stores the issued access token.
func (c *Client) Register(ctx context.Context, r domain.Registration) (domain.AuthTokens, error) {
	var out domain.AuthTokens
	if err := c.do(ctx, http.MethodPost, "/api/register/", nil, r, &out); err != nil {
		return domain.AuthTokens{}, err
	}
	c.SetToken(out.Access)
	return out, nil
}

// Login authenticates and stores the issued access token.
func (c *Client) Login(ctx context.Context, username, password string) (domain.AuthTokens, error) {
	var out domain.AuthTokens
	body := domain.Credentials{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/login/", nil, body, &out); err != nil {
		return domain.AuthTokens{}, err
	}
	c.SetToken(out.Access)
	return out, nil
}

// Refresh exchanges a refresh token for a new access token and stores it.
func (c *Client) Refresh(ctx context.Context, refresh string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	body := map[string]string{"refresh": refresh}
	if err := c.do(ctx, http.MethodPost, "/api/token/refresh/", nil, body, &out); err != nil {
		return "", err
	}
	c.SetToken(out.Access)
	return out.Access, nil
}

// CurrentUser returns the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, http.MethodGet, "/api/user/", nil, nil, &out)
	return out, err
}

// List returns the user's movies in ranking order.
func (c *Client) List(ctx context.Context) ([]domain.Movie, error) {
	return c.ListQuery(ctx, nil)
}

// ListQuery returns the user's movies filtered server-side by query.
func (c *Client) ListQuery(ctx context.Context, query url.Values) ([]domain.Movie, error) {
	out := []domain.Movie{}
	if err := c.do(ctx, http.MethodGet, "/api/movies/", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one movie.
func (c *Client) Get(ctx context.Context, id string) (domain.Movie, error) {
	var out domain.Movie
	err := c.do(ctx, http.MethodGet, moviePath(id), nil, nil, &out)
	return out, err
}

// Create adds a movie to the collection.
func (c *Client) Create(ctx context.Context, in domain.MovieInput) (domain.Movie, error) {
	var out domain.Movie
	err := c.do(ctx, http.MethodPost, "/api/movies/", nil, in, &out)
	return out, err
}

// Update applies a partial update of rating and review.
func (c *Client) Update(ctx context.Context, id string, patch domain.MoviePatch) (domain.Movie, error) {
	var out domain.Movie
	err := c.do(ctx, http.MethodPatch, moviePath(id), nil, patch, &out)
	return out, err
}

// Delete removes a movie.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, moviePath(id), nil, nil, nil)
}

// SearchCatalog lists catalog candidates for a title.
func (c *Client) SearchCatalog(ctx context.Context, title string) ([]domain.Candidate, error) {
	out := []domain.Candidate{}
	q := url.Values{"title": {title}}
	if err := c.do(ctx, http.MethodGet, "/api/movies/search_tmdb/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchCatalogDetails returns the catalog record for a candidate, ready to create.
func (c *Client) FetchCatalogDetails(ctx context.Context, externalID int64) (domain.CatalogDetails, error) {
	var out domain.CatalogDetails
	q := url.Values{"id": {strconv.FormatInt(externalID, 10)}}
	err := c.do(ctx, http.MethodGet, "/api/movies/fetch_tmdb_details/", q, nil, &out)
	return out, err
}

func moviePath(id string) string {
	return "/api/movies/" + url.PathEscape(id) + "/"
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("apiclient: response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Payload:    apierror.Parse(raw),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

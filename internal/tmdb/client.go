package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/webtor-io/lazymap"

	"github.com/Clark-Hu/movie-diary/internal/domain"
)

// ErrNotFound is returned when TMDB has no movie with the requested id.
var ErrNotFound = errors.New("tmdb: not found")

// Client defines the contract for querying the movie catalog.
type Client interface {
	Search(ctx context.Context, query string) ([]domain.Candidate, error)
	Details(ctx context.Context, externalID int64) (domain.CatalogDetails, error)
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL  string
	ImageURL string
	APIKey   string
	Timeout  time.Duration
	// CacheTTL keeps successful responses for this long; zero disables caching.
	CacheTTL time.Duration
	Logger   *logrus.Logger
}

// HTTPClient implements Client over the TMDB v3 REST API.
type HTTPClient struct {
	baseURL  *url.URL
	imageURL string
	apiKey   string
	client   *http.Client
	logger   *logrus.Logger

	cached   bool
	searches lazymap.LazyMap[[]domain.Candidate]
	details  lazymap.LazyMap[domain.CatalogDetails]
}

// NewHTTPClient constructs a new HTTP-backed catalog client.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse tmdb url")
	}
	timeout := opts.Timeout
	c := &HTTPClient{
		baseURL:  parsed,
		imageURL: strings.TrimRight(opts.ImageURL, "/"),
		apiKey:   opts.APIKey,
		client: &http.Client{
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
		logger: logger,
	}
	if opts.CacheTTL > 0 {
		c.cached = true
		c.searches = lazymap.New[[]domain.Candidate](&lazymap.Config{
			Expire:      opts.CacheTTL,
			ErrorExpire: time.Millisecond,
		})
		c.details = lazymap.New[domain.CatalogDetails](&lazymap.Config{
			Expire:      opts.CacheTTL,
			ErrorExpire: time.Millisecond,
		})
	}
	return c, nil
}

// Search returns the candidates TMDB lists for query.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	if !c.cached {
		return c.search(ctx, query)
	}
	return c.searches.Get(strings.ToLower(query), func() ([]domain.Candidate, error) {
		return c.search(ctx, query)
	})
}

// Details returns the catalog record for externalID shaped for a new movie.
func (c *HTTPClient) Details(ctx context.Context, externalID int64) (domain.CatalogDetails, error) {
	if !c.cached {
		return c.fetchDetails(ctx, externalID)
	}
	return c.details.Get(strconv.FormatInt(externalID, 10), func() (domain.CatalogDetails, error) {
		return c.fetchDetails(ctx, externalID)
	})
}

func (c *HTTPClient) search(ctx context.Context, query string) ([]domain.Candidate, error) {
	q := url.Values{}
	q.Set("query", query)

	var payload searchResponse
	if err := c.get(ctx, "/search/movie", q, &payload); err != nil {
		return nil, errors.Wrapf(err, "search %q", query)
	}
	if payload.Results == nil {
		return []domain.Candidate{}, nil
	}
	return payload.Results, nil
}

func (c *HTTPClient) fetchDetails(ctx context.Context, externalID int64) (domain.CatalogDetails, error) {
	q := url.Values{}
	q.Set("language", "en-US")

	var payload detailsResponse
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(externalID, 10), q, &payload); err != nil {
		return domain.CatalogDetails{}, errors.Wrapf(err, "fetch movie %d", externalID)
	}
	return convertDetails(payload, c.imageURL), nil
}

func (c *HTTPClient) get(ctx context.Context, rel string, q url.Values, out interface{}) error {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, rel)
	q.Set("api_key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode response")
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   rel,
		}).Warn("tmdb: unexpected status")
		return fmt.Errorf("tmdb: upstream returned %d", resp.StatusCode)
	}
}

type searchResponse struct {
	Results []domain.Candidate `json:"results"`
}

type detailsResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate *string `json:"release_date"`
	Overview    *string `json:"overview"`
	PosterPath  *string `json:"poster_path"`
}

func convertDetails(payload detailsResponse, imageURL string) domain.CatalogDetails {
	details := domain.CatalogDetails{
		Title: payload.Title,
		Year:  ReleaseYear(payload.ReleaseDate),
	}
	if payload.Overview != nil {
		details.Description = *payload.Overview
	}
	details.ImageURL = PosterURL(imageURL, payload.PosterPath)
	return details
}

// ReleaseYear extracts the year of a YYYY-MM-DD date. Missing or malformed dates yield nil.
func ReleaseYear(date *string) *int {
	if date == nil {
		return nil
	}
	head, _, _ := strings.Cut(strings.TrimSpace(*date), "-")
	year, err := strconv.Atoi(head)
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}

// PosterURL joins the image base with a poster path; a missing path yields "".
func PosterURL(imageURL string, posterPath *string) string {
	if posterPath == nil || strings.TrimSpace(*posterPath) == "" {
		return ""
	}
	p := *posterPath
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return imageURL + p
}

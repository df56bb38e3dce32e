package comments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"postgrid/internal/cache"
	"postgrid/internal/models"
)

// Fetcher retrieves the most recent comments across all posts
type Fetcher interface {
	GetRecentComments(ctx context.Context, limit int) ([]models.Comment, error)
}

// RecentResponse is the JSON body served by the recent comments endpoint
type RecentResponse struct {
	Comments []models.Comment `json:"comments"`
	Count    int              `json:"count"`
}

// HTTPClient fetches recent comments from a host application's API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetRecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	endpoint, err := url.Parse(c.baseURL + "/api/v1/comments/recent")
	if err != nil {
		return nil, fmt.Errorf("invalid comments API URL: %w", err)
	}
	query := endpoint.Query()
	query.Set("limit", strconv.Itoa(limit))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent comments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching recent comments: %s", resp.Status)
	}

	var body RecentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode recent comments: %w", err)
	}
	if body.Comments == nil {
		body.Comments = []models.Comment{}
	}
	return body.Comments, nil
}

// Source is the storage operation StoreClient reads from
type Source interface {
	RecentComments(ctx context.Context, limit int) ([]models.Comment, error)
}

// StoreClient reads recent comments from local storage, caching results
type StoreClient struct {
	source       Source
	cacheManager *cache.Manager
}

func NewStoreClient(source Source, cacheManager *cache.Manager) *StoreClient {
	return &StoreClient{source: source, cacheManager: cacheManager}
}

func (c *StoreClient) GetRecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	if c.cacheManager != nil {
		if cached, found := c.cacheManager.RecentComments(limit); found {
			return cached, nil
		}
	}

	comments, err := c.source.RecentComments(ctx, limit)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	if c.cacheManager != nil {
		c.cacheManager.SetRecentComments(limit, comments)
	}
	return comments, nil
}

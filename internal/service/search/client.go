package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
	drepo "PricePulse/internal/domain/repository"
	"PricePulse/pkg/logger"
)

// ErrRateLimited is returned when the upstream API keeps throttling after
// the retry budget is spent.
var ErrRateLimited = errors.New("search api rate limited")

const (
	defaultBaseURL     = "https://serpapi.com/search.json"
	defaultEngine      = "amazon"
	defaultDomain      = "amazon.com"
	defaultLanguage    = "en_US"
	defaultTimeout     = 15 * time.Second
	defaultRetryMax    = 3
	defaultMinInterval = time.Second

	defaultMaxResults = 10
	bestMatchDepth    = 50
	sortPriceAsc      = "price-asc-rank"
	healthProbeQuery  = "test"
)

// Config configures the shopping-search client. Zero values fall back to
// the package defaults.
type Config struct {
	BaseURL     string
	APIKey      string
	Engine      string
	Domain      string
	Language    string
	Timeout     time.Duration
	RetryMax    int
	MinInterval time.Duration
}

// Client implements a SearchClient backed by a SerpApi-style endpoint.
// Outbound requests are paced so consecutive calls, retries included,
// stay at least MinInterval apart.
type Client struct {
	cfg  Config
	http *resty.Client
	log  *logger.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

var _ drepo.SearchClient = (*Client)(nil)

// New creates a shopping-search client.
func New(cfg Config, log *logger.Logger) drepo.SearchClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Engine == "" {
		cfg.Engine = defaultEngine
	}
	if cfg.Domain == "" {
		cfg.Domain = defaultDomain
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = defaultRetryMax
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}

	c := &Client{cfg: cfg, log: log}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryMax).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	rc.OnBeforeRequest(func(*resty.Client, *resty.Request) error {
		c.pace()
		return nil
	})
	c.http = rc
	return c
}

// Search returns up to maxResults priced listings for a free-text query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	return c.search(ctx, query, "", maxResults)
}

// Lookup resolves one listing by its retailer SKU. A missing listing is
// (nil, nil), not an error.
func (c *Client) Lookup(ctx context.Context, sku string) (*models.SearchResult, error) {
	results, err := c.search(ctx, "asin:"+sku, "", 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	r := results[0]
	if r.SKU == "" {
		r.SKU = sku
	}
	return &r, nil
}

// BestMatch fetches listings cheapest-first and returns the one whose
// title matches the query best. maxPrice caps acceptable listings when
// positive. Ties keep the cheaper listing.
func (c *Client) BestMatch(ctx context.Context, query string, maxPrice decimal.Decimal) (*models.SearchResult, error) {
	results, err := c.search(ctx, query, sortPriceAsc, bestMatchDepth)
	if err != nil {
		return nil, err
	}

	var best *models.SearchResult
	bestScore := -1.0
	for i := range results {
		if maxPrice.IsPositive() && results[i].Price.GreaterThan(maxPrice) {
			continue
		}
		if score := titleScore(query, results[i].Title); score > bestScore {
			best = &results[i]
			bestScore = score
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

// Health runs a one-result probe query against the API.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.search(ctx, healthProbeQuery, "", 1)
	return err
}

func (c *Client) search(ctx context.Context, query, sort string, maxResults int) ([]models.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	params := map[string]string{
		"engine":        c.cfg.Engine,
		"k":             query,
		"amazon_domain": c.cfg.Domain,
		"language":      c.cfg.Language,
		"api_key":       c.cfg.APIKey,
	}
	if sort != "" {
		params["s"] = sort
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("search api status %d", resp.StatusCode())
	}

	var env searchResponse
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("search api: %s", env.Error)
	}

	out := make([]models.SearchResult, 0, maxResults)
	for _, item := range env.OrganicResults {
		r, ok := item.toResult()
		if !ok {
			continue
		}
		out = append(out, r)
		if len(out) >= maxResults {
			break
		}
	}
	c.log.Debug("search completed",
		logger.String("query", query),
		logger.Int("results", len(out)))
	return out, nil
}

// pace blocks until MinInterval has passed since the previous request.
// Holding the lock while sleeping serializes concurrent callers.
func (c *Client) pace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.cfg.MinInterval - time.Since(c.lastRequest); wait > 0 {
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}

type searchResponse struct {
	Error          string    `json:"error,omitempty"`
	OrganicResults []listing `json:"organic_results"`
}

type listing struct {
	Position          int     `json:"position"`
	ASIN              string  `json:"asin"`
	Title             string  `json:"title"`
	LinkClean         string  `json:"link_clean"`
	Link              string  `json:"link"`
	Thumbnail         string  `json:"thumbnail"`
	ExtractedPrice    float64 `json:"extracted_price"`
	ExtractedOldPrice float64 `json:"extracted_old_price"`
	RawPrice          string  `json:"price"`
	RawOldPrice       string  `json:"old_price"`
	Rating            float64 `json:"rating"`
	Reviews           int     `json:"reviews"`
	Prime             bool    `json:"prime"`
}

// toResult maps one raw listing onto the domain type. Listings without a
// usable price are dropped.
func (l listing) toResult() (models.SearchResult, bool) {
	price, ok := parsePriceValue(l.ExtractedPrice, l.RawPrice)
	if !ok {
		return models.SearchResult{}, false
	}
	r := models.SearchResult{
		Position:     l.Position,
		SKU:          l.ASIN,
		Title:        l.Title,
		URL:          firstNonEmpty(l.LinkClean, l.Link),
		Price:        price,
		Rating:       l.Rating,
		ReviewsCount: l.Reviews,
		Thumbnail:    l.Thumbnail,
		Prime:        l.Prime,
	}
	if old, ok := parsePriceValue(l.ExtractedOldPrice, l.RawOldPrice); ok && old.GreaterThan(price) {
		r.OldPrice = old
	}
	return r, true
}

func parsePriceValue(extracted float64, raw string) (decimal.Decimal, bool) {
	if extracted > 0 {
		return decimal.NewFromFloat(extracted), true
	}
	return parsePrice(raw)
}

// parsePrice turns display strings like "$1,299.00" into a decimal.
func parsePrice(s string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// titleScore is the fraction of query terms present in the listing title.
func titleScore(query, title string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(title)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Package registry is a client for the NPPES NPI registry.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
)

const (
	apiVersion   = "2.1"
	unknownState = "Unknown"
)

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	Burst             int
}

type Basic struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	OrganizationName string `json:"organization_name"`
	Name             string `json:"name"`
}

type Address struct {
	Address1        string `json:"address_1"`
	City            string `json:"city"`
	State           string `json:"state"`
	PostalCode      string `json:"postal_code"`
	CountryCode     string `json:"country_code"`
	TelephoneNumber string `json:"telephone_number"`
	AddressPurpose  string `json:"address_purpose"`
}

type Record struct {
	Number    json.Number `json:"number"`
	Basic     Basic       `json:"basic"`
	Addresses []Address   `json:"addresses"`
}

// PrimaryState is the first address's state, or "Unknown".
func (r Record) PrimaryState() string {
	if len(r.Addresses) == 0 || r.Addresses[0].State == "" {
		return unknownState
	}
	return r.Addresses[0].State
}

type response struct {
	ResultCount int      `json:"result_count"`
	Results     []Record `json:"results"`
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	cache      *cache.Cache
	limiter    *rate.Limiter
	logger     *logger.Logger
	metrics    *metrics.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config, logger *logger.Logger, metrics *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
		cache:      cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		logger:     logger.With("registry"),
		metrics:    metrics,
		sleep:      sleepCtx,
	}
}

// FetchProvider returns the first registry record for npi. It never reads
// the cache. A missing record is a NotFound error.
func (c *Client) FetchProvider(ctx context.Context, npi string) (*Record, error) {
	q := url.Values{}
	q.Set("number", npi)

	results, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		c.logger.Warn("No registry data for NPI", "npi", npi)
		return nil, errors.NewNotFound("NPI in NPPES registry", nil)
	}
	return &results[0], nil
}

func (c *Client) SearchByOrganization(ctx context.Context, organization, state string) ([]Record, error) {
	q := url.Values{}
	q.Set("organization_name", organization)
	q.Set("state", state)
	return c.cachedQuery(ctx, q)
}

func (c *Client) SearchByTaxonomy(ctx context.Context, taxonomy, state string) ([]Record, error) {
	q := url.Values{}
	q.Set("taxonomy_description", taxonomy)
	q.Set("state", state)
	return c.cachedQuery(ctx, q)
}

func (c *Client) cachedQuery(ctx context.Context, q url.Values) ([]Record, error) {
	key := q.Encode()
	if cached, ok := c.cache.Get(key); ok {
		c.metrics.RegistryRequests.WithLabelValues("cache_hit").Inc()
		return cached.([]Record), nil
	}

	results, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, results, cache.DefaultExpiration)
	return results, nil
}

// query retries only on 429, sleeping RetryBackoff*attempt between tries.
func (c *Client) query(ctx context.Context, q url.Values) ([]Record, error) {
	timer := prometheus.NewTimer(c.metrics.RegistryLatency)
	defer timer.ObserveDuration()

	q.Set("version", apiVersion)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/?" + q.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.RegistryRequests.WithLabelValues("error").Inc()
			return nil, errors.NewIntegration("registry request cancelled", err)
		}

		results, status, err := c.do(ctx, endpoint)
		if err == nil {
			c.metrics.RegistryRequests.WithLabelValues("success").Inc()
			return results, nil
		}

		if status != http.StatusTooManyRequests {
			c.metrics.RegistryRequests.WithLabelValues("error").Inc()
			c.logger.Error(err, "Registry request failed", "status", status)
			return nil, errors.NewIntegration("provider registry request failed", err)
		}

		c.metrics.RegistryRequests.WithLabelValues("rate_limited").Inc()
		if attempt >= c.cfg.MaxRetries {
			return nil, errors.NewIntegration("provider registry rate limit exceeded", err)
		}

		backoff := c.cfg.RetryBackoff * time.Duration(attempt+1)
		c.logger.Warn("Registry rate limited, retrying", "attempt", attempt+1, "backoff", backoff.String())
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, errors.NewIntegration("registry request cancelled", err)
		}
	}
}

func (c *Client) do(ctx context.Context, endpoint string) ([]Record, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode registry response: %w", err)
	}
	if body.Results == nil {
		body.Results = []Record{}
	}
	return body.Results, resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

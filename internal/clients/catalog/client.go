// Package catalog is the HTTP client for the external catalog provider.
// The catalog is a read-only reference dataset; records are cached in
// memory and refreshed by a background job.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/liseren91/aistore-billing/internal/entity"
	"github.com/liseren91/aistore-billing/pkg/transport"
)

const requestTimeout = 3 * time.Second

type Client struct {
	http *resty.Client

	mu    sync.RWMutex
	cache map[string]entity.AiService
}

func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout)

	c.SetTransport(transport.NewRequestIDRoundTripper(http.DefaultTransport))

	return &Client{
		http:  c,
		cache: make(map[string]entity.AiService),
	}
}

// Service returns a catalog record by id, preferring the cache.
func (c *Client) Service(ctx context.Context, id string) (entity.AiService, error) {
	c.mu.RLock()
	svc, ok := c.cache[id]
	c.mu.RUnlock()

	if ok {
		return svc, nil
	}

	resp, err := c.http.R().SetContext(ctx).Get("/api/services/" + id)
	if err != nil {
		return entity.AiService{}, fmt.Errorf("get service %q: %w", id, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return entity.AiService{}, fmt.Errorf("service %q: %w", id, entity.ErrNotFound)
	}

	if resp.StatusCode() != http.StatusOK {
		return entity.AiService{}, fmt.Errorf("get service %q: unexpected status %d", id, resp.StatusCode())
	}

	err = json.Unmarshal(resp.Body(), &svc)
	if err != nil {
		return entity.AiService{}, fmt.Errorf("unmarshal service %q: %w", id, err)
	}

	c.mu.Lock()
	c.cache[id] = svc
	c.mu.Unlock()

	return svc, nil
}

func (c *Client) Services(ctx context.Context) ([]entity.AiService, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/api/services")
	if err != nil {
		return nil, fmt.Errorf("get services: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get services: unexpected status %d", resp.StatusCode())
	}

	var services []entity.AiService

	err = json.Unmarshal(resp.Body(), &services)
	if err != nil {
		return nil, fmt.Errorf("unmarshal services: %w", err)
	}

	return services, nil
}

// Refresh replaces the cache with a fresh catalog listing. Runs as a
// background job.
func (c *Client) Refresh(ctx context.Context) error {
	services, err := c.Services(ctx)
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}

	cache := make(map[string]entity.AiService, len(services))
	for _, svc := range services {
		cache[svc.ID] = svc
	}

	c.mu.Lock()
	c.cache = cache
	c.mu.Unlock()

	return nil
}

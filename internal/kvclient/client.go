// Package kvclient implements the two-hop routed client: look the key's
// owner up at a gateway, then talk to that storage node directly.
package kvclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dreamware/kvring/internal/transport"
)

// ErrNotFound is returned by Get and Delete when the storage node reports
// the key is absent. During ring churn this is a possible miss, not a
// guaranteed one: the owner the client consulted may no longer hold the
// key by the time the data-plane call lands.
var ErrNotFound = errors.New("kvclient: key not found")

type ownerDescriptor struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
	Port    int    `json:"port"`
}

func (o ownerDescriptor) baseURL() string {
	return fmt.Sprintf("http://%s:%d", o.Address, o.Port)
}

type cacheEntry struct {
	owner     ownerDescriptor
	expiresAt time.Time
}

// Client routes put/get/delete through a gateway's ownership lookup to the
// owning storage node. The zero-value-adjacent Client returned by New does
// no caching, matching the design's default; WithOwnerCache opts in.
type Client struct {
	gatewayAddr string
	httpClient  *transport.Client

	cacheTTL time.Duration
	cacheMu  sync.Mutex
	cache    map[string]cacheEntry
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithOwnerCache enables caching of owner_of lookups for ttl, invalidating
// a cached entry automatically whenever a data-plane call for that key
// comes back 404 (the design's "MUST invalidate on any data-plane 404"
// requirement).
func WithOwnerCache(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
		c.cache = make(map[string]cacheEntry)
	}
}

// New creates a Client that resolves ownership against gatewayAddr (a base
// URL, e.g. "http://localhost:8000").
func New(gatewayAddr string, opts ...Option) *Client {
	c := &Client{
		gatewayAddr: gatewayAddr,
		httpClient:  transport.New(5 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ownerOf(ctx context.Context, key string) (ownerDescriptor, error) {
	if c.cacheTTL > 0 {
		c.cacheMu.Lock()
		entry, ok := c.cache[key]
		c.cacheMu.Unlock()
		if ok && time.Now().Before(entry.expiresAt) {
			return entry.owner, nil
		}
	}

	reqURL := fmt.Sprintf("%s/nodes/%s", c.gatewayAddr, url.PathEscape(key))
	var decoded struct {
		Node ownerDescriptor `json:"node"`
	}
	if err := c.httpClient.GetJSON(ctx, reqURL, &decoded); err != nil {
		return ownerDescriptor{}, fmt.Errorf("owner_of %q: %w", key, err)
	}

	if c.cacheTTL > 0 {
		c.cacheMu.Lock()
		c.cache[key] = cacheEntry{owner: decoded.Node, expiresAt: time.Now().Add(c.cacheTTL)}
		c.cacheMu.Unlock()
	}
	return decoded.Node, nil
}

func (c *Client) invalidate(key string) {
	if c.cacheTTL <= 0 {
		return
	}
	c.cacheMu.Lock()
	delete(c.cache, key)
	c.cacheMu.Unlock()
}

// Put stores value under key, routing through the current owner.
func (c *Client) Put(ctx context.Context, key string, value json.RawMessage) error {
	owner, err := c.ownerOf(ctx, key)
	if err != nil {
		return fmt.Errorf("owner_of: %w", err)
	}

	body := struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}{key, value}

	if err := c.httpClient.PostJSON(ctx, owner.baseURL()+"/put", body, nil); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Get retrieves the value stored under key, trying the body-form endpoint
// first and falling back to the path form only if the body form could not
// be reached at all (a storage node implementing only one form).
func (c *Client) Get(ctx context.Context, key string) (json.RawMessage, error) {
	owner, err := c.ownerOf(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("owner_of: %w", err)
	}

	value, status, err := c.getByBody(ctx, owner, key)
	if err != nil {
		value, status, err = c.getByPath(ctx, owner, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}

	switch status {
	case http.StatusOK:
		return value, nil
	case http.StatusNotFound:
		c.invalidate(key)
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("get %q: http %d", key, status)
	}
}

func (c *Client) getByBody(ctx context.Context, owner ownerDescriptor, key string) (json.RawMessage, int, error) {
	body := map[string]string{"key": key}
	var decoded struct {
		Value json.RawMessage `json:"value"`
	}
	status, err := c.httpClient.DoJSON(ctx, http.MethodPost, owner.baseURL()+"/get", body, &decoded)
	return decoded.Value, status, err
}

func (c *Client) getByPath(ctx context.Context, owner ownerDescriptor, key string) (json.RawMessage, int, error) {
	var decoded struct {
		Value json.RawMessage `json:"value"`
	}
	status, err := c.httpClient.DoJSON(ctx, http.MethodGet, owner.baseURL()+"/get/"+url.PathEscape(key), nil, &decoded)
	return decoded.Value, status, err
}

// Delete removes key, trying the body-form endpoint first and falling back
// to the path form only if the body form could not be reached at all.
func (c *Client) Delete(ctx context.Context, key string) error {
	owner, err := c.ownerOf(ctx, key)
	if err != nil {
		return fmt.Errorf("owner_of: %w", err)
	}

	status, err := c.deleteByBody(ctx, owner, key)
	if err != nil {
		status, err = c.deleteByPath(ctx, owner, key)
	}
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		c.invalidate(key)
		return ErrNotFound
	default:
		return fmt.Errorf("delete %q: http %d", key, status)
	}
}

func (c *Client) deleteByBody(ctx context.Context, owner ownerDescriptor, key string) (int, error) {
	body := map[string]string{"key": key}
	return c.httpClient.DoJSON(ctx, http.MethodPost, owner.baseURL()+"/delete", body, nil)
}

func (c *Client) deleteByPath(ctx context.Context, owner ownerDescriptor, key string) (int, error) {
	return c.httpClient.DoJSON(ctx, http.MethodDelete, owner.baseURL()+"/delete/"+url.PathEscape(key), nil, nil)
}

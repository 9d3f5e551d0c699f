// Package catalog resolves card names to their printed attributes via an
// external lookup service, with cached results so drafts don't hammer it.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/farhorizons/tabletop/internal/store"
)

// Entry is one resolved catalog card.
type Entry struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ImageURL  string   `json:"imageUrl"`
	ManaCost  string   `json:"manaCost"`
	ManaValue int      `json:"manaValue"`
	Colors    []string `json:"colors"`
	TypeLine  string   `json:"typeLine"`
	Rarity    string   `json:"rarity"`
}

// Lookup is the surface the draft engine consumes.
type Lookup interface {
	Lookup(ctx context.Context, names []string) ([]Entry, error)
}

// Client looks names up against an HTTP endpoint, batched, consulting the
// KV cache first.
type Client struct {
	endpoint string
	http     *http.Client
	cache    store.Store
	ttl      time.Duration
	log      logrus.FieldLogger
}

func New(endpoint string, cache store.Store, ttl time.Duration, log logrus.FieldLogger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		cache:    cache,
		ttl:      ttl,
		log:      log.WithField("component", "catalog"),
	}
}

func cacheKey(name string) string { return "catalog:" + name }

// Lookup returns one entry per resolvable name, cache hits first, then a
// single batched request for the misses. Unknown names are simply absent
// from the result.
func (c *Client) Lookup(ctx context.Context, names []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(names))
	var misses []string

	for _, name := range names {
		b, err := c.cache.Get(ctx, cacheKey(name))
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				c.log.WithError(err).WithField("name", name).Warn("cache read failed, treating as miss")
			}
			misses = append(misses, name)
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			misses = append(misses, name)
			continue
		}
		entries = append(entries, e)
	}

	if len(misses) == 0 {
		return entries, nil
	}

	fetched, err := c.fetch(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, e := range fetched {
		if b, err := json.Marshal(e); err == nil {
			if err := c.cache.Put(ctx, cacheKey(e.Name), b, c.ttl); err != nil {
				c.log.WithError(err).WithField("name", e.Name).Warn("cache write failed")
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *Client) fetch(ctx context.Context, names []string) ([]Entry, error) {
	body, err := json.Marshal(map[string][]string{"names": names})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog lookup: status %d", resp.StatusCode)
	}

	var out struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("catalog lookup: decode: %w", err)
	}
	return out.Entries, nil
}

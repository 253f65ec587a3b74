package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/apiclient"
)

const (
	defaultPizzaCacheSize = 128
	snapshotPageSize      = api.MaxPerPage
	extrasKey             = "extras"
)

// Transport is the subset of apiclient.Client the catalog needs.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values, out any) (*api.PageMeta, error)
}

// Client reads pizzas and extras. Fetched entries are cached until Invalidate.
type Client struct {
	api    Transport
	pizzas *lru.Cache[string, api.Pizza]
	group  singleflight.Group

	mu     sync.RWMutex
	extras []api.Extra
}

func NewClient(t Transport) *Client {
	cache, err := lru.New[string, api.Pizza](defaultPizzaCacheSize)
	if err != nil {
		panic(fmt.Sprintf("catalog: create lru cache: %v", err))
	}
	return &Client{api: t, pizzas: cache}
}

// ListPizzas fetches one page of the pizza catalog.
func (c *Client) ListPizzas(ctx context.Context, page, pageSize int) (api.Page[api.Pizza], error) {
	page = max(1, page)
	pageSize = max(1, pageSize)

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var out api.Page[api.Pizza]
	if _, err := c.api.Get(ctx, "/pizzas", query, &out); err != nil {
		return api.Page[api.Pizza]{}, fmt.Errorf("catalog: list pizzas: %w", err)
	}
	out.Meta = out.Meta.Normalize(page, pageSize)

	for _, p := range out.Items {
		c.pizzas.Add(p.ID, p)
	}

	return out, nil
}

// Pizza returns a single pizza. A 404 from the backend is reported as NotFoundError.
func (c *Client) Pizza(ctx context.Context, id string) (api.Pizza, error) {
	if p, ok := c.pizzas.Get(id); ok {
		return p, nil
	}

	var p api.Pizza
	if _, err := c.api.Get(ctx, "/pizzas/"+url.PathEscape(id), nil, &p); err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			return api.Pizza{}, &NotFoundError{Kind: KindPizza, ID: id}
		}
		return api.Pizza{}, fmt.Errorf("catalog: get pizza %s: %w", id, err)
	}

	c.pizzas.Add(p.ID, p)
	return p, nil
}

// Extras returns every available extra. Concurrent callers share one request.
func (c *Client) Extras(ctx context.Context) ([]api.Extra, error) {
	c.mu.RLock()
	cached := c.extras
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := c.group.Do(extrasKey, func() (any, error) {
		var extras []api.Extra
		if _, err := c.api.Get(ctx, "/extras", nil, &extras); err != nil {
			return nil, err
		}
		if extras == nil {
			extras = []api.Extra{}
		}

		c.mu.Lock()
		c.extras = extras
		c.mu.Unlock()

		return extras, nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list extras: %w", err)
	}

	return v.([]api.Extra), nil
}

// Extra finds one extra by id. A miss is treated as stale data: the cache is
// refreshed once before giving up with NotFoundError.
func (c *Client) Extra(ctx context.Context, id string) (api.Extra, error) {
	extras, err := c.Extras(ctx)
	if err != nil {
		return api.Extra{}, err
	}
	if e, ok := findExtra(extras, id); ok {
		return e, nil
	}

	log.Info().Str("extra_id", id).Msg("catalog: extra missing from cached catalog, refreshing")
	c.invalidateExtras()

	extras, err = c.Extras(ctx)
	if err != nil {
		return api.Extra{}, err
	}
	if e, ok := findExtra(extras, id); ok {
		return e, nil
	}

	return api.Extra{}, &NotFoundError{Kind: KindExtra, ID: id}
}

// Composition is what the order composition screen needs before it is usable.
type Composition struct {
	Pizza  api.Pizza
	Extras []api.Extra
}

// Compose fetches a pizza and the extras list concurrently. Both must succeed.
func (c *Client) Compose(ctx context.Context, pizzaID string) (Composition, error) {
	var comp Composition

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.Pizza(gctx, pizzaID)
		if err != nil {
			return err
		}
		comp.Pizza = p
		return nil
	})
	g.Go(func() error {
		extras, err := c.Extras(gctx)
		if err != nil {
			return err
		}
		comp.Extras = extras
		return nil
	})

	if err := g.Wait(); err != nil {
		return Composition{}, err
	}

	return comp, nil
}

// Snapshot walks every pizza page and the extras list for name lookups.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	var (
		pizzas []api.Pizza
		extras []api.Extra
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for page := 1; ; page++ {
			res, err := c.ListPizzas(gctx, page, snapshotPageSize)
			if err != nil {
				return err
			}
			pizzas = append(pizzas, res.Items...)
			if !res.Meta.HasNext || len(res.Items) == 0 {
				return nil
			}
		}
	})
	g.Go(func() error {
		var err error
		extras, err = c.Extras(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewSnapshot(pizzas, extras), nil
}

// Invalidate drops all cached catalog data.
func (c *Client) Invalidate() {
	c.pizzas.Purge()
	c.invalidateExtras()
}

func (c *Client) invalidateExtras() {
	c.mu.Lock()
	c.extras = nil
	c.mu.Unlock()
	c.group.Forget(extrasKey)
}

func findExtra(extras []api.Extra, id string) (api.Extra, bool) {
	for _, e := range extras {
		if e.ID == id {
			return e, true
		}
	}
	return api.Extra{}, false
}

// IsNotFound reports whether err refers to a catalog entry that no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

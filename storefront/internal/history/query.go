// Package history retrieves paginated order history and keeps only the
// result of the most recently issued request visible.
package history

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

// Key identifies one history request. Changing any field makes earlier
// in-flight requests stale.
type Key struct {
	Identifier string
	Page       int
	PageSize   int
	Search     string
}

// Normalize clamps page numbers and trims the search text.
func (k Key) Normalize() Key {
	k.Page = max(1, k.Page)
	k.PageSize = max(1, k.PageSize)
	k.Search = strings.TrimSpace(k.Search)
	return k
}

// Transport is the subset of apiclient.Client the query needs.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values, out any) (*api.PageMeta, error)
}

type Query struct {
	api Transport
}

func NewQuery(t Transport) *Query {
	return &Query{api: t}
}

// Fetch loads one page of orders for key.Identifier. The identifier is sent
// as given, empty included; an empty search is omitted.
func (q *Query) Fetch(ctx context.Context, key Key) (api.Page[api.OrderResponse], error) {
	key = key.Normalize()

	params := url.Values{}
	params.Set("unique_identifier", key.Identifier)
	params.Set("page", strconv.Itoa(key.Page))
	params.Set("per_page", strconv.Itoa(key.PageSize))
	if key.Search != "" {
		params.Set("search", key.Search)
	}

	var orders []api.OrderResponse
	meta, err := q.api.Get(ctx, "/orders/", params, &orders)
	if err != nil {
		return api.Page[api.OrderResponse]{}, fmt.Errorf("history: fetch orders: %w", err)
	}
	if orders == nil {
		orders = []api.OrderResponse{}
	}

	var pm api.PageMeta
	if meta != nil {
		pm = meta.Normalize(key.Page, key.PageSize)
	} else {
		pm = api.NewPageMeta(key.Page, key.PageSize, len(orders))
	}

	return api.Page[api.OrderResponse]{Items: orders, Meta: pm}, nil
}

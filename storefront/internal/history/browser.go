package history

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

// Fetcher is satisfied by Query.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (api.Page[api.OrderResponse], error)
}

// Result is what the presentation layer renders.
type Result struct {
	Seq  uint64
	Key  Key
	Page api.Page[api.OrderResponse]
	Err  error
}

// Browser stamps each load with an increasing sequence number and applies a
// result only while its sequence is still the latest issued. Completion order
// does not matter.
type Browser struct {
	fetcher Fetcher

	mu      sync.Mutex
	latest  uint64
	current Result
}

func NewBrowser(f Fetcher) *Browser {
	return &Browser{fetcher: f}
}

// Load fetches key and reports whether the result became current. A stale
// result is returned with applied=false and leaves Current untouched.
func (b *Browser) Load(ctx context.Context, key Key) (res Result, applied bool) {
	key = key.Normalize()

	b.mu.Lock()
	b.latest++
	seq := b.latest
	b.mu.Unlock()

	page, err := b.fetcher.Fetch(ctx, key)
	res = Result{Seq: seq, Key: key, Page: page, Err: err}

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.latest {
		log.Debug().Uint64("seq", seq).Uint64("latest", b.latest).Int("page", key.Page).Msg("history: discarding stale result")
		return res, false
	}

	b.current = res
	return res, true
}

// Current returns the last applied result.
func (b *Browser) Current() Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

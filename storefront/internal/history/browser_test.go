package history_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/history"
)

// gatedFetcher blocks each page until its gate is released.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   map[int]chan struct{}
	started chan int
}

func newGatedFetcher(pages ...int) *gatedFetcher {
	f := &gatedFetcher{gates: make(map[int]chan struct{}), started: make(chan int, len(pages))}
	for _, p := range pages {
		f.gates[p] = make(chan struct{})
	}
	return f
}

func (f *gatedFetcher) Fetch(ctx context.Context, key history.Key) (api.Page[api.OrderResponse], error) {
	f.mu.Lock()
	gate := f.gates[key.Page]
	f.mu.Unlock()

	f.started <- key.Page
	<-gate

	return api.Page[api.OrderResponse]{
		Items: []api.OrderResponse{{ID: "order-on-page-" + strconv.Itoa(key.Page)}},
		Meta:  api.NewPageMeta(key.Page, key.PageSize, 20),
	}, nil
}

func (f *gatedFetcher) release(page int) {
	close(f.gates[page])
}

func TestBrowser_SlowOlderRequestDoesNotOverwriteNewer(t *testing.T) {
	f := newGatedFetcher(1, 2)
	b := history.NewBrowser(f)
	ctx := context.Background()

	type outcome struct {
		res     history.Result
		applied bool
	}
	page2 := make(chan outcome, 1)
	page1 := make(chan outcome, 1)

	go func() {
		res, applied := b.Load(ctx, history.Key{Identifier: "a@b.com", Page: 2, PageSize: 10})
		page2 <- outcome{res, applied}
	}()
	require.Equal(t, 2, <-f.started)

	go func() {
		res, applied := b.Load(ctx, history.Key{Identifier: "a@b.com", Page: 1, PageSize: 10})
		page1 <- outcome{res, applied}
	}()
	require.Equal(t, 1, <-f.started)

	f.release(1)
	first := <-page1
	assert.True(t, first.applied)
	assert.Equal(t, 1, b.Current().Key.Page)

	f.release(2)
	stale := <-page2
	assert.False(t, stale.applied)
	assert.Less(t, stale.res.Seq, first.res.Seq)

	current := b.Current()
	assert.Equal(t, 1, current.Key.Page)
	assert.Equal(t, "order-on-page-1", current.Page.Items[0].ID)
}

func TestBrowser_OlderResolvingFirstIsStillDiscarded(t *testing.T) {
	f := newGatedFetcher(1, 2)
	b := history.NewBrowser(f)
	ctx := context.Background()

	done := make(chan bool, 2)
	go func() {
		_, applied := b.Load(ctx, history.Key{Identifier: "a@b.com", Page: 1, PageSize: 10})
		done <- applied
	}()
	<-f.started
	go func() {
		_, applied := b.Load(ctx, history.Key{Identifier: "a@b.com", Page: 2, PageSize: 10})
		done <- applied
	}()
	<-f.started

	f.release(1)
	assert.False(t, <-done, "superseded request must not become current")
	assert.Zero(t, b.Current().Seq)

	f.release(2)
	assert.True(t, <-done)
	assert.Equal(t, 2, b.Current().Key.Page)
}

type stubFetcher struct {
	err error
}

func (s stubFetcher) Fetch(ctx context.Context, key history.Key) (api.Page[api.OrderResponse], error) {
	return api.Page[api.OrderResponse]{}, s.err
}

func TestBrowser_ErrorBecomesCurrentAndBrowserStaysUsable(t *testing.T) {
	boom := errors.New("network down")
	b := history.NewBrowser(stubFetcher{err: boom})

	res, applied := b.Load(context.Background(), history.Key{Identifier: "a@b.com", Page: 1, PageSize: 10, Search: " x "})
	require.True(t, applied)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, "x", b.Current().Key.Search)

	res, applied = b.Load(context.Background(), history.Key{Identifier: "a@b.com", Page: 1, PageSize: 10})
	require.True(t, applied)
	assert.Equal(t, uint64(2), res.Seq)
}

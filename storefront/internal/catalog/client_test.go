package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/apiclient"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/catalog"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Get(ctx context.Context, path string, query url.Values, out any) (*api.PageMeta, error) {
	args := m.Called(ctx, path, query, out)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.PageMeta), args.Error(1)
}

func fill[T any](v T) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*args.Get(3).(*T) = v
	}
}

var (
	margherita = api.Pizza{ID: "p1", Name: "Margherita", BasePrice: money.MustParse("9.99"), Ingredients: []string{"tomato", "mozzarella"}, IsActive: true}
	pepperoni  = api.Pizza{ID: "p2", Name: "Pepperoni", BasePrice: money.MustParse("11.50"), IsActive: true}
	cheese     = api.Extra{ID: "e1", Name: "Cheese", Price: money.MustParse("1.50")}
	olives     = api.Extra{ID: "e2", Name: "Olives", Price: money.MustParse("0.75")}
)

func TestClient_PizzaIsCached(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Get", mock.Anything, "/pizzas/p1", url.Values(nil), mock.AnythingOfType("*api.Pizza")).
		Run(fill(margherita)).
		Return(nil, nil).
		Once()

	c := catalog.NewClient(tr)
	ctx := context.Background()

	first, err := c.Pizza(ctx, "p1")
	require.NoError(t, err)
	second, err := c.Pizza(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, "Margherita", first.Name)
	assert.Equal(t, first.ID, second.ID)
	tr.AssertExpectations(t)
}

func TestClient_PizzaNotFoundFromBackend(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/pizzas/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"is_success":false,"data":null,"message":"Pizza not found"}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	transport, err := apiclient.New(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = catalog.NewClient(transport).Pizza(context.Background(), "gone")
	require.Error(t, err)

	var nf *catalog.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, catalog.KindPizza, nf.Kind)
	assert.Equal(t, "gone", nf.ID)
	assert.True(t, catalog.IsNotFound(err))
}

func TestClient_PizzaTransportFailure(t *testing.T) {
	tr := new(MockTransport)
	boom := &apiclient.NetworkError{Op: "GET /pizzas/p1", StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}
	tr.On("Get", mock.Anything, "/pizzas/p1", url.Values(nil), mock.Anything).Return(nil, boom).Once()

	_, err := catalog.NewClient(tr).Pizza(context.Background(), "p1")

	var netErr *apiclient.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.False(t, catalog.IsNotFound(err))
}

func TestClient_ExtrasCachedUntilInvalidate(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Get", mock.Anything, "/extras", url.Values(nil), mock.AnythingOfType("*[]api.Extra")).
		Run(fill([]api.Extra{cheese, olives})).
		Return(nil, nil).
		Twice()

	c := catalog.NewClient(tr)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		extras, err := c.Extras(ctx)
		require.NoError(t, err)
		assert.Len(t, extras, 2)
	}

	c.Invalidate()
	_, err := c.Extras(ctx)
	require.NoError(t, err)

	tr.AssertExpectations(t)
}

func TestClient_ExtraRefreshesOnMiss(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Get", mock.Anything, "/extras", url.Values(nil), mock.Anything).
		Run(fill([]api.Extra{cheese})).
		Return(nil, nil).
		Once()
	tr.On("Get", mock.Anything, "/extras", url.Values(nil), mock.Anything).
		Run(fill([]api.Extra{cheese, olives})).
		Return(nil, nil).
		Once()

	c := catalog.NewClient(tr)

	got, err := c.Extra(context.Background(), "e2")
	require.NoError(t, err)
	assert.Equal(t, "Olives", got.Name)
	tr.AssertExpectations(t)
}

func TestClient_ExtraStillMissingAfterRefresh(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Get", mock.Anything, "/extras", url.Values(nil), mock.Anything).
		Run(fill([]api.Extra{cheese})).
		Return(nil, nil).
		Twice()

	_, err := catalog.NewClient(tr).Extra(context.Background(), "e404")

	var nf *catalog.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, catalog.KindExtra, nf.Kind)
	tr.AssertExpectations(t)
}

func TestClient_ComposeFetchesBoth(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Get", mock.Anything, "/pizzas/p1", url.Values(nil), mock.Anything).Run(fill(margherita)).Return(nil, nil).Once()
	tr.On("Get", mock.Anything, "/extras", url.Values(nil), mock.Anything).Run(fill([]api.Extra{cheese, olives})).Return(nil, nil).Once()

	comp, err := catalog.NewClient(tr).Compose(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", comp.Pizza.ID)
	assert.Len(t, comp.Extras, 2)
	tr.AssertExpectations(t)
}

func TestClient_ComposeFailsWhenExtrasFail(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Get", mock.Anything, "/pizzas/p1", url.Values(nil), mock.Anything).Run(fill(margherita)).Return(nil, nil).Maybe()
	tr.On("Get", mock.Anything, "/extras", url.Values(nil), mock.Anything).
		Return(nil, &apiclient.NetworkError{Op: "GET /extras", Err: errors.New("connection reset")}).
		Once()

	_, err := catalog.NewClient(tr).Compose(context.Background(), "p1")

	var netErr *apiclient.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestClient_SnapshotWalksAllPages(t *testing.T) {
	tr := new(MockTransport)
	pageQuery := func(page string) any {
		return mock.MatchedBy(func(q url.Values) bool { return q.Get("page") == page })
	}
	tr.On("Get", mock.Anything, "/pizzas", pageQuery("1"), mock.Anything).
		Run(fill(api.Page[api.Pizza]{Items: []api.Pizza{margherita}, Meta: api.PageMeta{Page: 1, PerPage: 1, Total: 2}})).
		Return(nil, nil).
		Once()
	tr.On("Get", mock.Anything, "/pizzas", pageQuery("2"), mock.Anything).
		Run(fill(api.Page[api.Pizza]{Items: []api.Pizza{pepperoni}, Meta: api.PageMeta{Page: 2, PerPage: 1, Total: 2}})).
		Return(nil, nil).
		Once()
	tr.On("Get", mock.Anything, "/extras", url.Values(nil), mock.Anything).
		Run(fill([]api.Extra{cheese})).
		Return(nil, nil).
		Once()

	snap, err := catalog.NewClient(tr).Snapshot(context.Background())
	require.NoError(t, err)

	pizzas, extras := snap.Len()
	assert.Equal(t, 2, pizzas)
	assert.Equal(t, 1, extras)
	assert.Equal(t, "Pepperoni", snap.PizzaName("p2"))
	assert.Equal(t, catalog.UnknownPizza, snap.PizzaName("p9"))
	assert.Equal(t, "Cheese", snap.ExtraName("e1"))
	assert.Equal(t, catalog.UnknownExtra, snap.ExtraName("e9"))

	_, err = snap.Extra("e9")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	tr.AssertExpectations(t)
}

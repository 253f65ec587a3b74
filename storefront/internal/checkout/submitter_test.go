package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/apiclient"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/checkout"
)

const placedOrder = `{"is_success":true,"message":"Success","data":{
	"id":"o1","unique_identifier":"a@b.com","status":"created",
	"subtotal":29.97,"extras_total":11.25,"grand_total":41.22,
	"lines":[{"id":"l1","pizza_id":"p1","quantity":3,"extras":["A","A","B"],
		"unit_base_price":9.99,"unit_extras_total":3.75,"line_total":41.22}]}}`

var request = api.OrderRequest{
	Lines:    []api.OrderLineRequest{{PizzaID: "p1", Quantity: 3, Extras: []string{"A", "A", "B"}}},
	Customer: api.CustomerInfo{UniqueIdentifier: "a@b.com", Fullname: "Ada", FullAddress: "Row 12"},
}

func newSubmitter(t *testing.T, h http.HandlerFunc) (*checkout.Submitter, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Post("/orders/checkout", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	})
	r.Post("/orders/quote", h)
	r.Get("/orders/{id}", h)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	transport, err := apiclient.New(srv.URL, time.Second)
	require.NoError(t, err)
	return checkout.NewSubmitter(transport), &calls
}

func TestSubmitter_Submit_Success(t *testing.T) {
	sub, calls := newSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		var got api.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, request.Lines[0].Extras, got.Lines[0].Extras)
		_, _ = w.Write([]byte(placedOrder))
	})

	resp, err := sub.Submit(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, "o1", resp.ID)
	assert.Equal(t, api.StatusCreated, resp.Status)
	assert.Equal(t, "41.22", resp.GrandTotal.String())
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "3.75", resp.Lines[0].UnitExtrasTotal.String())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitter_Submit_Rejected(t *testing.T) {
	sub, _ := newSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"is_success":false,"data":null,"message":"We are not delivering to Mars yet","error":{"type":"validation_error"}}`))
	})

	_, err := sub.Submit(context.Background(), request)

	var rejected *checkout.OrderRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "We are not delivering to Mars yet", rejected.Message)
	assert.Equal(t, "validation_error", rejected.Type)
}

func TestSubmitter_Submit_NetworkErrorNotRetried(t *testing.T) {
	sub, calls := newSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := sub.Submit(context.Background(), request)

	var netErr *apiclient.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusServiceUnavailable, netErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())

	var rejected *checkout.OrderRejectedError
	assert.False(t, errors.As(err, &rejected))
}

func TestSubmitter_Quote(t *testing.T) {
	sub, calls := newSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"is_success":true,"message":"Success","data":{"subtotal":29.97,"extras_total":11.25,"grand_total":41.22,"lines":[]}}`))
	})

	q, err := sub.Quote(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "41.22", q.GrandTotal.String())
	assert.Zero(t, calls.Load(), "quote must not hit checkout")
}

func TestSubmitter_Order(t *testing.T) {
	sub, _ := newSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "o1", chi.URLParam(r, "id"))
		_, _ = w.Write([]byte(placedOrder))
	})

	o, err := sub.Order(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", o.UniqueIdentifier)
}

func TestSubmitter_Submit_RejectedWithStructuredDetails(t *testing.T) {
	sub, _ := newSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"is_success":false,"data":null,"message":"Invalid order",
			"error":{"type":"validation_error","details":{"lines":[{"loc":["quantity"],"msg":"too large"}],"count":3}}}`))
	})

	_, err := sub.Submit(context.Background(), request)

	var rejected *checkout.OrderRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Invalid order", rejected.Message)
	assert.Equal(t, "validation_error", rejected.Type)
	assert.Contains(t, rejected.Details, "lines")
	assert.EqualValues(t, 3, rejected.Details["count"])

	var netErr *apiclient.NetworkError
	assert.False(t, errors.As(err, &netErr))
}

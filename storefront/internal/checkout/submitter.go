package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/apiclient"
)

// OrderRejectedError carries the server message verbatim for display.
type OrderRejectedError struct {
	Message string
	Type    string
	Details map[string]any
}

func (e *OrderRejectedError) Error() string {
	return "checkout: order rejected: " + e.Message
}

// Transport is the subset of apiclient.Client used for checkout.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values, out any) (*api.PageMeta, error)
	Post(ctx context.Context, path string, body, out any) (*api.PageMeta, error)
}

// Submitter sends checkout requests. It never retries and performs no
// duplicate submit protection; Session owns that.
type Submitter struct {
	api Transport
}

func NewSubmitter(t Transport) *Submitter {
	return &Submitter{api: t}
}

// Submit places the order with a single network call.
func (s *Submitter) Submit(ctx context.Context, req api.OrderRequest) (api.OrderResponse, error) {
	var out api.OrderResponse
	if _, err := s.api.Post(ctx, "/orders/checkout", req, &out); err != nil {
		return api.OrderResponse{}, rejected("submit", err)
	}

	if !out.GrandTotal.Equal(out.Subtotal.Add(out.ExtrasTotal)) {
		log.Warn().
			Str("order_id", out.ID).
			Stringer("subtotal", out.Subtotal).
			Stringer("extras_total", out.ExtrasTotal).
			Stringer("grand_total", out.GrandTotal).
			Msg("checkout: server totals do not add up")
	}

	log.Info().Str("order_id", out.ID).Stringer("status", out.Status).Stringer("grand_total", out.GrandTotal).Msg("checkout: order placed")
	return out, nil
}

// Quote asks the server to price req without placing it.
func (s *Submitter) Quote(ctx context.Context, req api.OrderRequest) (api.QuoteResponse, error) {
	var out api.QuoteResponse
	if _, err := s.api.Post(ctx, "/orders/quote", req, &out); err != nil {
		return api.QuoteResponse{}, rejected("quote", err)
	}
	return out, nil
}

// Order fetches a placed order by id.
func (s *Submitter) Order(ctx context.Context, id string) (api.OrderResponse, error) {
	var out api.OrderResponse
	if _, err := s.api.Get(ctx, "/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return api.OrderResponse{}, fmt.Errorf("checkout: get order %s: %w", id, err)
	}
	return out, nil
}

func rejected(op string, err error) error {
	var appErr *apiclient.ApplicationError
	if errors.As(err, &appErr) {
		return &OrderRejectedError{Message: appErr.Message, Type: appErr.Type, Details: appErr.Details}
	}
	return fmt.Errorf("checkout: %s: %w", op, err)
}

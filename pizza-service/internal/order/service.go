package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusCreated: {
		StatusConfirmed: true,
	},
	StatusConfirmed: {
		StatusPreparing: true,
	},
	StatusPreparing: {
		StatusReady: true,
	},
	StatusReady: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return allowedTransitions[from][to]
}

const RoutingKeyOrderCreated = "order.created"

// OrderCreatedEvent is published after an order has been stored.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID   `json:"order_id"`
	UniqueIdentifier string      `json:"unique_identifier"`
	Status           OrderStatus `json:"status"`
	GrandTotal       money.Money `json:"grand_total"`
	Lines            int         `json:"lines"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Catalog resolves the pizzas and extras an order refers to.
type Catalog interface {
	Lookup(ctx context.Context, pizzaIDs, extraIDs []uuid.UUID) (map[uuid.UUID]catalog.Pizza, map[uuid.UUID]catalog.Extra, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Service interface {
	Quote(ctx context.Context, lines []LineInput) (*Quote, error)
	Checkout(ctx context.Context, customer Customer, lines []LineInput) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	History(ctx context.Context, q HistoryQuery) (HistoryPage, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus OrderStatus) error
}

type service struct {
	orderRepo Repository
	catalog   Catalog
	publisher Publisher
}

// NewService wires the order workflow. publisher may be nil.
func NewService(orderRepo Repository, cat Catalog, publisher Publisher) Service {
	return &service{
		orderRepo: orderRepo,
		catalog:   cat,
		publisher: publisher,
	}
}

func (s *service) Quote(ctx context.Context, lines []LineInput) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	pizzaIDs, extraIDs, err := lineIDs(lines)
	if err != nil {
		return nil, err
	}

	pizzas, extras, err := s.catalog.Lookup(ctx, pizzaIDs, extraIDs)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to look up catalog for pricing")
		return nil, fmt.Errorf("service: failed to price order: %w", err)
	}

	return PriceLines(lines, pizzas, extras)
}

func (s *service) Checkout(ctx context.Context, customer Customer, lines []LineInput) (*Order, error) {
	q, err := s.Quote(ctx, lines)
	if err != nil {
		log.Warn().Err(err).Str("unique_identifier", customer.UniqueIdentifier).Msg("service: order rejected during pricing")
		return nil, err
	}

	o := &Order{
		Customer:    customer,
		Status:      StatusCreated,
		Subtotal:    q.Subtotal,
		ExtrasTotal: q.ExtrasTotal,
		GrandTotal:  q.GrandTotal,
		Lines:       q.Lines,
	}

	if _, err := s.orderRepo.CreateOrder(ctx, o); err != nil {
		if errors.Is(err, catalog.ErrPizzaNotFound) || errors.Is(err, catalog.ErrExtraNotFound) {
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Str("unique_identifier", customer.UniqueIdentifier).
		Stringer("grand_total", o.GrandTotal).
		Msg("service: order created successfully")

	s.publishCreated(ctx, o)
	return o, nil
}

// publishCreated never fails the checkout; the order is already stored.
func (s *service) publishCreated(ctx context.Context, o *Order) {
	if s.publisher == nil {
		return
	}

	event := OrderCreatedEvent{
		OrderID:          o.ID,
		UniqueIdentifier: o.Customer.UniqueIdentifier,
		Status:           o.Status,
		GrandTotal:       o.GrandTotal,
		Lines:            len(o.Lines),
		CreatedAt:        o.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, RoutingKeyOrderCreated, event); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: failed to publish order created event")
	}
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) History(ctx context.Context, q HistoryQuery) (HistoryPage, error) {
	if q.UniqueIdentifier == "" {
		return HistoryPage{Orders: []Order{}}, nil
	}

	page, err := s.orderRepo.ListOrders(ctx, q)
	if err != nil {
		log.Error().Err(err).Str("unique_identifier", q.UniqueIdentifier).Msg("service: failed to fetch order history in repository")
		return HistoryPage{}, fmt.Errorf("service: failed to fetch order history: %w", err)
	}
	return page, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus OrderStatus) error {
	if _, known := allowedTransitions[newStatus]; !known {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, newStatus)
	}

	current, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if current.Status == newStatus {
		log.Info().Stringer("order_id", id).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return nil
	}

	if !CanTransition(current.Status, newStatus) {
		log.Warn().
			Stringer("order_id", id).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, current.Status, newStatus)
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, id, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", id).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("service: order status updated successfully")
	return nil
}

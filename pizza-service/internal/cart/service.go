package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/order"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

type Service interface {
	AddItem(ctx context.Context, id Identity, in ItemInput) (*View, error)
	Get(ctx context.Context, id Identity) (*View, error)
}

type service struct {
	repo    Repository
	catalog order.Catalog
}

func NewService(repo Repository, cat order.Catalog) Service {
	return &service{repo: repo, catalog: cat}
}

// AddItem prices the item against the catalog before storing it, so unknown
// or retired pizzas and extras never reach the cart.
func (s *service) AddItem(ctx context.Context, id Identity, in ItemInput) (*View, error) {
	if id.IsZero() {
		return nil, ErrNoIdentity
	}

	item, err := parseItem(in)
	if err != nil {
		return nil, err
	}

	pizzas, extras, err := s.lookup(ctx, []Item{item})
	if err != nil {
		return nil, err
	}
	if _, err := order.PriceLines([]order.LineInput{item.line()}, pizzas, extras); err != nil {
		log.Warn().Err(err).Str("pizza_id", in.PizzaID).Msg("service: cart item rejected during pricing")
		return nil, err
	}

	c, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	item.CartID = c.ID
	if err := s.repo.AddItem(ctx, &item); err != nil {
		if errors.Is(err, catalog.ErrPizzaNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("cart_id", c.ID).Msg("service: failed to add cart item in repository")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	log.Info().
		Stringer("cart_id", c.ID).
		Stringer("pizza_id", item.PizzaID).
		Int("quantity", item.Quantity).
		Msg("service: cart item added")
	return s.view(ctx, c)
}

func (s *service) Get(ctx context.Context, id Identity) (*View, error) {
	if id.IsZero() {
		return nil, ErrNoIdentity
	}
	c, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

func (s *service) resolve(ctx context.Context, id Identity) (*Cart, error) {
	c, err := s.repo.FindOrCreate(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to resolve cart in repository")
		return nil, fmt.Errorf("service: failed to resolve cart: %w", err)
	}
	return c, nil
}

// view prices every stored item with current catalog prices. Items whose
// pizza or extra has since been retired are left out of the totals.
func (s *service) view(ctx context.Context, c *Cart) (*View, error) {
	items, err := s.repo.Items(ctx, c.ID)
	if err != nil {
		log.Error().Err(err).Stringer("cart_id", c.ID).Msg("service: failed to fetch cart items in repository")
		return nil, fmt.Errorf("service: failed to fetch cart items: %w", err)
	}

	v := &View{Cart: *c, Items: make([]PricedItem, 0, len(items))}
	if len(items) == 0 {
		return v, nil
	}

	pizzas, extras, err := s.lookup(ctx, items)
	if err != nil {
		return nil, err
	}

	totals := make([]money.Money, 0, len(items))
	for _, it := range items {
		q, err := order.PriceLines([]order.LineInput{it.line()}, pizzas, extras)
		if err != nil {
			if errors.Is(err, catalog.ErrPizzaNotFound) || errors.Is(err, catalog.ErrExtraNotFound) {
				log.Warn().Err(err).Stringer("cart_item_id", it.ID).Msg("service: skipping cart item no longer in catalog")
				continue
			}
			return nil, fmt.Errorf("service: failed to price cart item %s: %w", it.ID, err)
		}
		l := q.Lines[0]
		v.Items = append(v.Items, PricedItem{
			Item:       it,
			UnitPrice:  l.UnitBasePrice.Add(l.UnitExtrasTotal),
			TotalPrice: l.LineTotal,
		})
		totals = append(totals, l.LineTotal)
	}

	v.Subtotal = money.Sum(totals...).Round()
	v.GrandTotal = v.Subtotal
	return v, nil
}

func (s *service) lookup(ctx context.Context, items []Item) (map[uuid.UUID]catalog.Pizza, map[uuid.UUID]catalog.Extra, error) {
	seenPizza := make(map[uuid.UUID]bool)
	seenExtra := make(map[uuid.UUID]bool)
	var pizzaIDs, extraIDs []uuid.UUID
	for _, it := range items {
		if !seenPizza[it.PizzaID] {
			seenPizza[it.PizzaID] = true
			pizzaIDs = append(pizzaIDs, it.PizzaID)
		}
		for _, eid := range it.ExtraIDs {
			if !seenExtra[eid] {
				seenExtra[eid] = true
				extraIDs = append(extraIDs, eid)
			}
		}
	}

	pizzas, extras, err := s.catalog.Lookup(ctx, pizzaIDs, extraIDs)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to look up catalog for cart")
		return nil, nil, fmt.Errorf("service: failed to look up catalog: %w", err)
	}
	return pizzas, extras, nil
}

// parseItem turns request ids into an Item. Ids that are not UUIDs cannot
// exist and are reported as not found.
func parseItem(in ItemInput) (Item, error) {
	pid, err := uuid.FromString(in.PizzaID)
	if err != nil {
		return Item{}, fmt.Errorf("%w: %s", catalog.ErrPizzaNotFound, in.PizzaID)
	}
	it := Item{PizzaID: pid, Quantity: in.Quantity, ExtraIDs: make([]uuid.UUID, 0, len(in.Extras))}
	for _, raw := range in.Extras {
		eid, err := uuid.FromString(raw)
		if err != nil {
			return Item{}, fmt.Errorf("%w: %s", catalog.ErrExtraNotFound, raw)
		}
		it.ExtraIDs = append(it.ExtraIDs, eid)
	}
	return it, nil
}

func (it Item) line() order.LineInput {
	extras := make(map[string]int, len(it.ExtraIDs))
	for _, id := range it.ExtraIDs {
		extras[id.String()]++
	}
	return order.LineInput{PizzaID: it.PizzaID.String(), Quantity: it.Quantity, Extras: extras}
}

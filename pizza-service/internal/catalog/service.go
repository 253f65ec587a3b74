package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	ListPizzas(ctx context.Context, limit, offset int) (PizzaPage, error)
	GetPizza(ctx context.Context, id uuid.UUID) (*Pizza, error)
	ListExtras(ctx context.Context) ([]Extra, error)
	Lookup(ctx context.Context, pizzaIDs, extraIDs []uuid.UUID) (map[uuid.UUID]Pizza, map[uuid.UUID]Extra, error)
}

type service struct {
	repo  Repository
	cache Cache
}

// NewService reads through cache when it is non-nil. Cache failures are
// logged and never surface to callers.
func NewService(repo Repository, cache Cache) Service {
	return &service{repo: repo, cache: cache}
}

func (s *service) ListPizzas(ctx context.Context, limit, offset int) (PizzaPage, error) {
	if s.cache != nil {
		page, err := s.cache.PizzaPage(ctx, limit, offset)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Msg("service: catalog cache read failed")
		}
	}

	page, err := s.repo.ListPizzas(ctx, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list pizzas in repository")
		return PizzaPage{}, fmt.Errorf("service: failed to list pizzas: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPizzaPage(ctx, limit, offset, page); err != nil {
			log.Warn().Err(err).Msg("service: catalog cache write failed")
		}
	}
	return page, nil
}

func (s *service) GetPizza(ctx context.Context, id uuid.UUID) (*Pizza, error) {
	p, err := s.repo.GetPizza(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPizzaNotFound) {
			log.Warn().Stringer("pizza_id", id).Msg("service: pizza not found by id")
			return nil, ErrPizzaNotFound
		}
		log.Error().Err(err).Stringer("pizza_id", id).Msg("service: failed to fetch pizza in repository")
		return nil, fmt.Errorf("service: failed to fetch pizza: %w", err)
	}
	return p, nil
}

func (s *service) ListExtras(ctx context.Context) ([]Extra, error) {
	if s.cache != nil {
		extras, err := s.cache.Extras(ctx)
		if err == nil {
			return extras, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Msg("service: catalog cache read failed")
		}
	}

	extras, err := s.repo.ListExtras(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list extras in repository")
		return nil, fmt.Errorf("service: failed to list extras: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetExtras(ctx, extras); err != nil {
			log.Warn().Err(err).Msg("service: catalog cache write failed")
		}
	}
	return extras, nil
}

// Lookup always reads Postgres so prices used for an order are current.
func (s *service) Lookup(ctx context.Context, pizzaIDs, extraIDs []uuid.UUID) (map[uuid.UUID]Pizza, map[uuid.UUID]Extra, error) {
	pizzas, err := s.repo.PizzasByIDs(ctx, pizzaIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("service: failed to look up pizzas: %w", err)
	}
	extras, err := s.repo.ExtrasByIDs(ctx, extraIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("service: failed to look up extras: %w", err)
	}
	return pizzas, extras, nil
}

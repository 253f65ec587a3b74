// Package catalog is the read-only view of pizzas and extras offered by the backend.
package catalog

import (
	"errors"
	"fmt"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

const (
	KindPizza = "pizza"
	KindExtra = "extra"

	UnknownPizza = "Unknown Pizza"
	UnknownExtra = "Unknown Extra"
)

var ErrNotFound = errors.New("catalog entry not found")

// NotFoundError names a pizza or extra id absent from a freshly fetched catalog.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: %s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Snapshot is an immutable id index over one fetch of the catalog.
type Snapshot struct {
	pizzas map[string]api.Pizza
	extras map[string]api.Extra
}

func NewSnapshot(pizzas []api.Pizza, extras []api.Extra) *Snapshot {
	s := &Snapshot{
		pizzas: make(map[string]api.Pizza, len(pizzas)),
		extras: make(map[string]api.Extra, len(extras)),
	}
	for _, p := range pizzas {
		s.pizzas[p.ID] = p
	}
	for _, e := range extras {
		s.extras[e.ID] = e
	}
	return s
}

func (s *Snapshot) Pizza(id string) (api.Pizza, error) {
	p, ok := s.pizzas[id]
	if !ok {
		return api.Pizza{}, &NotFoundError{Kind: KindPizza, ID: id}
	}
	return p, nil
}

func (s *Snapshot) Extra(id string) (api.Extra, error) {
	e, ok := s.extras[id]
	if !ok {
		return api.Extra{}, &NotFoundError{Kind: KindExtra, ID: id}
	}
	return e, nil
}

// PizzaName falls back to UnknownPizza for ids the snapshot does not know.
func (s *Snapshot) PizzaName(id string) string {
	if p, ok := s.pizzas[id]; ok {
		return p.Name
	}
	return UnknownPizza
}

func (s *Snapshot) ExtraName(id string) string {
	if e, ok := s.extras[id]; ok {
		return e.Name
	}
	return UnknownExtra
}

func (s *Snapshot) Len() (pizzas, extras int) {
	return len(s.pizzas), len(s.extras)
}

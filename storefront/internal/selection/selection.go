// Package selection holds the not-yet-submitted cart: one pizza, its quantity
// and a set of extras each with an independent quantity.
package selection

import (
	"slices"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

// ExtraSelection is one chosen extra. Quantity is always at least 1.
type ExtraSelection struct {
	Extra    api.Extra
	Quantity int
}

// Selection is keyed by extra id with at most one entry per id. An extra set
// to quantity 0 is removed, never stored.
type Selection struct {
	pizza         api.Pizza
	pizzaQuantity int
	extras        map[string]ExtraSelection
	order         []string
}

func New(pizza api.Pizza) *Selection {
	return &Selection{
		pizza:         pizza,
		pizzaQuantity: 1,
		extras:        make(map[string]ExtraSelection),
	}
}

func (s *Selection) Pizza() api.Pizza {
	return s.pizza
}

// HasPizza reports whether a pizza has been chosen.
func (s *Selection) HasPizza() bool {
	return s != nil && s.pizza.ID != ""
}

func (s *Selection) PizzaQuantity() int {
	return s.pizzaQuantity
}

// SetPizzaQuantity clamps to a minimum of one pizza.
func (s *Selection) SetPizzaQuantity(q int) {
	s.pizzaQuantity = max(1, q)
}

// SetExtraQuantity sets the quantity of extra to max(0, q). Zero removes it.
func (s *Selection) SetExtraQuantity(extra api.Extra, q int) {
	q = max(0, q)

	if q == 0 {
		if _, ok := s.extras[extra.ID]; ok {
			delete(s.extras, extra.ID)
			s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == extra.ID })
		}
		return
	}

	if s.extras == nil {
		s.extras = make(map[string]ExtraSelection)
	}
	if _, ok := s.extras[extra.ID]; !ok {
		s.order = append(s.order, extra.ID)
	}
	s.extras[extra.ID] = ExtraSelection{Extra: extra, Quantity: q}
}

// ExtraQuantity returns 0 for extras that are not selected.
func (s *Selection) ExtraQuantity(id string) int {
	return s.extras[id].Quantity
}

// Extras lists the selected extras in the order they were first added.
func (s *Selection) Extras() []ExtraSelection {
	out := make([]ExtraSelection, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.extras[id])
	}
	return out
}

func (s *Selection) ExtrasTotal() money.Money {
	total := money.Zero
	for _, es := range s.extras {
		total = total.Add(es.Extra.Price.Mul(es.Quantity))
	}
	return total
}

// UnitPrice is the price of one pizza including its extras.
func (s *Selection) UnitPrice() money.Money {
	return s.pizza.BasePrice.Add(s.ExtrasTotal())
}

func (s *Selection) Total() money.Money {
	return s.UnitPrice().Mul(s.pizzaQuantity)
}

package order

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

// lineIDs parses every pizza and extra id in inputs. Ids that are not UUIDs
// cannot exist and are reported as not found.
func lineIDs(inputs []LineInput) (pizzaIDs, extraIDs []uuid.UUID, err error) {
	seenPizza := make(map[uuid.UUID]bool)
	seenExtra := make(map[uuid.UUID]bool)

	for _, in := range inputs {
		pid, err := uuid.FromString(in.PizzaID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", catalog.ErrPizzaNotFound, in.PizzaID)
		}
		if !seenPizza[pid] {
			seenPizza[pid] = true
			pizzaIDs = append(pizzaIDs, pid)
		}

		for raw := range in.Extras {
			eid, err := uuid.FromString(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s", catalog.ErrExtraNotFound, raw)
			}
			if !seenExtra[eid] {
				seenExtra[eid] = true
				extraIDs = append(extraIDs, eid)
			}
		}
	}
	return pizzaIDs, extraIDs, nil
}

// PriceLines prices inputs against the given catalog rows.
//
//	unit_extras_total = sum(extra price * count)
//	line_total        = (unit_base_price + unit_extras_total) * quantity
//	subtotal          = sum(unit_base_price * quantity)
//	extras_total      = sum(unit_extras_total * quantity)
//	grand_total       = subtotal + extras_total
//
// Every amount is rounded half to even at two decimals.
func PriceLines(inputs []LineInput, pizzas map[uuid.UUID]catalog.Pizza, extras map[uuid.UUID]catalog.Extra) (*Quote, error) {
	if len(inputs) == 0 {
		return nil, ErrNoLines
	}

	q := &Quote{Lines: make([]Line, 0, len(inputs))}

	for _, in := range inputs {
		if in.Quantity < MinQuantity || in.Quantity > MaxQuantity {
			return nil, fmt.Errorf("%w: pizza %s quantity %d", ErrInvalidQuantity, in.PizzaID, in.Quantity)
		}

		pid, err := uuid.FromString(in.PizzaID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", catalog.ErrPizzaNotFound, in.PizzaID)
		}
		pizza, ok := pizzas[pid]
		if !ok {
			return nil, fmt.Errorf("%w: %s", catalog.ErrPizzaNotFound, in.PizzaID)
		}

		line := Line{
			PizzaID:       pizza.ID,
			PizzaName:     pizza.Name,
			Quantity:      in.Quantity,
			UnitBasePrice: pizza.BasePrice.Round(),
			Extras:        make([]LineExtra, 0, len(in.Extras)),
		}

		counts := make(map[string]int, len(in.Extras))
		for raw, count := range in.Extras {
			eid, err := uuid.FromString(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", catalog.ErrExtraNotFound, raw)
			}
			counts[eid.String()] += count
		}

		unitExtras := money.Zero
		for _, id := range slices.Sorted(maps.Keys(counts)) {
			count := counts[id]
			if count < MinQuantity || count > MaxQuantity {
				return nil, fmt.Errorf("%w: extra %s quantity %d", ErrInvalidQuantity, id, count)
			}

			extra, ok := extras[uuid.FromStringOrNil(id)]
			if !ok {
				return nil, fmt.Errorf("%w: %s", catalog.ErrExtraNotFound, id)
			}

			line.Extras = append(line.Extras, LineExtra{
				ExtraID:   extra.ID,
				Name:      extra.Name,
				Quantity:  count,
				UnitPrice: extra.Price.Round(),
			})
			unitExtras = unitExtras.Add(extra.Price.Mul(count))
		}

		line.UnitExtrasTotal = unitExtras.Round()
		line.LineTotal = line.UnitBasePrice.Add(line.UnitExtrasTotal).Mul(line.Quantity).Round()

		q.Subtotal = q.Subtotal.Add(line.UnitBasePrice.Mul(line.Quantity))
		q.ExtrasTotal = q.ExtrasTotal.Add(line.UnitExtrasTotal.Mul(line.Quantity))
		q.Lines = append(q.Lines, line)
	}

	q.Subtotal = q.Subtotal.Round()
	q.ExtrasTotal = q.ExtrasTotal.Round()
	q.GrandTotal = q.Subtotal.Add(q.ExtrasTotal).Round()

	return q, nil
}

// ExtraIDs expands a line's extras back into the repeated id list used on
// the wire, ordered by extra id.
func (l Line) ExtraIDs() []string {
	ids := make([]string, 0)
	for _, e := range l.Extras {
		for range e.Quantity {
			ids = append(ids, e.ExtraID.String())
		}
	}
	return ids
}

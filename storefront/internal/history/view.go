package history

import (
	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/order"
)

type ExtraView struct {
	ID       string
	Name     string
	Quantity int
}

type LineView struct {
	PizzaName string
	Quantity  int
	Extras    []ExtraView
	LineTotal money.Money
}

type OrderView struct {
	Order api.OrderResponse
	Lines []LineView
}

// BuildViews resolves pizza and extra names against snap and folds repeated
// extra ids back into quantities.
func BuildViews(orders []api.OrderResponse, snap *catalog.Snapshot) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v := OrderView{Order: o, Lines: make([]LineView, 0, len(o.Lines))}
		for _, l := range o.Lines {
			counts := order.CountExtras(l.Extras)
			extras := make([]ExtraView, 0, len(counts))
			for _, id := range order.SortedExtraIDs(counts) {
				extras = append(extras, ExtraView{ID: id, Name: snap.ExtraName(id), Quantity: counts[id]})
			}
			v.Lines = append(v.Lines, LineView{
				PizzaName: snap.PizzaName(l.PizzaID),
				Quantity:  l.Quantity,
				Extras:    extras,
				LineTotal: l.LineTotal,
			})
		}
		views = append(views, v)
	}
	return views
}

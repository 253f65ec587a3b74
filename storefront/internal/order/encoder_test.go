package order_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/order"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/selection"
)

var customer = api.CustomerInfo{
	UniqueIdentifier: "a@b.com",
	Fullname:         "Ada Lovelace",
	FullAddress:      "12 Analytical Row",
}

func newSelection() *selection.Selection {
	s := selection.New(api.Pizza{ID: "p1", Name: "Margherita", BasePrice: money.MustParse("9.99")})
	s.SetExtraQuantity(api.Extra{ID: "A", Price: money.MustParse("1.50")}, 2)
	s.SetExtraQuantity(api.Extra{ID: "B", Price: money.MustParse("0.75")}, 1)
	s.SetExtraQuantity(api.Extra{ID: "C", Price: money.MustParse("0.20")}, 5)
	s.SetPizzaQuantity(3)
	return s
}

func TestEncoder_EncodeSingleLine(t *testing.T) {
	req, err := order.NewEncoder().Encode(newSelection(), customer)
	require.NoError(t, err)

	require.Len(t, req.Lines, 1)
	line := req.Lines[0]
	assert.Equal(t, "p1", line.PizzaID)
	assert.Equal(t, 3, line.Quantity)
	assert.Len(t, line.Extras, 8)
	assert.Nil(t, line.ExtraQuantities)
	assert.Equal(t, customer, req.Customer)
}

func TestEncoder_RoundTripByCounting(t *testing.T) {
	sel := newSelection()

	req, err := order.NewEncoder().Encode(sel, customer)
	require.NoError(t, err)

	want := make(map[string]int)
	for _, es := range sel.Extras() {
		want[es.Extra.ID] = es.Quantity
	}

	got := order.CountExtras(req.Lines[0].Extras)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CountExtras(Encode()) mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"A", "B", "C"}, order.SortedExtraIDs(got))
}

func TestEncoder_RemovedExtraIsAbsent(t *testing.T) {
	sel := newSelection()
	sel.SetExtraQuantity(api.Extra{ID: "A"}, 0)

	req, err := order.NewEncoder().Encode(sel, customer)
	require.NoError(t, err)

	assert.NotContains(t, req.Lines[0].Extras, "A")
	assert.Len(t, req.Lines[0].Extras, 6)
}

func TestEncoder_CountedExtrasOption(t *testing.T) {
	req, err := order.NewEncoder(order.WithCountedExtras()).Encode(newSelection(), customer)
	require.NoError(t, err)

	line := req.Lines[0]
	assert.Equal(t, map[string]int{"A": 2, "B": 1, "C": 5}, line.ExtraQuantities)
	assert.Equal(t, line.ExtraQuantities, order.CountExtras(line.Extras))
}

func TestEncoder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		sel        *selection.Selection
		customer   api.CustomerInfo
		wantFields []string
	}{
		{
			name:       "empty_fullname",
			sel:        newSelection(),
			customer:   api.CustomerInfo{UniqueIdentifier: "a@b.com", FullAddress: "x"},
			wantFields: []string{"customer.fullname"},
		},
		{
			name:       "blank_identifier_and_address",
			sel:        newSelection(),
			customer:   api.CustomerInfo{UniqueIdentifier: "   ", Fullname: "Ada", FullAddress: "\t"},
			wantFields: []string{"customer.unique_identifier", "customer.full_address"},
		},
		{
			name:       "nil_selection",
			sel:        nil,
			customer:   customer,
			wantFields: []string{"lines[0].pizza"},
		},
		{
			name:       "selection_without_pizza",
			sel:        selection.New(api.Pizza{}),
			customer:   customer,
			wantFields: []string{"lines[0].pizza"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := order.NewEncoder().Encode(tt.sel, tt.customer)
			require.Error(t, err)

			var verr *order.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestEncoder_TrimsCustomer(t *testing.T) {
	req, err := order.NewEncoder().Encode(newSelection(), api.CustomerInfo{
		UniqueIdentifier: " a@b.com ",
		Fullname:         "Ada Lovelace\n",
		FullAddress:      " 12 Analytical Row",
	})
	require.NoError(t, err)
	assert.Equal(t, customer, req.Customer)
}

func TestEncoder_EncodeLinesKeepsEveryLine(t *testing.T) {
	second := selection.New(api.Pizza{ID: "p2", BasePrice: money.MustParse("11.00")})

	req, err := order.NewEncoder().EncodeLines(customer, newSelection(), second)
	require.NoError(t, err)

	require.Len(t, req.Lines, 2)
	assert.Equal(t, "p1", req.Lines[0].PizzaID)
	assert.Equal(t, "p2", req.Lines[1].PizzaID)
	assert.Empty(t, req.Lines[1].Extras)
	assert.Equal(t, 1, req.Lines[1].Quantity)

	_, err = order.NewEncoder().EncodeLines(customer)
	assert.ErrorIs(t, err, order.ErrNoLines)
}

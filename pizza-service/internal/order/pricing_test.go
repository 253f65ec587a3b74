package order

import (
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

var (
	margherita = catalog.Pizza{ID: uuid.Must(uuid.FromString("5b3a4c6e-1f0e-4a57-9a55-0c7d1d0e1a01")), Name: "Margherita", BasePrice: money.MustParse("9.99"), IsActive: true}
	pepperoni  = catalog.Pizza{ID: uuid.Must(uuid.FromString("5b3a4c6e-1f0e-4a57-9a55-0c7d1d0e1a02")), Name: "Pepperoni", BasePrice: money.MustParse("11.50"), IsActive: true}
	cheese     = catalog.Extra{ID: uuid.Must(uuid.FromString("9e0f1a2b-3c4d-4e5f-8a9b-0c1d2e3f4a01")), Name: "Cheese", Price: money.MustParse("1.25"), IsActive: true}
	olives     = catalog.Extra{ID: uuid.Must(uuid.FromString("9e0f1a2b-3c4d-4e5f-8a9b-0c1d2e3f4a02")), Name: "Olives", Price: money.MustParse("0.75"), IsActive: true}

	testPizzas = map[uuid.UUID]catalog.Pizza{margherita.ID: margherita, pepperoni.ID: pepperoni}
	testExtras = map[uuid.UUID]catalog.Extra{cheese.ID: cheese, olives.ID: olives}
)

func TestPriceLines_SingleLine(t *testing.T) {
	q, err := PriceLines([]LineInput{{
		PizzaID:  margherita.ID.String(),
		Quantity: 3,
		Extras:   map[string]int{cheese.ID.String(): 2, olives.ID.String(): 1},
	}}, testPizzas, testExtras)
	require.NoError(t, err)

	require.Len(t, q.Lines, 1)
	line := q.Lines[0]
	assert.Equal(t, "Margherita", line.PizzaName)
	assert.Equal(t, "9.99", line.UnitBasePrice.String())
	assert.Equal(t, "3.25", line.UnitExtrasTotal.String())
	assert.Equal(t, "39.72", line.LineTotal.String())

	assert.Equal(t, "29.97", q.Subtotal.String())
	assert.Equal(t, "9.75", q.ExtrasTotal.String())
	assert.Equal(t, "39.72", q.GrandTotal.String())

	require.Len(t, line.Extras, 2)
	assert.Equal(t, cheese.ID, line.Extras[0].ExtraID)
	assert.Equal(t, 2, line.Extras[0].Quantity)
	assert.Equal(t, []string{cheese.ID.String(), cheese.ID.String(), olives.ID.String()}, line.ExtraIDs())
}

func TestPriceLines_MultipleLinesSumExactly(t *testing.T) {
	q, err := PriceLines([]LineInput{
		{PizzaID: margherita.ID.String(), Quantity: 1},
		{PizzaID: pepperoni.ID.String(), Quantity: 2, Extras: map[string]int{olives.ID.String(): 3}},
	}, testPizzas, testExtras)
	require.NoError(t, err)

	assert.Equal(t, "32.99", q.Subtotal.String())
	assert.Equal(t, "4.50", q.ExtrasTotal.String())
	assert.Equal(t, "37.49", q.GrandTotal.String())

	sum := money.Zero
	for _, l := range q.Lines {
		sum = sum.Add(l.LineTotal)
	}
	assert.True(t, sum.Equal(q.GrandTotal))
}

func TestPriceLines_ExtraIDsAreCaseInsensitive(t *testing.T) {
	q, err := PriceLines([]LineInput{{
		PizzaID:  strings.ToUpper(margherita.ID.String()),
		Quantity: 1,
		Extras:   map[string]int{cheese.ID.String(): 1, strings.ToUpper(cheese.ID.String()): 1},
	}}, testPizzas, testExtras)
	require.NoError(t, err)

	require.Len(t, q.Lines[0].Extras, 1)
	assert.Equal(t, 2, q.Lines[0].Extras[0].Quantity)
	assert.Equal(t, "2.50", q.ExtrasTotal.String())
}

func TestPriceLines_Errors(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []LineInput
		wantErr error
	}{
		{name: "no_lines", inputs: nil, wantErr: ErrNoLines},
		{name: "zero_quantity", inputs: []LineInput{{PizzaID: margherita.ID.String(), Quantity: 0}}, wantErr: ErrInvalidQuantity},
		{name: "too_many", inputs: []LineInput{{PizzaID: margherita.ID.String(), Quantity: 100}}, wantErr: ErrInvalidQuantity},
		{name: "unknown_pizza", inputs: []LineInput{{PizzaID: uuid.Must(uuid.NewV4()).String(), Quantity: 1}}, wantErr: catalog.ErrPizzaNotFound},
		{name: "malformed_pizza_id", inputs: []LineInput{{PizzaID: "pizza-1", Quantity: 1}}, wantErr: catalog.ErrPizzaNotFound},
		{
			name:    "unknown_extra",
			inputs:  []LineInput{{PizzaID: margherita.ID.String(), Quantity: 1, Extras: map[string]int{uuid.Must(uuid.NewV4()).String(): 1}}},
			wantErr: catalog.ErrExtraNotFound,
		},
		{
			name:    "extra_count_out_of_range",
			inputs:  []LineInput{{PizzaID: margherita.ID.String(), Quantity: 1, Extras: map[string]int{cheese.ID.String(): 0}}},
			wantErr: ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PriceLines(tt.inputs, testPizzas, testExtras)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLineIDs_Deduplicates(t *testing.T) {
	pizzas, extras, err := lineIDs([]LineInput{
		{PizzaID: margherita.ID.String(), Extras: map[string]int{cheese.ID.String(): 1}},
		{PizzaID: margherita.ID.String(), Extras: map[string]int{cheese.ID.String(): 2, olives.ID.String(): 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{margherita.ID}, pizzas)
	assert.ElementsMatch(t, []uuid.UUID{cheese.ID, olives.ID}, extras)
}

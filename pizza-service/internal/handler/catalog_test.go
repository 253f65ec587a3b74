package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListPizzas(ctx context.Context, limit, offset int) (catalog.PizzaPage, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).(catalog.PizzaPage), args.Error(1)
}

func (m *MockCatalogService) GetPizza(ctx context.Context, id uuid.UUID) (*catalog.Pizza, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Pizza), args.Error(1)
}

func (m *MockCatalogService) ListExtras(ctx context.Context) ([]catalog.Extra, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Extra), args.Error(1)
}

func (m *MockCatalogService) Lookup(ctx context.Context, pizzaIDs, extraIDs []uuid.UUID) (map[uuid.UUID]catalog.Pizza, map[uuid.UUID]catalog.Extra, error) {
	args := m.Called(ctx, pizzaIDs, extraIDs)
	return args.Get(0).(map[uuid.UUID]catalog.Pizza), args.Get(1).(map[uuid.UUID]catalog.Extra), args.Error(2)
}

func serveCatalog(svc catalog.Service, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewCatalogHandler(svc).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func margherita() catalog.Pizza {
	return catalog.Pizza{
		ID:          pizzaID,
		Name:        "Margherita",
		BasePrice:   money.MustParse("8.50"),
		Ingredients: []string{"tomato", "mozzarella", "basil"},
		IsActive:    true,
	}
}

func TestCatalogHandler_ListPizzas(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("ListPizzas", mock.Anything, 2, 2).
		Return(catalog.PizzaPage{Pizzas: []catalog.Pizza{margherita()}, Total: 3}, nil).Once()

	w := serveCatalog(svc, "/pizzas?page=2&page_size=2")

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.True(t, env.IsSuccess)

	var got api.Page[api.Pizza]
	require.NoError(t, json.Unmarshal(env.Data, &got))

	want := api.Page[api.Pizza]{
		Items: []api.Pizza{{
			ID:          pizzaID.String(),
			Name:        "Margherita",
			BasePrice:   money.MustParse("8.50"),
			Ingredients: []string{"tomato", "mozzarella", "basil"},
			IsActive:    true,
		}},
		Meta: api.PageMeta{Page: 2, PerPage: 2, Total: 3, Pages: 2, HasPrev: true},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b money.Money) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("list pizzas mismatch (-want +got):\n%s", diff)
	}
	svc.AssertExpectations(t)
}

func TestCatalogHandler_ListPizzas_ServiceError(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("ListPizzas", mock.Anything, api.DefaultPerPage, 0).
		Return(catalog.PizzaPage{}, errors.New("service: failed to list pizzas: timeout")).Once()

	w := serveCatalog(svc, "/pizzas")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to list pizzas", decodeEnvelope(t, w).Message)
}

func TestCatalogHandler_GetPizza(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockCatalogService)
		p := margherita()
		svc.On("GetPizza", mock.Anything, pizzaID).Return(&p, nil).Once()

		w := serveCatalog(svc, "/pizzas/"+pizzaID.String())

		assert.Equal(t, http.StatusOK, w.Code)
		var got api.Pizza
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
		assert.Equal(t, "Margherita", got.Name)
		assert.Equal(t, "8.50", got.BasePrice.String())
	})

	t.Run("not_found", func(t *testing.T) {
		svc := new(MockCatalogService)
		svc.On("GetPizza", mock.Anything, pizzaID).Return(nil, catalog.ErrPizzaNotFound).Once()

		w := serveCatalog(svc, "/pizzas/"+pizzaID.String())

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, api.ErrTypeNotFound, env.Error.Type)
		assert.Equal(t, "Pizza not found", env.Message)
	})

	t.Run("malformed_id", func(t *testing.T) {
		svc := new(MockCatalogService)

		w := serveCatalog(svc, "/pizzas/42")

		assert.Equal(t, http.StatusNotFound, w.Code)
		svc.AssertNotCalled(t, "GetPizza", mock.Anything, mock.Anything)
	})
}

func TestCatalogHandler_ListExtras(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("ListExtras", mock.Anything).Return([]catalog.Extra{
		{ID: extraID, Name: "Olives", Price: money.MustParse("0.75"), IsActive: true},
	}, nil).Once()

	w := serveCatalog(svc, "/extras")

	assert.Equal(t, http.StatusOK, w.Code)
	var got []api.Extra
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, extraID.String(), got[0].ID)
	assert.Equal(t, "0.75", got[0].Price.String())
}

func TestClientMessage(t *testing.T) {
	assert.Equal(t, "Pizza not found", clientMessage(catalog.ErrPizzaNotFound))
	assert.Equal(t, "Order must contain at least one line", clientMessage(errors.New("service: order must contain at least one line")))
}

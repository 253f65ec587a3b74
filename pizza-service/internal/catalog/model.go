package catalog

import (
	"errors"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

var (
	ErrPizzaNotFound = errors.New("pizza not found")
	ErrExtraNotFound = errors.New("extra not found")
)

type Pizza struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	BasePrice   money.Money `json:"base_price"`
	Ingredients []string    `json:"ingredients"`
	ImageURL    *string     `json:"image_url,omitempty"`
	IsActive    bool        `json:"is_active"`
}

type Extra struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	Price    money.Money `json:"price"`
	IsActive bool        `json:"is_active"`
}

// PizzaPage is one page of active pizzas plus the total active count.
type PizzaPage struct {
	Pizzas []Pizza `json:"pizzas"`
	Total  int     `json:"total"`
}

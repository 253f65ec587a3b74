package api

import "github.com/vasiliy-maslov/pizzeria/pkg/money"

type Pizza struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	BasePrice   money.Money `json:"base_price"`
	Ingredients []string    `json:"ingredients"`
	ImageURL    *string     `json:"image_url,omitempty"`
	IsActive    bool        `json:"is_active"`
}

type Extra struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

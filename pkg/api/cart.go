package api

import "github.com/vasiliy-maslov/pizzeria/pkg/money"

// Cart identity headers. Email wins when both are sent.
const (
	HeaderCartEmail = "X-Cart-Email"
	HeaderCartToken = "X-Cart-Token"
)

// CartItemRequest adds one pizza to a cart. Extras lists each extra id once
// per unit, as in OrderLineRequest.
type CartItemRequest struct {
	PizzaID  string   `json:"pizza_id" validate:"required,uuid"`
	Quantity int      `json:"quantity" validate:"min=1,max=99"`
	Extras   []string `json:"extras" validate:"omitempty,dive,uuid"`
}

type CartItemResponse struct {
	ID         string      `json:"id"`
	PizzaID    string      `json:"pizza_id"`
	Quantity   int         `json:"quantity"`
	Extras     []string    `json:"extras"`
	UnitPrice  money.Money `json:"unit_price"`
	TotalPrice money.Money `json:"total_price"`
}

type CartResponse struct {
	ID         string             `json:"id"`
	Token      string             `json:"token,omitempty"`
	Items      []CartItemResponse `json:"items"`
	Subtotal   money.Money        `json:"subtotal"`
	GrandTotal money.Money        `json:"grand_total"`
}

package api

import (
	"strings"
	"time"

	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

type OrderStatus string

const (
	StatusCreated   OrderStatus = "created"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
)

func (s OrderStatus) String() string {
	return string(s)
}

// CustomerInfo identifies who placed an order.
type CustomerInfo struct {
	UniqueIdentifier string `json:"unique_identifier" validate:"required,max=255"`
	Fullname         string `json:"fullname" validate:"required,max=255"`
	FullAddress      string `json:"full_address" validate:"required,max=1000"`
}

// Trimmed returns c with surrounding whitespace removed from every field.
func (c CustomerInfo) Trimmed() CustomerInfo {
	return CustomerInfo{
		UniqueIdentifier: strings.TrimSpace(c.UniqueIdentifier),
		Fullname:         strings.TrimSpace(c.Fullname),
		FullAddress:      strings.TrimSpace(c.FullAddress),
	}
}

// OrderLineRequest is one pizza line. Extras lists each extra id once per
// unit of quantity. ExtraQuantities, when set, carries the same counts as an
// explicit mapping and takes precedence on the server.
type OrderLineRequest struct {
	PizzaID         string         `json:"pizza_id" validate:"required"`
	Quantity        int            `json:"quantity" validate:"min=1,max=99"`
	Extras          []string       `json:"extras"`
	ExtraQuantities map[string]int `json:"extra_quantities,omitempty" validate:"omitempty,dive,min=1,max=99"`
}

type OrderRequest struct {
	Lines    []OrderLineRequest `json:"lines" validate:"required,min=1,dive"`
	Customer CustomerInfo       `json:"customer"`
}

// Normalize trims the customer fields so blank values fail validation.
func (r *OrderRequest) Normalize() {
	r.Customer = r.Customer.Trimmed()
}

type OrderLineResponse struct {
	ID              string      `json:"id"`
	PizzaID         string      `json:"pizza_id"`
	Quantity        int         `json:"quantity"`
	Extras          []string    `json:"extras"`
	UnitBasePrice   money.Money `json:"unit_base_price"`
	UnitExtrasTotal money.Money `json:"unit_extras_total"`
	LineTotal       money.Money `json:"line_total"`
}

type OrderResponse struct {
	ID               string              `json:"id"`
	UniqueIdentifier string              `json:"unique_identifier"`
	Status           OrderStatus         `json:"status"`
	Subtotal         money.Money         `json:"subtotal"`
	ExtrasTotal      money.Money         `json:"extras_total"`
	GrandTotal       money.Money         `json:"grand_total"`
	Lines            []OrderLineResponse `json:"lines"`
	CreatedAt        time.Time           `json:"created_at"`
}

// QuoteResponse is the priced form of a request that was not persisted.
type QuoteResponse struct {
	Subtotal    money.Money         `json:"subtotal"`
	ExtrasTotal money.Money         `json:"extras_total"`
	GrandTotal  money.Money         `json:"grand_total"`
	Lines       []OrderLineResponse `json:"lines"`
}

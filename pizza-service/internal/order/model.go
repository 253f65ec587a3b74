package order

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"

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

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrNoLines                 = errors.New("order must contain at least one line")
	ErrInvalidQuantity         = errors.New("quantity must be between 1 and 99")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

type Customer struct {
	ID               uuid.UUID
	UniqueIdentifier string
	Fullname         string
	FullAddress      string
}

// LineExtra is one distinct extra on a line with its per-pizza count.
type LineExtra struct {
	ExtraID   uuid.UUID
	Name      string
	Quantity  int
	UnitPrice money.Money
}

type Line struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	PizzaID         uuid.UUID
	PizzaName       string
	Quantity        int
	Extras          []LineExtra
	UnitBasePrice   money.Money
	UnitExtrasTotal money.Money
	LineTotal       money.Money
}

type Order struct {
	ID          uuid.UUID
	Customer    Customer
	Status      OrderStatus
	Subtotal    money.Money
	ExtrasTotal money.Money
	GrandTotal  money.Money
	Lines       []Line
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LineInput is an unpriced line as submitted. Extras maps extra id to the
// count per pizza.
type LineInput struct {
	PizzaID  string
	Quantity int
	Extras   map[string]int
}

// Quote is a fully priced set of lines that has not been stored.
type Quote struct {
	Subtotal    money.Money
	ExtrasTotal money.Money
	GrandTotal  money.Money
	Lines       []Line
}

type HistoryQuery struct {
	UniqueIdentifier string
	Search           string
	Limit            int
	Offset           int
}

type HistoryPage struct {
	Orders []Order
	Total  int
}

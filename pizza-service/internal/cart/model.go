package cart

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

var ErrNoIdentity = errors.New("either cart email or cart token must be provided")

// Identity names a cart. Email takes precedence over Token.
type Identity struct {
	Email string
	Token uuid.UUID
}

func (id Identity) IsZero() bool {
	return id.Email == "" && id.Token == uuid.Nil
}

type Cart struct {
	ID        uuid.UUID
	Email     string
	Token     uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is one stored pizza. ExtraIDs repeats an extra id once per unit.
type Item struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	PizzaID   uuid.UUID
	Quantity  int
	ExtraIDs  []uuid.UUID
	CreatedAt time.Time
}

type ItemInput struct {
	PizzaID  string
	Quantity int
	Extras   []string
}

type PricedItem struct {
	Item
	UnitPrice  money.Money
	TotalPrice money.Money
}

// View is a cart with its items priced against the current catalog.
type View struct {
	Cart       Cart
	Items      []PricedItem
	Subtotal   money.Money
	GrandTotal money.Money
}

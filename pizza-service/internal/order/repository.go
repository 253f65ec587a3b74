package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

type Repository interface {
	// CreateOrder upserts the customer by unique identifier and stores the
	// order with its lines in one transaction. Generated ids and timestamps
	// are written back into o.
	CreateOrder(ctx context.Context, o *Order) (uuid.UUID, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, q HistoryQuery) (HistoryPage, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus OrderStatus) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateOrder(ctx context.Context, o *Order) (orderID uuid.UUID, err error) {
	if o.ID == uuid.Nil {
		if o.ID, err = uuid.NewV4(); err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			log.Warn().Err(err).Stringer("order_id", o.ID).Msg("Transaction for CreateOrder failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			orderID = uuid.Nil
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO customers (unique_identifier, fullname, full_address)
		VALUES ($1, $2, $3)
		ON CONFLICT (unique_identifier) DO UPDATE
		SET fullname = EXCLUDED.fullname, full_address = EXCLUDED.full_address, updated_at = now()
		RETURNING id
	`, o.Customer.UniqueIdentifier, o.Customer.Fullname, o.Customer.FullAddress).Scan(&o.Customer.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to upsert customer: %w", err)
	}

	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, status, subtotal, extras_total, grand_total, delivery_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.ID, o.Customer.ID, string(o.Status),
		o.Subtotal.String(), o.ExtrasTotal.String(), o.GrandTotal.String(),
		o.Customer.FullAddress, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for i := range o.Lines {
		line := &o.Lines[i]
		if line.ID, err = uuid.NewV4(); err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		line.OrderID = o.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, position, pizza_id, pizza_name, quantity, unit_base_price, unit_extras_total, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, line.ID, o.ID, i, line.PizzaID, line.PizzaName, line.Quantity,
			line.UnitBasePrice.String(), line.UnitExtrasTotal.String(), line.LineTotal.String())
		if err != nil {
			return uuid.Nil, mapWriteError(fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err), catalog.ErrPizzaNotFound)
		}

		for _, e := range line.Extras {
			_, err = tx.Exec(ctx, `
				INSERT INTO order_item_extras (order_item_id, extra_id, extra_name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5)
			`, line.ID, e.ExtraID, e.Name, e.Quantity, e.UnitPrice.String())
			if err != nil {
				return uuid.Nil, mapWriteError(fmt.Errorf("repository: failed to insert extra for order item %s: %w", line.ID, err), catalog.ErrExtraNotFound)
			}
		}
	}

	return o.ID, nil
}

// mapWriteError turns a foreign key violation into notFound so a catalog row
// removed between pricing and insert reads as a missing pizza or extra.
func mapWriteError(err error, notFound error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("%w: %s", notFound, pgErr.Detail)
	}
	return err
}

const orderColumns = `
	o.id, c.id, c.unique_identifier, c.fullname, o.delivery_address, o.status,
	o.subtotal::text, o.extras_total::text, o.grand_total::text, o.created_at, o.updated_at`

func (r *postgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	orders := []*Order{o}
	if err := r.loadLines(ctx, orders); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns one page of a customer's orders, newest first. An empty
// identifier matches nothing.
func (r *postgresRepository) ListOrders(ctx context.Context, q HistoryQuery) (HistoryPage, error) {
	page := HistoryPage{Orders: []Order{}}
	if q.UniqueIdentifier == "" {
		return page, nil
	}

	where := `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE c.unique_identifier = $1
		  AND ($2::text = '' OR o.id::text ILIKE $2 || '%' OR o.status ILIKE $2
		       OR EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.pizza_name ILIKE '%' || $2 || '%'))`
	search := escapeLike(strings.TrimSpace(q.Search))

	if err := r.db.QueryRow(ctx, `SELECT count(*) `+where, q.UniqueIdentifier, search).Scan(&page.Total); err != nil {
		return HistoryPage{}, fmt.Errorf("repository: failed to count orders for %q: %w", q.UniqueIdentifier, err)
	}
	if page.Total == 0 || q.Offset >= page.Total {
		return page, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+where+`
		ORDER BY o.created_at DESC, o.id
		LIMIT $3 OFFSET $4
	`, q.UniqueIdentifier, search, q.Limit, q.Offset)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("repository: failed to query orders for %q: %w", q.UniqueIdentifier, err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return HistoryPage{}, fmt.Errorf("repository: failed to scan order for %q: %w", q.UniqueIdentifier, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return HistoryPage{}, fmt.Errorf("repository: failed iterating orders for %q: %w", q.UniqueIdentifier, err)
	}

	if err := r.loadLines(ctx, orders); err != nil {
		return HistoryPage{}, err
	}

	page.Orders = make([]Order, 0, len(orders))
	for _, o := range orders {
		page.Orders = append(page.Orders, *o)
	}
	return page, nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus OrderStatus) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, string(newStatus), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// loadLines fills Lines for every order with two queries, one for items and
// one for their extras.
func (r *postgresRepository) loadLines(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Order, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		o.Lines = make([]Line, 0)
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, pizza_id, pizza_name, quantity,
		       unit_base_price::text, unit_extras_total::text, line_total::text
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	type lineRef struct {
		order *Order
		index int
	}
	lines := make(map[uuid.UUID]lineRef)
	var lineIDs []uuid.UUID

	for rows.Next() {
		var (
			l                 Line
			base, extras, tot string
		)
		if err := rows.Scan(&l.ID, &l.OrderID, &l.PizzaID, &l.PizzaName, &l.Quantity, &base, &extras, &tot); err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		if err := parseAmounts(amount{base, &l.UnitBasePrice}, amount{extras, &l.UnitExtrasTotal}, amount{tot, &l.LineTotal}); err != nil {
			return fmt.Errorf("repository: order item %s: %w", l.ID, err)
		}
		l.Extras = make([]LineExtra, 0)

		o := byID[l.OrderID]
		o.Lines = append(o.Lines, l)
		lines[l.ID] = lineRef{order: o, index: len(o.Lines) - 1}
		lineIDs = append(lineIDs, l.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: failed iterating order items: %w", err)
	}
	if len(lineIDs) == 0 {
		return nil
	}

	extraRows, err := r.db.Query(ctx, `
		SELECT order_item_id, extra_id, extra_name, quantity, unit_price::text
		FROM order_item_extras
		WHERE order_item_id = ANY($1)
		ORDER BY order_item_id, extra_id
	`, lineIDs)
	if err != nil {
		return fmt.Errorf("repository: failed to query order item extras: %w", err)
	}
	defer extraRows.Close()

	for extraRows.Next() {
		var (
			itemID uuid.UUID
			e      LineExtra
			price  string
		)
		if err := extraRows.Scan(&itemID, &e.ExtraID, &e.Name, &e.Quantity, &price); err != nil {
			return fmt.Errorf("repository: failed to scan order item extra: %w", err)
		}
		if e.UnitPrice, err = money.Parse(price); err != nil {
			return fmt.Errorf("repository: order item %s extra %s: %w", itemID, e.ExtraID, err)
		}

		ref := lines[itemID]
		ref.order.Lines[ref.index].Extras = append(ref.order.Lines[ref.index].Extras, e)
	}
	if err := extraRows.Err(); err != nil {
		return fmt.Errorf("repository: failed iterating order item extras: %w", err)
	}

	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                        Order
		subtotal, extras, grand string
	)
	err := row.Scan(
		&o.ID,
		&o.Customer.ID,
		&o.Customer.UniqueIdentifier,
		&o.Customer.Fullname,
		&o.Customer.FullAddress,
		&o.Status,
		&subtotal,
		&extras,
		&grand,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := parseAmounts(amount{subtotal, &o.Subtotal}, amount{extras, &o.ExtrasTotal}, amount{grand, &o.GrandTotal}); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	return &o, nil
}

// amount pairs a NUMERIC column read as text with its destination.
type amount struct {
	raw string
	dst *money.Money
}

func parseAmounts(amounts ...amount) error {
	for _, a := range amounts {
		v, err := money.Parse(a.raw)
		if err != nil {
			return err
		}
		*a.dst = v
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

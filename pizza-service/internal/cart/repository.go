package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
)

type Repository interface {
	// FindOrCreate returns the cart for id, creating it on first use.
	FindOrCreate(ctx context.Context, id Identity) (*Cart, error)
	AddItem(ctx context.Context, item *Item) error
	Items(ctx context.Context, cartID uuid.UUID) ([]Item, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const cartReturning = `RETURNING id, email, token, created_at, updated_at`

func (r *postgresRepository) FindOrCreate(ctx context.Context, id Identity) (*Cart, error) {
	var row pgx.Row
	switch {
	case id.Email != "":
		row = r.db.QueryRow(ctx, `
			INSERT INTO carts (email) VALUES ($1)
			ON CONFLICT (email) DO UPDATE SET updated_at = now()
		`+cartReturning, id.Email)
	case id.Token != uuid.Nil:
		row = r.db.QueryRow(ctx, `
			INSERT INTO carts (token) VALUES ($1)
			ON CONFLICT (token) DO UPDATE SET updated_at = now()
		`+cartReturning, id.Token)
	default:
		return nil, ErrNoIdentity
	}

	var (
		c     Cart
		email *string
		token uuid.NullUUID
	)
	if err := row.Scan(&c.ID, &email, &token, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("repository: failed to find or create cart: %w", err)
	}
	if email != nil {
		c.Email = *email
	}
	if token.Valid {
		c.Token = token.UUID
	}
	return &c, nil
}

func (r *postgresRepository) AddItem(ctx context.Context, item *Item) (err error) {
	if item.ID == uuid.Nil {
		if item.ID, err = uuid.NewV4(); err != nil {
			return fmt.Errorf("repository: failed to generate cart item ID: %w", err)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("cart_id", item.CartID).Msg("Failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	extraIDs := make([]string, 0, len(item.ExtraIDs))
	for _, id := range item.ExtraIDs {
		extraIDs = append(extraIDs, id.String())
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO cart_items (id, cart_id, pizza_id, quantity, extra_ids)
		VALUES ($1, $2, $3, $4, $5::text[]::uuid[])
		RETURNING created_at
	`, item.ID, item.CartID, item.PizzaID, item.Quantity, extraIDs).Scan(&item.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation && pgErr.ConstraintName == "cart_items_pizza_id_fkey" {
			return fmt.Errorf("%w: %s", catalog.ErrPizzaNotFound, item.PizzaID)
		}
		return fmt.Errorf("repository: failed to insert cart item for cart %s: %w", item.CartID, err)
	}

	if _, err = tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, item.CartID); err != nil {
		return fmt.Errorf("repository: failed to touch cart %s: %w", item.CartID, err)
	}
	return nil
}

func (r *postgresRepository) Items(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, cart_id, pizza_id, quantity, extra_ids::text[], created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at, id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for %s: %w", cartID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var (
			it  Item
			raw []string
		)
		if err := rows.Scan(&it.ID, &it.CartID, &it.PizzaID, &it.Quantity, &raw, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item: %w", err)
		}
		it.ExtraIDs = make([]uuid.UUID, 0, len(raw))
		for _, s := range raw {
			id, err := uuid.FromString(s)
			if err != nil {
				return nil, fmt.Errorf("repository: cart item %s: %w", it.ID, err)
			}
			it.ExtraIDs = append(it.ExtraIDs, id)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart items: %w", err)
	}
	return items, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

type Repository interface {
	ListPizzas(ctx context.Context, limit, offset int) (PizzaPage, error)
	GetPizza(ctx context.Context, id uuid.UUID) (*Pizza, error)
	ListExtras(ctx context.Context) ([]Extra, error)
	// PizzasByIDs and ExtrasByIDs return only active rows; missing ids are simply absent.
	PizzasByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Pizza, error)
	ExtrasByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Extra, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const pizzaColumns = `id, name, base_price::text, ingredients, image_url, is_active`

func (r *postgresRepository) ListPizzas(ctx context.Context, limit, offset int) (PizzaPage, error) {
	var page PizzaPage
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM pizzas WHERE is_active`).Scan(&page.Total); err != nil {
		return PizzaPage{}, fmt.Errorf("repository: failed to count pizzas: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+pizzaColumns+`
		FROM pizzas
		WHERE is_active
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return PizzaPage{}, fmt.Errorf("repository: failed to query pizzas: %w", err)
	}
	defer rows.Close()

	page.Pizzas = make([]Pizza, 0, limit)
	for rows.Next() {
		p, err := scanPizza(rows)
		if err != nil {
			return PizzaPage{}, err
		}
		page.Pizzas = append(page.Pizzas, p)
	}
	if err := rows.Err(); err != nil {
		return PizzaPage{}, fmt.Errorf("repository: failed iterating pizzas: %w", err)
	}

	return page, nil
}

func (r *postgresRepository) GetPizza(ctx context.Context, id uuid.UUID) (*Pizza, error) {
	row := r.db.QueryRow(ctx, `SELECT `+pizzaColumns+` FROM pizzas WHERE id = $1 AND is_active`, id)

	p, err := scanPizza(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPizzaNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) ListExtras(ctx context.Context) ([]Extra, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, price::text, is_active
		FROM extras
		WHERE is_active
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query extras: %w", err)
	}
	defer rows.Close()

	extras := make([]Extra, 0)
	for rows.Next() {
		e, err := scanExtra(rows)
		if err != nil {
			return nil, err
		}
		extras = append(extras, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating extras: %w", err)
	}

	return extras, nil
}

func (r *postgresRepository) PizzasByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Pizza, error) {
	rows, err := r.db.Query(ctx, `SELECT `+pizzaColumns+` FROM pizzas WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query pizzas by ids: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]Pizza, len(ids))
	for rows.Next() {
		p, err := scanPizza(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating pizzas by ids: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) ExtrasByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Extra, error) {
	out := make(map[uuid.UUID]Extra, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, name, price::text, is_active FROM extras WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query extras by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanExtra(rows)
		if err != nil {
			return nil, err
		}
		out[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating extras by ids: %w", err)
	}
	return out, nil
}

func scanPizza(row pgx.Row) (Pizza, error) {
	var (
		p     Pizza
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Ingredients, &p.ImageURL, &p.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pizza{}, err
		}
		return Pizza{}, fmt.Errorf("repository: failed to scan pizza: %w", err)
	}

	var err error
	if p.BasePrice, err = money.Parse(price); err != nil {
		return Pizza{}, fmt.Errorf("repository: pizza %s: %w", p.ID, err)
	}
	if p.Ingredients == nil {
		p.Ingredients = []string{}
	}
	return p, nil
}

func scanExtra(row pgx.Row) (Extra, error) {
	var (
		e     Extra
		price string
	)
	if err := row.Scan(&e.ID, &e.Name, &price, &e.IsActive); err != nil {
		return Extra{}, fmt.Errorf("repository: failed to scan extra: %w", err)
	}

	var err error
	if e.Price, err = money.Parse(price); err != nil {
		return Extra{}, fmt.Errorf("repository: extra %s: %w", e.ID, err)
	}
	return e, nil
}

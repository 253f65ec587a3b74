// Package seed loads the starter menu into an empty database.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/vasiliy-maslov/pizzeria/pkg/money"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

type PizzaFixture struct {
	Name        string   `yaml:"name"`
	Price       string   `yaml:"price"`
	Image       string   `yaml:"img"`
	Ingredients []string `yaml:"ingredients"`
}

type ExtraFixture struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

type Fixtures struct {
	Pizzas []PizzaFixture `yaml:"pizzas"`
	Extras []ExtraFixture `yaml:"extras"`
}

// Result counts the rows actually inserted by Run.
type Result struct {
	Pizzas int
	Extras int
}

// Default returns the fixtures bundled with the binary.
func Default() (Fixtures, error) {
	return Parse(defaultFixtures)
}

// Parse decodes a fixtures document and checks every entry is usable.
func Parse(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("seed: failed to decode fixtures: %w", err)
	}
	for i, p := range f.Pizzas {
		if p.Name == "" {
			return Fixtures{}, fmt.Errorf("seed: pizza #%d has no name", i)
		}
		if err := checkPrice(p.Price); err != nil {
			return Fixtures{}, fmt.Errorf("seed: pizza %q: %w", p.Name, err)
		}
	}
	for i, e := range f.Extras {
		if e.Name == "" {
			return Fixtures{}, fmt.Errorf("seed: extra #%d has no name", i)
		}
		if err := checkPrice(e.Price); err != nil {
			return Fixtures{}, fmt.Errorf("seed: extra %q: %w", e.Name, err)
		}
	}
	return f, nil
}

func checkPrice(raw string) error {
	m, err := money.Parse(raw)
	if err != nil {
		return err
	}
	if m.IsNegative() {
		return fmt.Errorf("negative price %s", raw)
	}
	return nil
}

// Connect opens a lib/pq backed connection.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("seed: failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate brings the schema up to date over an existing connection.
func Migrate(db *sqlx.DB, migrationsPath, dbName string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("seed: failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, dbName, driver)
	if err != nil {
		return fmt.Errorf("seed: failed to initialize migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("seed: failed to apply migrations: %w", err)
	}
	log.Info().Msg("New migrations applied successfully")
	return nil
}

// Run inserts every fixture whose name is not taken yet. Existing rows are
// left untouched, so running it twice is harmless.
func Run(ctx context.Context, db *sqlx.DB, f Fixtures) (res Result, err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("seed: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("seed: failed to rollback transaction")
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("seed: failed to commit transaction: %w", err)
		}
	}()

	const insertPizza = `
		INSERT INTO pizzas (name, base_price, ingredients, image_url)
		VALUES ($1, $2::numeric, $3, NULLIF($4, ''))
		ON CONFLICT (name) DO NOTHING`
	for _, p := range f.Pizzas {
		r, err := tx.ExecContext(ctx, insertPizza, p.Name, p.Price, pq.Array(p.Ingredients), p.Image)
		if err != nil {
			return Result{}, fmt.Errorf("seed: failed to insert pizza %q: %w", p.Name, err)
		}
		n, _ := r.RowsAffected()
		res.Pizzas += int(n)
	}

	const insertExtra = `
		INSERT INTO extras (name, price)
		VALUES ($1, $2::numeric)
		ON CONFLICT (name) DO NOTHING`
	for _, e := range f.Extras {
		r, err := tx.ExecContext(ctx, insertExtra, e.Name, e.Price)
		if err != nil {
			return Result{}, fmt.Errorf("seed: failed to insert extra %q: %w", e.Name, err)
		}
		n, _ := r.RowsAffected()
		res.Extras += int(n)
	}

	var pizzas, extras int
	if err := tx.GetContext(ctx, &pizzas, `SELECT count(*) FROM pizzas`); err != nil {
		return Result{}, fmt.Errorf("seed: failed to count pizzas: %w", err)
	}
	if err := tx.GetContext(ctx, &extras, `SELECT count(*) FROM extras`); err != nil {
		return Result{}, fmt.Errorf("seed: failed to count extras: %w", err)
	}
	log.Info().
		Int("pizzas_inserted", res.Pizzas).
		Int("extras_inserted", res.Extras).
		Int("pizzas_total", pizzas).
		Int("extras_total", extras).
		Msg("Catalog seeded")

	return res, nil
}

// CacheInvalidator drops cached catalog reads.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Refresh clears cached catalog pages when Run inserted new rows.
func Refresh(ctx context.Context, c CacheInvalidator, res Result) error {
	if c == nil || res.Pizzas+res.Extras == 0 {
		return nil
	}
	if err := c.Invalidate(ctx); err != nil {
		return fmt.Errorf("seed: failed to invalidate catalog cache: %w", err)
	}
	log.Info().Msg("Catalog cache invalidated")
	return nil
}

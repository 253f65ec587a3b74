package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/apiclient"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/checkout"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/config"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/history"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/order"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/selection"
)

type app struct {
	catalog      *catalog.Client
	submitter    *checkout.Submitter
	historyQuery *history.Query
	pageSize     int
	out          io.Writer
}

func newApp(client *apiclient.Client, cfg *config.Config, out io.Writer) *app {
	return &app{
		catalog:      catalog.NewClient(client),
		submitter:    checkout.NewSubmitter(client),
		historyQuery: history.NewQuery(client),
		pageSize:     cfg.History.PageSize,
		out:          out,
	}
}

func (a *app) menu(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("menu", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 20, "pizzas per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pizzas, err := a.catalog.ListPizzas(ctx, *page, *size)
	if err != nil {
		return err
	}
	extras, err := a.catalog.Extras(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPIZZA\tPRICE\tINGREDIENTS")
	for _, p := range pizzas.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.BasePrice, strings.Join(p.Ingredients, ", "))
	}
	fmt.Fprintf(tw, "\npage %d of %d (%s pizzas)\n\n", pizzas.Meta.Page, pizzas.Meta.Pages, humanize.Comma(int64(pizzas.Meta.Total)))
	fmt.Fprintln(tw, "ID\tEXTRA\tPRICE")
	for _, e := range extras {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Name, e.Price)
	}
	return tw.Flush()
}

// extraFlags collects repeated -extra id=qty values.
type extraFlags map[string]int

func (e extraFlags) String() string {
	parts := make([]string, 0, len(e))
	for id, q := range e {
		parts = append(parts, id+"="+strconv.Itoa(q))
	}
	return strings.Join(parts, ",")
}

func (e extraFlags) Set(v string) error {
	id, qty, found := strings.Cut(v, "=")
	if id == "" {
		return errors.New("extra id is required")
	}
	q := 1
	if found {
		n, err := strconv.Atoi(qty)
		if err != nil {
			return fmt.Errorf("invalid quantity %q", qty)
		}
		q = n
	}
	e[id] = q
	return nil
}

func (a *app) order(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	pizzaID := fs.String("pizza", "", "pizza id")
	qty := fs.Int("qty", 1, "number of pizzas")
	extras := extraFlags{}
	fs.Var(extras, "extra", "extra as id=quantity, repeatable")
	identifier := fs.String("id", "", "customer unique identifier, e.g. email")
	name := fs.String("name", "", "customer full name")
	address := fs.String("address", "", "delivery address")
	quote := fs.Bool("quote", false, "ask the server to price the order before placing it")
	counted := fs.Bool("counted", false, "also send extras as an explicit id to quantity mapping")
	if err := fs.Parse(args); err != nil {
		return err
	}

	comp, err := a.compose(ctx, *pizzaID)
	if err != nil {
		return err
	}

	sel := selection.New(comp.Pizza)
	sel.SetPizzaQuantity(*qty)
	for id, q := range extras {
		e, err := a.catalog.Extra(ctx, id)
		if err != nil {
			return err
		}
		sel.SetExtraQuantity(e, q)
	}

	fmt.Fprintf(a.out, "%s x%d\n", comp.Pizza.Name, sel.PizzaQuantity())
	for _, es := range sel.Extras() {
		fmt.Fprintf(a.out, "  + %s x%d  %s\n", es.Extra.Name, es.Quantity, es.Extra.Price.Mul(es.Quantity))
	}
	fmt.Fprintf(a.out, "unit %s  total %s\n", sel.UnitPrice(), sel.Total())

	var encOpts []order.Option
	if *counted {
		encOpts = append(encOpts, order.WithCountedExtras())
	}
	encoder := order.NewEncoder(encOpts...)
	customer := api.CustomerInfo{UniqueIdentifier: *identifier, Fullname: *name, FullAddress: *address}

	if *quote {
		req, err := encoder.Encode(sel, customer)
		if err != nil {
			return err
		}
		q, err := a.submitter.Quote(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "server quote: subtotal %s  extras %s  grand total %s\n", q.Subtotal, q.ExtrasTotal, q.GrandTotal)
	}

	session := checkout.NewSession(encoder, a.submitter)
	if err := session.Begin(sel); err != nil {
		return err
	}

	placed, err := session.Submit(ctx, customer)
	if err != nil {
		var verr *order.ValidationError
		if errors.As(err, &verr) {
			// nothing was sent; the session is still collecting details
			_ = session.Cancel()
			return err
		}
		var rejected *checkout.OrderRejectedError
		if errors.As(err, &rejected) {
			fmt.Fprintf(a.out, "order rejected: %s\n", rejected.Message)
		}
		_ = session.Acknowledge()
		return err
	}

	fmt.Fprintf(a.out, "order %s %s, grand total %s\n", placed.ID, placed.Status, placed.GrandTotal)
	return session.Acknowledge()
}

// compose loads the pizza and extras, refreshing the catalog once when the
// pizza id turns out to be stale.
func (a *app) compose(ctx context.Context, pizzaID string) (catalog.Composition, error) {
	if pizzaID == "" {
		return catalog.Composition{}, errors.New("-pizza is required")
	}

	comp, err := a.catalog.Compose(ctx, pizzaID)
	if catalog.IsNotFound(err) {
		log.Info().Str("pizza_id", pizzaID).Msg("Pizza not in catalog, refreshing")
		a.catalog.Invalidate()
		comp, err = a.catalog.Compose(ctx, pizzaID)
	}
	return comp, err
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	identifier := fs.String("id", "", "customer unique identifier")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", a.pageSize, "orders per page")
	search := fs.String("search", "", "search text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := a.catalog.Snapshot(ctx)
	if err != nil {
		return err
	}

	browser := history.NewBrowser(a.historyQuery)
	res, _ := browser.Load(ctx, history.Key{Identifier: *identifier, Page: *page, PageSize: *size, Search: *search})
	if res.Err != nil {
		return res.Err
	}

	views := history.BuildViews(res.Page.Items, snap)
	if len(views) == 0 {
		fmt.Fprintln(a.out, "no orders found")
	}
	for _, v := range views {
		fmt.Fprintf(a.out, "%s  %s  %s  %s\n", v.Order.ID, v.Order.Status, v.Order.GrandTotal, humanize.Time(v.Order.CreatedAt))
		for _, l := range v.Lines {
			fmt.Fprintf(a.out, "    %s x%d  %s\n", l.PizzaName, l.Quantity, l.LineTotal)
			for _, e := range l.Extras {
				fmt.Fprintf(a.out, "      + %s x%d\n", e.Name, e.Quantity)
			}
		}
	}

	items := history.Window(res.Page.Meta.Page, res.Page.Meta.Pages)
	labels := make([]string, 0, len(items))
	for _, it := range items {
		if it.Current {
			labels = append(labels, "["+it.String()+"]")
			continue
		}
		labels = append(labels, it.String())
	}
	fmt.Fprintf(a.out, "\n%s  (%d orders)\n", strings.Join(labels, " "), res.Page.Meta.Total)
	return nil
}

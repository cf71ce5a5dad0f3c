package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/dispatcher"
	"github.com/fjod/go_cart/storefront/internal/logger"
)

type options struct {
	apiURL   string
	token    string
	logLevel string
	timeout  time.Duration
}

// app is one logged-in storefront session.
type app struct {
	session *auth.Session
	store   *cartstore.Store
	cart    *dispatcher.Dispatcher
}

func newApp(opts *options) (*app, error) {
	if opts.token == "" {
		return nil, errors.New("no token: set CART_API_TOKEN or pass --token")
	}
	log := logger.New(logger.Options{
		Service: "storefront",
		Env:     getEnv("APP_ENV", "development"),
		Level:   opts.logLevel,
		Output:  os.Stderr,
	})

	session := auth.NewSession()
	api, err := client.New(client.Config{BaseURL: opts.apiURL, Timeout: opts.timeout}, session, log)
	if err != nil {
		return nil, err
	}
	store := cartstore.New(api, session, log)
	session.Login(opts.token)

	return &app{
		session: session,
		store:   store,
		cart:    dispatcher.New(api, store, session, log),
	}, nil
}

// load fetches the server cart into the store.
func (a *app) load(ctx context.Context) error {
	if err := a.store.Refresh(ctx); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	return nil
}

// run loads the cart, applies op and prints the result.
func (a *app) run(ctx context.Context, w io.Writer, op func(context.Context) dispatcher.Result) error {
	if err := a.load(ctx); err != nil {
		return err
	}
	if res := op(ctx); !res.Success {
		return errors.New(res.Error)
	}
	printState(w, a.store.Snapshot())
	return nil
}

func printState(w io.Writer, st cartstore.State) {
	if len(st.Items) == 0 {
		fmt.Fprintln(w, "Cart is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range st.Items {
		name, price := "(unavailable)", 0.0
		if item.Product != nil {
			name, price = item.Product.Name, item.Product.Price
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%.2f\t%.2f\n",
			item.ID, item.ProductID, name, item.Quantity, price, price*float64(item.Quantity))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d item(s), total %.2f\n", st.Count(), st.Total())
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/dispatcher"
	"github.com/spf13/cobra"
)

func showCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), a.store.Snapshot())
			return nil
		},
	}
}

func addCmd(opts *options) *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Long: `Add a product to the cart.

Adding a product that is already in the cart increases its quantity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID("product id", args[0])
			if err != nil {
				return err
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context) dispatcher.Result {
				return a.cart.AddItem(ctx, productID, quantity)
			})
		},
	}

	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Number of units to add")

	return cmd
}

func setCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <item-id> <quantity>",
		Short: "Set the quantity of a cart line",
		Long: `Set the quantity of a cart line.

Quantities below one are ignored; use "remove" to delete a line.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context) dispatcher.Result {
				return a.cart.SetQuantity(ctx, itemID, quantity)
			})
		},
	}
}

func removeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context) dispatcher.Result {
				return a.cart.RemoveItem(ctx, itemID)
			})
		},
	}
}

func clearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cmd.OutOrStdout(), a.cart.Clear)
		},
	}
}

func watchCmd(opts *options) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the cart every time it changes",
		Long: `Follow the cart until interrupted.

The cart is reloaded every interval and printed whenever a load
completes. Press Ctrl+C to stop; the session is logged out and the
local cart emptied on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("interval must be positive")
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			unsubscribe := a.store.Subscribe(func(st cartstore.State) {
				if st.Loading {
					return
				}
				fmt.Fprintf(out, "--- %s\n", time.Now().Format(time.TimeOnly))
				printState(out, st)
			})
			defer unsubscribe()

			unbind := a.store.Bind(a.session)
			defer unbind()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					unsubscribe()
					a.session.Logout()
					return nil
				case <-ticker.C:
					if err := a.store.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, cartstore.ErrStaleResult) {
						fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %s\n", err)
					}
				}
			}
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 5*time.Second, "How often to reload the cart")

	return cmd
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

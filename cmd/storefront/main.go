package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Shop against the cart API from the terminal",
		Long: `Storefront is a command line client for the cart API.

Every command logs in with the configured token, loads the
authoritative cart, applies the requested change and prints
the cart the server reports afterwards.

Examples:
  storefront show
  storefront add 42 --quantity 2
  storefront set 7 3
  storefront remove 7
  storefront clear
  storefront watch --interval 5s`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", getEnv("CART_API_URL", "http://localhost:8080"), "Cart API base URL")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", getEnv("CART_API_TOKEN", ""), "Bearer token for the cart API")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", getEnv("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (default 10s)")

	rootCmd.AddCommand(
		showCmd(&opts),
		addCmd(&opts),
		setCmd(&opts),
		removeCmd(&opts),
		clearCmd(&opts),
		watchCmd(&opts),
	)

	return rootCmd
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

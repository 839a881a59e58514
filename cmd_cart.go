package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storefront-cart/service"
)

var session string

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect or change a stored cart",
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the cart with subtotals",
	Args:  cobra.NoArgs,
	RunE: withCart(func(cmd *cobra.Command, cs *service.CartStore, _ []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cs.Summary())
	}),
}

var cartAddCmd = &cobra.Command{
	Use:   "add PRODUCT_ID",
	Short: "Add one unit of a product",
	Args:  cobra.ExactArgs(1),
	RunE: withCart(func(cmd *cobra.Command, cs *service.CartStore, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return cs.AddProduct(cmd.Context(), id)
	}),
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove PRODUCT_ID",
	Short: "Remove a product",
	Args:  cobra.ExactArgs(1),
	RunE: withCart(func(cmd *cobra.Command, cs *service.CartStore, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return cs.RemoveProduct(cmd.Context(), id)
	}),
}

var cartSetCmd = &cobra.Command{
	Use:   "set PRODUCT_ID AMOUNT",
	Short: "Set the amount of a product already in the cart",
	Args:  cobra.ExactArgs(2),
	RunE: withCart(func(cmd *cobra.Command, cs *service.CartStore, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		amount, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		return cs.UpdateProductAmount(cmd.Context(), id, amount)
	}),
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: withCart(func(cmd *cobra.Command, cs *service.CartStore, _ []string) error {
		return cs.Clear(cmd.Context())
	}),
}

func init() {
	cartCmd.PersistentFlags().StringVarP(&session, "session", "s", "", "session id (empty for the single shared cart)")
	cartCmd.AddCommand(cartListCmd, cartAddCmd, cartRemoveCmd, cartSetCmd, cartClearCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}

// withCart opens the configured store and catalog, loads the cart for
// --session and runs fn against it. Failed operations print the shopper
// message on stderr.
func withCart(fn func(cmd *cobra.Command, cs *service.CartStore, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.store.Close()

		cs, err := service.NewCartStore(ctx, d.store, d.catalog,
			service.WithKey(service.Key(cfg.Storage.Namespace, session)),
			service.WithLogger(log),
			service.WithNotifier(service.NotifierFunc(func(_ context.Context, n service.Notification) {
				fmt.Fprintln(cmd.ErrOrStderr(), n.Message)
			})),
		)
		if err != nil {
			return err
		}
		return fn(cmd, cs, args)
	}
}

package main

// GET    /cart                 - Cart snapshot with subtotals and total
// POST   /cart/products/{id}   - Add one unit of a product
// PUT    /cart/products/{id}   - Set the amount of a product ({"amount": N})
// DELETE /cart/products/{id}   - Remove a product
// DELETE /cart                 - Empty the cart
// GET    /healthz, /metrics

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"storefront-cart/config"
	"storefront-cart/logging"
)

var (
	configPath string
	cfg        *config.Config
	log        *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "cartd",
	Short:         "Storefront shopping cart service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CART_CONFIG"), "path to YAML config (env CART_CONFIG)")
	rootCmd.AddCommand(serveCmd, cartCmd, fixtureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("cartd failed")
		os.Exit(1)
	}
}

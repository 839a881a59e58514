package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"storefront-cart/catalog"
)

var (
	fixturePath string
	fixtureAddr string
)

var fixtureCmd = &cobra.Command{
	Use:   "catalog-fixture",
	Short: "Serve stock and products from a db.json file for local development",
	Args:  cobra.NoArgs,
	RunE:  runFixture,
}

func init() {
	fixtureCmd.Flags().StringVar(&fixturePath, "data", "db.json", "fixture file with stock and products")
	fixtureCmd.Flags().StringVar(&fixtureAddr, "addr", ":3333", "listen address")
}

func runFixture(cmd *cobra.Command, args []string) error {
	f, err := os.Open(fixturePath)
	if err != nil {
		return errors.Wrap(err, "open fixture")
	}
	fx, err := catalog.LoadFixture(f)
	f.Close()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: fixtureAddr, Handler: fx.Handler(), ReadTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"addr":     fixtureAddr,
		"products": len(fx.Products),
	}).Info("catalog fixture running")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Command storefront drives the coffee storefront client state from a
// terminal: cart, wishlist, compare list, catalog filters and live badge counts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/coffee-storefront/internal/app"
	"github.com/example/coffee-storefront/internal/config"
	"github.com/example/coffee-storefront/internal/logging"
)

// cli holds what every subcommand shares.
type cli struct {
	out io.Writer

	configPath string
	apiURL     string
	driver     string
	verbose    bool

	// set by open
	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(&cli{out: os.Stdout})
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Coffee storefront client",
		SilenceUsage:  true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	root.SetOut(c.out)

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (or set "+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&c.apiURL, "api", "", "API base URL")
	root.PersistentFlags().StringVar(&c.driver, "storage", "", "storage driver: memory, file or postgres")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newCartCmd(c),
		newListCmd(c, "wishlist"),
		newListCmd(c, "compare"),
		newShopCmd(c),
		newCurrencyCmd(c),
		newWatchCmd(c),
		newServeMockCmd(c),
	)
	return root
}

// loadConfig reads config and flag overrides, and builds the logger.
func (c *cli) loadConfig() error {
	if c.cfg != nil {
		return nil
	}
	if c.configPath != "" {
		os.Setenv(config.EnvConfigFile, c.configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
	}
	if c.driver != "" {
		cfg.Storage.Driver = c.driver
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	c.cfg, c.logger = cfg, logger
	return nil
}

// open wires the app. Commands that touch client state call it first.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	if err := c.loadConfig(); err != nil {
		return nil, err
	}
	a, err := app.Open(ctx, c.cfg, c.out, c.logger)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() error {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

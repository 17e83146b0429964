package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/coffee-storefront/internal/api/apitest"
)

func newServeMockCmd(c *cli) *cobra.Command {
	var (
		addr   string
		secret string
	)
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve a fake storefront API with a demo catalog",
		Long: fmt.Sprintf(`Serve an in-memory storefront API for demos and manual testing.
It is seeded with a few coffees and a demo account (%s / %s).`,
			apitest.DemoEmail, apitest.DemoPassword),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			if len(secret) < 32 {
				return errors.New("secret must be at least 32 characters long")
			}

			backend := apitest.NewBackend(secret)
			if err := apitest.Seed(backend); err != nil {
				return fmt.Errorf("failed to seed backend: %w", err)
			}
			return serve(cmd.Context(), c, addr, backend.Router())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&secret, "secret", "storefront-mock-secret-change-me-please", "token signing secret")
	return cmd
}

// serve runs handler on addr until ctx ends.
func serve(ctx context.Context, c *cli, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	c.logger.Info("mock API listening", zap.String("addr", ln.Addr().String()))
	fmt.Fprintf(c.out, "Mock API on http://%s (demo account %s)\n", ln.Addr(), apitest.DemoEmail)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

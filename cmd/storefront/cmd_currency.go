package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/coffee-storefront/internal/pricing"
)

func newCurrencyCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currency",
		Short: "Choose the display currency",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rates",
		Short: "Fetch and show exchange rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			rates, err := a.RefreshRates(cmd.Context())
			if err != nil {
				return err
			}
			codes := make([]string, 0, len(rates))
			for code := range rates {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			selected := a.Currency.Selected()
			for _, code := range codes {
				mark := " "
				if code == selected {
					mark = "*"
				}
				fmt.Fprintf(c.out, "%s %s %g\n", mark, code, rates[code])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <code>",
		Short: "Show prices in another currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			rates, err := a.Currency.Rates()
			if err != nil {
				return err
			}
			if len(rates) == 0 && !strings.EqualFold(args[0], pricing.BaseCurrency) {
				if _, err := a.RefreshRates(cmd.Context()); err != nil {
					return err
				}
			}
			if err := a.Currency.Select(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Prices are shown in %s\n", a.Currency.Selected())
			return nil
		},
	})
	return cmd
}

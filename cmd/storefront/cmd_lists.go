package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/coffee-storefront/internal/app"
	"github.com/example/coffee-storefront/internal/domain/membership"
	"github.com/example/coffee-storefront/internal/pricing"
	"github.com/example/coffee-storefront/internal/shop"
)

// newListCmd builds the wishlist and compare commands, which differ only in
// the list they act on.
func newListCmd(c *cli, name string) *cobra.Command {
	service := func(a *app.App) *membership.Service {
		if name == "compare" {
			return a.Compare
		}
		return a.Wishlist
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Show and change the %s", name),
	}
	if name == "compare" {
		cmd.Long = fmt.Sprintf("Show and change the compare list. It holds at most %d products.", membership.CompareLimit)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <product-id>",
		Short: "Add the product, or remove it when already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := shop.NewAPICatalog(a.Client).Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = service(a).Toggle(cmd.Context(), p)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := service(a).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(c.out, "Your %s is empty\n", service(a).Kind().Name)
				return nil
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPRODUCT\tPRICE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Name, a.Currency.Format(e.UnitPrice(pricing.Regular)))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every product",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return service(a).Clear(cmd.Context())
		},
	})
	return cmd
}

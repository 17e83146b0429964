package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/coffee-storefront/internal/app"
	"github.com/example/coffee-storefront/internal/domain/cart"
	"github.com/example/coffee-storefront/internal/pricing"
	"github.com/example/coffee-storefront/internal/shop"
)

func newCartCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
		Long: `Show and change the cart. Guests keep the cart in local storage;
signed-in users use the server cart.

Lines are addressed by key: "productId|option" for guests, the server
line id when signed in. "cart list" prints the keys.`,
	}
	cmd.AddCommand(
		newCartListCmd(c),
		newCartAddCmd(c),
		newCartUpdateCmd(c),
		newCartRemoveCmd(c),
		newCartClearCmd(c),
		newCartMergeCmd(c),
	)
	return cmd
}

func newCartListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cart lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return printCart(c, a, cmd)
		},
	}
}

func printCart(c *cli, a *app.App, cmd *cobra.Command) error {
	lines, err := a.Cart.Lines(cmd.Context())
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Fprintln(c.out, "Your cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tPRODUCT\tOPTION\tQTY\tUNIT\tTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			l.Key(), l.Name, l.PriceOption.OrDefault(), l.Quantity,
			a.Currency.Format(l.UnitPrice()), a.Currency.Format(l.Total()))
	}
	sum := cart.Summarize(lines)
	fmt.Fprintf(tw, "\t\t\t%d\t\t%s\n", sum.Items, a.Currency.Format(sum.Subtotal))
	return tw.Flush()
}

func newCartAddCmd(c *cli) *cobra.Command {
	var (
		qty    int
		option string
	)
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := pricing.ParseOption(option)
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := shop.NewAPICatalog(a.Client).Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.Cart.AddItem(cmd.Context(), p, cart.WithQuantity(qty), cart.WithPriceOption(opt))
		},
	}
	cmd.Flags().IntVarP(&qty, "qty", "n", 1, "quantity")
	cmd.Flags().StringVar(&option, "option", string(pricing.Regular), "price option: regular, 3weeks or 5weeks")
	return cmd
}

func newCartUpdateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "update <key> <quantity>",
		Short: "Set a line's quantity; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.Cart.UpdateQuantity(cmd.Context(), args[0], qty)
		},
	}
}

func newCartRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.Cart.RemoveItem(cmd.Context(), args[0])
		},
	}
}

func newCartClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every line",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.Cart.Clear(cmd.Context())
		},
	}
}

func newCartMergeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Move the guest cart into the account cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			_, err = a.Cart.MergeGuestCart(cmd.Context())
			return err
		},
	}
}

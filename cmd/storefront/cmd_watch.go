package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/coffee-storefront/internal/counts"
)

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print badge counts whenever they change",
		Long: `Print cart, wishlist and compare counts and keep them live until
interrupted. Changes made by other storefront processes sharing the file
storage are picked up, and with KAFKA_BROKERS set, changes from other
devices too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.Watch(cmd.Context(), func(n counts.Counts) {
				fmt.Fprintf(c.out, "cart %d  wishlist %d  compare %d\n", n.Cart, n.Wishlist, n.Compare)
			})
		},
	}
}

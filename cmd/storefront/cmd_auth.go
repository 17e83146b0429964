package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the access token",
		Long: `Sign in with email and password. The guest cart is kept as is;
run "storefront cart merge" to move it into the account cart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("STOREFRONT_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			user, err := a.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Logged in as %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or set STOREFRONT_PASSWORD)")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if !a.Session.IsLoggedIn() {
				fmt.Fprintln(c.out, "guest")
				return nil
			}
			user, err := a.Client.Profile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s (%s)\n", user.Email, user.Role)
			return nil
		},
	}
}

package api

import (
	"context"
	"strings"
)

// User is the profile returned by the auth endpoints.
type User struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// LoginResult carries the issued access token.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.Do(ctx, Call{
		Op: OpLogin,
		Body: map[string]string{
			"email":    strings.TrimSpace(email),
			"password": password,
		},
	}, &out)
	return out, err
}

// Profile returns the authenticated user.
func (c *Client) Profile(ctx context.Context) (User, error) {
	var out User
	err := c.Do(ctx, Call{Op: OpProfile}, &out)
	return out, err
}

// ExchangeRates returns currency rates relative to the catalog currency.
func (c *Client) ExchangeRates(ctx context.Context) (map[string]float64, error) {
	var out map[string]float64
	err := c.Do(ctx, Call{Op: OpCurrencyRates}, &out)
	return out, err
}

package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coffee-storefront/internal/api/apitest"
	"github.com/example/coffee-storefront/internal/notify"
)

// storefront runs one CLI invocation against a shared storage directory,
// the way separate shell commands would.
type storefront struct {
	t      *testing.T
	apiURL string
}

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	backend := apitest.NewBackend("cli-test-secret-that-is-long-enough")
	require.NoError(t, apitest.Seed(backend))
	srv := apitest.Start(t, backend)

	t.Setenv("STOREFRONT_STORAGE_DIR", t.TempDir())
	t.Setenv("STOREFRONT_STORAGE", "file")
	t.Setenv("LOG_LEVEL", "error")
	return &storefront{t: t, apiURL: srv.URL}
}

func (s *storefront) run(args ...string) (string, error) {
	s.t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&cli{out: &out})
	root.SetArgs(append([]string{"--api", s.apiURL}, args...))
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *storefront) mustRun(args ...string) string {
	s.t.Helper()
	out, err := s.run(args...)
	require.NoError(s.t, err, out)
	return out
}

func TestCLI_GuestCart(t *testing.T) {
	s := newStorefront(t)

	out := s.mustRun("cart", "add", "p-colombia", "--qty", "2", "--option", "3weeks")
	assert.Contains(t, out, notify.MsgAddedToCart)

	out = s.mustRun("cart", "list")
	assert.Contains(t, out, "p-colombia|3weeks")
	assert.Contains(t, out, "Colombia Huila")
	assert.Contains(t, out, "$29.00")

	s.mustRun("cart", "update", "p-colombia|3weeks", "0")
	out = s.mustRun("cart", "list")
	assert.Contains(t, out, "Your cart is empty")
}

func TestCLI_CartRejectsBadInput(t *testing.T) {
	s := newStorefront(t)

	_, err := s.run("cart", "add", "p-colombia", "--option", "tomorrow")
	assert.Error(t, err)

	_, err = s.run("cart", "update", "p-colombia|regular", "many")
	assert.Error(t, err)

	out, err := s.run("cart", "add", "p-missing")
	assert.Error(t, err)
	assert.NotContains(t, out, notify.MsgAddedToCart)
}

func TestCLI_LoginMergeLogout(t *testing.T) {
	s := newStorefront(t)
	s.mustRun("cart", "add", "p-decaf")

	out := s.mustRun("whoami")
	assert.Contains(t, out, "guest")

	out = s.mustRun("login", "--email", apitest.DemoEmail, "--password", apitest.DemoPassword)
	assert.Contains(t, out, "Logged in as "+apitest.DemoEmail)
	out = s.mustRun("whoami")
	assert.Contains(t, out, apitest.DemoEmail+" (customer)")

	out = s.mustRun("cart", "list")
	assert.Contains(t, out, "Your cart is empty")

	out = s.mustRun("cart", "merge")
	assert.Contains(t, out, notify.CartMerged(1, 0))
	out = s.mustRun("cart", "list")
	assert.Contains(t, out, "Swiss Water Decaf")

	s.mustRun("logout")
	out = s.mustRun("whoami")
	assert.Contains(t, out, "guest")
}

func TestCLI_LoginWrongPassword(t *testing.T) {
	s := newStorefront(t)

	out, err := s.run("login", "--email", apitest.DemoEmail, "--password", "tea-lover")

	assert.Error(t, err)
	assert.Contains(t, out, "Invalid email or password")
}

func TestCLI_CompareIsCapped(t *testing.T) {
	s := newStorefront(t)
	for _, id := range []string{"p-yirgacheffe", "p-house-blend", "p-colombia", "p-decaf"} {
		s.mustRun("compare", "toggle", id)
	}

	out, err := s.run("compare", "toggle", "p-hand-grinder")
	assert.Error(t, err)
	assert.Contains(t, out, notify.MsgCompareFull)

	out = s.mustRun("compare", "list")
	assert.NotContains(t, out, "p-hand-grinder")
	assert.Contains(t, out, "p-decaf")

	s.mustRun("compare", "clear")
	out = s.mustRun("compare", "list")
	assert.Contains(t, out, "Your compare list is empty")
}

func TestCLI_WishlistToggle(t *testing.T) {
	s := newStorefront(t)

	out := s.mustRun("wishlist", "toggle", "p-house-blend")
	assert.Contains(t, out, notify.AddedTo("wishlist"))
	out = s.mustRun("wishlist", "toggle", "p-house-blend")
	assert.Contains(t, out, notify.RemovedFrom("wishlist"))
}

func TestCLI_Shop(t *testing.T) {
	s := newStorefront(t)

	out := s.mustRun("shop", "/category/coffee", "--roast", "medium")

	assert.Contains(t, out, "/category/coffee?roastLevel=medium")
	assert.Contains(t, out, "p-colombia")
	assert.Contains(t, out, "p-decaf")
	assert.NotContains(t, out, "p-hand-grinder")
	assert.NotContains(t, out, "p-yirgacheffe")
}

func TestCLI_ShopNonCoffeeHidesCoffeeFacets(t *testing.T) {
	s := newStorefront(t)

	out := s.mustRun("shop", "--type", "EQUIPMENT")

	assert.Contains(t, out, "p-hand-grinder")
	assert.Contains(t, out, "do not apply")
}

func TestCLI_ShopRejectsBadSort(t *testing.T) {
	s := newStorefront(t)

	_, err := s.run("shop", "--sort", "random")
	assert.Error(t, err)
}

func TestCLI_Currency(t *testing.T) {
	s := newStorefront(t)

	out := s.mustRun("currency", "set", "eur")
	assert.Contains(t, out, "Prices are shown in EUR")

	out = s.mustRun("currency", "rates")
	assert.Contains(t, out, "* EUR 0.92")

	_, err := s.run("currency", "set", "CHF")
	assert.Error(t, err)
}

func TestCLI_ServeMockNeedsLongSecret(t *testing.T) {
	s := newStorefront(t)

	_, err := s.run("serve-mock", "--secret", "short")
	assert.Error(t, err)
}

// Package apitest is an in-memory storefront API used by tests and by the
// storefront serve-mock command. It speaks the same envelope and endpoint
// table as the real backend.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/coffee-storefront/internal/auth"
	"github.com/example/coffee-storefront/internal/domain/product"
)

// CompareLimit mirrors the backend's compare list cap.
const CompareLimit = 4

// Request is a call the backend received.
type Request struct {
	Op     string
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
	UserID string
}

// HasBodyKey reports whether the JSON body carried key.
func (r Request) HasBodyKey(key string) bool {
	_, ok := r.Body[key]
	return ok
}

type user struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
}

// CartLine is a server-side cart line.
type CartLine struct {
	ID          string `json:"_id"`
	ProductID   string `json:"-"`
	Quantity    int    `json:"quantity"`
	PriceOption string `json:"priceOption"`
}

type failure struct {
	status  int
	message string
	times   int
}

// Backend holds the mock API state.
type Backend struct {
	mu     sync.Mutex
	issuer *auth.Issuer

	users         map[string]*user // email -> user
	products      map[string]product.Product
	productOrder  []string
	categories    []product.Category
	subCategories []product.SubCategory
	brands        []product.Brand
	rates         map[string]float64

	carts     map[string][]CartLine // userID -> lines
	wishlists map[string][]string   // userID -> product ids
	compares  map[string][]string

	requests []Request
	failures map[string]*failure
	delays   map[string]time.Duration
}

// NewBackend creates an empty backend signing tokens with secret.
func NewBackend(secret string) *Backend {
	return &Backend{
		issuer:    auth.NewIssuer(secret, time.Hour).WithBcryptCost(4),
		users:     make(map[string]*user),
		products:  make(map[string]product.Product),
		rates:     make(map[string]float64),
		carts:     make(map[string][]CartLine),
		wishlists: make(map[string][]string),
		compares:  make(map[string][]string),
		failures:  make(map[string]*failure),
		delays:    make(map[string]time.Duration),
	}
}

// Start serves b on a test server that is closed with the test.
func Start(t testing.TB, b *Backend) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Router())
	t.Cleanup(srv.Close)
	return srv
}

// AddUser registers an account and returns its id.
func (b *Backend) AddUser(email, password, role string) (string, error) {
	hash, err := b.issuer.HashPassword(password)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.users[email] = &user{ID: id, Email: email, Name: email, Role: role, PasswordHash: hash}
	return id, nil
}

// TokenFor issues an access token for userID without a login round trip.
func (b *Backend) TokenFor(userID string) (string, error) {
	token, _, err := b.issuer.GenerateAccessToken(userID, userID+"@example.com", "customer")
	return token, err
}

func (b *Backend) AddProduct(p product.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.products[p.ID]; !ok {
		b.productOrder = append(b.productOrder, p.ID)
	}
	b.products[p.ID] = p
}

func (b *Backend) AddCategory(c product.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = append(b.categories, c)
}

func (b *Backend) AddSubCategory(s product.SubCategory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subCategories = append(b.subCategories, s)
}

func (b *Backend) AddBrand(br product.Brand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.brands = append(b.brands, br)
}

func (b *Backend) SetRates(rates map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rates = rates
}

// Fail makes the next times calls of op fail with status and message.
// times <= 0 fails until ClearFailures.
func (b *Backend) Fail(op string, status int, message string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = &failure{status: status, message: message, times: times}
}

func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[string]*failure)
}

// Delay holds responses for op by d.
func (b *Backend) Delay(op string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[op] = d
}

// Requests returns every recorded request.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsFor returns the recorded requests for op.
func (b *Backend) RequestsFor(op string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Request
	for _, r := range b.requests {
		if r.Op == op {
			out = append(out, r)
		}
	}
	return out
}

// CartOf returns a copy of a user's cart.
func (b *Backend) CartOf(userID string) []CartLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]CartLine(nil), b.carts[userID]...)
}

// WishlistOf returns a copy of a user's wishlist product ids.
func (b *Backend) WishlistOf(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.wishlists[userID]...)
}

// CompareOf returns a copy of a user's compare product ids.
func (b *Backend) CompareOf(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.compares[userID]...)
}

// record stores the request and reports an injected failure, if any.
func (b *Backend) record(op string, r *http.Request) (*failure, time.Duration) {
	body := map[string]any{}
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, Request{
		Op:     op,
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   body,
		UserID: userID(r),
	})

	delay := b.delays[op]
	f, ok := b.failures[op]
	if !ok {
		return nil, delay
	}
	if f.times > 0 {
		f.times--
		if f.times == 0 {
			delete(b.failures, op)
		}
	}
	return &failure{status: f.status, message: f.message}, delay
}

package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/coffee-storefront/internal/api"
	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/infrastructure/storage"
	"github.com/example/coffee-storefront/internal/pricing"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrNotLoggedIn     = errors.New("not logged in")
)

// Store is one backing for the cart. Callers never branch on which one.
type Store interface {
	Lines(ctx context.Context) ([]Line, error)
	Add(ctx context.Context, line Line) error
	SetQuantity(ctx context.Context, key string, qty int) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Remote() bool
}

// guestCartCodec is the persisted shape of the guest cart. Version 0 is the
// bare JSON array written before the envelope existed.
var guestCartCodec = storage.Codec[[]Line]{
	Key:     storage.KeyGuestCart,
	Schema:  "guest-cart",
	Version: 1,
}

// LocalStore keeps the guest cart in local storage.
type LocalStore struct {
	mu    sync.Mutex
	store storage.Storage
}

func NewLocalStore(s storage.Storage) *LocalStore {
	return &LocalStore{store: s}
}

func (l *LocalStore) Remote() bool { return false }

func (l *LocalStore) Lines(ctx context.Context) ([]Line, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Add appends line, or increments the line with the same product and option.
func (l *LocalStore) Add(ctx context.Context, line Line) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := l.load()
	if err != nil {
		return err
	}
	line.PriceOption = line.PriceOption.OrDefault()
	key := line.Key()
	for i := range lines {
		if lines[i].Key() == key {
			lines[i].Quantity += line.Quantity
			return guestCartCodec.Save(l.store, lines)
		}
	}
	return guestCartCodec.Save(l.store, append(lines, line))
}

func (l *LocalStore) SetQuantity(ctx context.Context, key string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := l.load()
	if err != nil {
		return err
	}
	for i := range lines {
		if lines[i].Key() == key {
			lines[i].Quantity = qty
			return guestCartCodec.Save(l.store, lines)
		}
	}
	return fmt.Errorf("%w: %s", ErrLineNotFound, key)
}

func (l *LocalStore) Remove(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := l.load()
	if err != nil {
		return err
	}
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Key() != key {
			out = append(out, line)
		}
	}
	if len(out) == len(lines) {
		return fmt.Errorf("%w: %s", ErrLineNotFound, key)
	}
	return guestCartCodec.Save(l.store, out)
}

func (l *LocalStore) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return guestCartCodec.Clear(l.store)
}

// load normalises legacy lines: a missing option means regular and
// non-positive quantities are dropped.
func (l *LocalStore) load() ([]Line, error) {
	lines, _, err := guestCartCodec.Load(l.store)
	if err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 || line.ProductID == "" {
			continue
		}
		line.PriceOption = line.PriceOption.OrDefault()
		out = append(out, line)
	}
	return out, nil
}

// RemoteStore is the server-side cart of the logged-in user.
type RemoteStore struct {
	client *api.Client
}

func NewRemoteStore(client *api.Client) *RemoteStore {
	return &RemoteStore{client: client}
}

func (r *RemoteStore) Remote() bool { return true }

type remoteItem struct {
	ID            string          `json:"_id"`
	Product       product.Product `json:"product"`
	Quantity      int             `json:"quantity"`
	PriceOption   string          `json:"priceOption"`
	SelectedPrice float64         `json:"selectedPrice"`
}

type remoteCart struct {
	Items []remoteItem `json:"items"`
}

func (r *RemoteStore) Lines(ctx context.Context) ([]Line, error) {
	var out remoteCart
	if err := r.client.Do(ctx, api.Call{Op: api.OpCartList}, &out); err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(out.Items))
	for _, item := range out.Items {
		opt, err := pricing.ParseOption(item.PriceOption)
		if err != nil {
			opt = pricing.Regular
		}
		line := snapshotLine(item.Product, item.Quantity, opt)
		line.ID = item.ID
		line.SelectedPrice = item.SelectedPrice
		lines = append(lines, line)
	}
	return lines, nil
}

// Add sends the product and quantity. The price option is attached only when
// it differs from regular.
func (r *RemoteStore) Add(ctx context.Context, line Line) error {
	body := map[string]any{
		"productId": line.ProductID,
		"quantity":  line.Quantity,
	}
	if opt := line.PriceOption.OrDefault(); opt != pricing.Regular {
		body["priceOption"] = string(opt)
	}
	return r.client.Do(ctx, api.Call{Op: api.OpCartAdd, Body: body}, nil)
}

func (r *RemoteStore) SetQuantity(ctx context.Context, key string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	return r.client.Do(ctx, api.Call{
		Op:     api.OpCartUpdate,
		Params: map[string]string{"id": key},
		Body:   map[string]int{"quantity": qty},
	}, nil)
}

func (r *RemoteStore) Remove(ctx context.Context, key string) error {
	return r.client.Do(ctx, api.Call{
		Op:     api.OpCartRemove,
		Params: map[string]string{"id": key},
	}, nil)
}

func (r *RemoteStore) Clear(ctx context.Context) error {
	return r.client.Do(ctx, api.Call{Op: api.OpCartClear}, nil)
}

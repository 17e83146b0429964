package membership

import (
	"context"
	"sync"

	"github.com/example/coffee-storefront/internal/api"
	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/infrastructure/storage"
)

// Entry is a list member. Guests keep the whole product snapshot so the list
// renders without a catalog lookup.
type Entry = product.Product

// Store backs one membership list.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	Contains(ctx context.Context, productID string) (bool, error)
	Add(ctx context.Context, p product.Product) error
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
	Remote() bool
}

// LocalStore keeps the list in local storage.
type LocalStore struct {
	mu    sync.Mutex
	kind  Kind
	store storage.Storage
}

func NewLocalStore(kind Kind, s storage.Storage) *LocalStore {
	return &LocalStore{kind: kind, store: s}
}

func (l *LocalStore) Remote() bool { return false }

func (l *LocalStore) List(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *LocalStore) Contains(ctx context.Context, productID string) (bool, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(entries, productID) >= 0, nil
}

func (l *LocalStore) Add(ctx context.Context, p product.Product) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load()
	if err != nil {
		return err
	}
	if indexOf(entries, p.ID) >= 0 {
		return nil
	}
	return l.kind.Codec.Save(l.store, append(entries, p))
}

func (l *LocalStore) Remove(ctx context.Context, productID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load()
	if err != nil {
		return err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != productID {
			out = append(out, e)
		}
	}
	return l.kind.Codec.Save(l.store, out)
}

// Clear writes an empty list rather than deleting the key.
func (l *LocalStore) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kind.Codec.Save(l.store, []Entry{})
}

// load drops duplicate and id-less entries left by older writers.
func (l *LocalStore) load() ([]Entry, error) {
	entries, _, err := l.kind.Codec.Load(l.store)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || indexOf(out, e.ID) >= 0 {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func indexOf(entries []Entry, productID string) int {
	for i, e := range entries {
		if e.ID == productID {
			return i
		}
	}
	return -1
}

// RemoteStore is the server-side list of the logged-in user.
type RemoteStore struct {
	kind   Kind
	client *api.Client
}

func NewRemoteStore(kind Kind, client *api.Client) *RemoteStore {
	return &RemoteStore{kind: kind, client: client}
}

func (r *RemoteStore) Remote() bool { return true }

func (r *RemoteStore) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	if err := r.client.Do(ctx, api.Call{Op: r.kind.opList}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Contains asks the server about one product.
func (r *RemoteStore) Contains(ctx context.Context, productID string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	err := r.client.Do(ctx, api.Call{
		Op:     r.kind.opCheck,
		Params: map[string]string{"id": productID},
	}, &out)
	return out.Exists, err
}

func (r *RemoteStore) Add(ctx context.Context, p product.Product) error {
	return r.client.Do(ctx, api.Call{
		Op:   r.kind.opAdd,
		Body: map[string]string{"productId": p.ID},
	}, nil)
}

func (r *RemoteStore) Remove(ctx context.Context, productID string) error {
	return r.client.Do(ctx, api.Call{
		Op:     r.kind.opRemove,
		Params: map[string]string{"id": productID},
	}, nil)
}

func (r *RemoteStore) Clear(ctx context.Context) error {
	return r.client.Do(ctx, api.Call{Op: r.kind.opClear}, nil)
}

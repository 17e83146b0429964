package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/coffee-storefront/internal/api"
	"github.com/example/coffee-storefront/internal/api/apitest"
	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/events"
	"github.com/example/coffee-storefront/internal/infrastructure/storage"
	"github.com/example/coffee-storefront/internal/infrastructure/storage/mocks"
	"github.com/example/coffee-storefront/internal/notify"
	"github.com/example/coffee-storefront/internal/pricing"
)

type fakeSession bool

func (f fakeSession) IsLoggedIn() bool { return bool(f) }

var beans = product.Product{
	ID:                  "P1",
	Name:                "Ethiopia Yirgacheffe",
	Images:              []string{"/img/p1.jpg"},
	Price:               20,
	Discount:            10,
	Price3WeeksDelivery: 18,
	ProductType:         product.TypeCoffeeBeans,
}

type guestHarness struct {
	service  *Service
	storage  *mocks.MockStorage
	notifier *notify.Recorder
	states   *[]events.CartState
}

func newGuestCartService(t *testing.T) guestHarness {
	t.Helper()
	store := mocks.NewMockStorage()
	bus := events.NewBus()
	rec := notify.NewRecorder()
	states := &[]events.CartState{}
	events.Subscribe(bus, events.CartUpdated, func(s events.CartState) {
		*states = append(*states, s)
	})
	svc := NewService(fakeSession(false), NewLocalStore(store), nil, bus, rec, zaptest.NewLogger(t))
	return guestHarness{service: svc, storage: store, notifier: rec, states: states}
}

func storedGuestCart(t *testing.T, s storage.Storage) []Line {
	t.Helper()
	lines, _, err := guestCartCodec.Load(s)
	require.NoError(t, err)
	return lines
}

// ============================================
// Line Tests
// ============================================

func TestLine_Key(t *testing.T) {
	tests := []struct {
		name string
		line Line
		want string
	}{
		{"guest regular", Line{ProductID: "P1", PriceOption: pricing.Regular}, "P1|regular"},
		{"guest empty option", Line{ProductID: "P1"}, "P1|regular"},
		{"guest 3 weeks", Line{ProductID: "P1", PriceOption: pricing.ThreeWeeks}, "P1|3weeks"},
		{"server line", Line{ID: "line-9", ProductID: "P1"}, "line-9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.line.Key())
		})
	}
}

func TestLine_UnitPrice(t *testing.T) {
	regular := snapshotLine(beans, 2, pricing.Regular)
	assert.InDelta(t, 18.0, regular.UnitPrice(), 1e-9)
	assert.InDelta(t, 36.0, regular.Total(), 1e-9)

	threeWeeks := snapshotLine(beans, 1, pricing.ThreeWeeks)
	assert.InDelta(t, 16.2, threeWeeks.UnitPrice(), 1e-9)

	// no five-week tier: falls back to the regular price
	fiveWeeks := snapshotLine(beans, 1, pricing.FiveWeeks)
	assert.InDelta(t, 18.0, fiveWeeks.UnitPrice(), 1e-9)

	server := Line{ID: "l1", Quantity: 3, SelectedPrice: 12.5, Price: 99}
	assert.InDelta(t, 37.5, server.Total(), 1e-9)
}

// ============================================
// Guest Cart Tests
// ============================================

func TestService_Guest_AddItem_SameOptionIncrements(t *testing.T) {
	h := newGuestCartService(t)
	ctx := context.Background()

	require.NoError(t, h.service.AddItem(ctx, beans))
	require.NoError(t, h.service.AddItem(ctx, beans, WithQuantity(2)))

	lines := storedGuestCart(t, h.storage)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, pricing.Regular, lines[0].PriceOption)
	assert.Equal(t, "Ethiopia Yirgacheffe", lines[0].Name)
	assert.Equal(t, "/img/p1.jpg", lines[0].Image)
	assert.Empty(t, lines[0].ID)
}

func TestService_Guest_AddItem_DifferentOptionIsNewLine(t *testing.T) {
	h := newGuestCartService(t)
	ctx := context.Background()

	require.NoError(t, h.service.AddItem(ctx, beans))
	require.NoError(t, h.service.AddItem(ctx, beans, WithPriceOption(pricing.ThreeWeeks)))

	lines := storedGuestCart(t, h.storage)
	require.Len(t, lines, 2)
	assert.Equal(t, "P1|regular", lines[0].Key())
	assert.Equal(t, "P1|3weeks", lines[1].Key())
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)
}

func TestService_Guest_AddItem_PublishesState(t *testing.T) {
	h := newGuestCartService(t)

	require.NoError(t, h.service.AddItem(context.Background(), beans, WithQuantity(2)))

	require.Len(t, *h.states, 1)
	state := (*h.states)[0]
	assert.Equal(t, 1, state.Lines)
	assert.Equal(t, 2, state.Items)
	assert.InDelta(t, 36.0, state.Subtotal, 1e-9)
	assert.False(t, state.Remote)
	assert.Equal(t, []string{notify.MsgAddedToCart}, h.notifier.Successes())
}

func TestService_AddItem_Validation(t *testing.T) {
	tests := []struct {
		name    string
		product product.Product
		opts    []AddOption
		wantErr error
	}{
		{"zero quantity", beans, []AddOption{WithQuantity(0)}, ErrInvalidQuantity},
		{"negative quantity", beans, []AddOption{WithQuantity(-1)}, ErrInvalidQuantity},
		{"missing product id", product.Product{Name: "x"}, nil, product.ErrInvalidProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newGuestCartService(t)

			err := h.service.AddItem(context.Background(), tt.product, tt.opts...)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, h.storage.WriteCount())
			assert.Empty(t, *h.states)
			assert.Len(t, h.notifier.Errors(), 1)
		})
	}
}

func TestService_Guest_UpdateQuantity(t *testing.T) {
	h := newGuestCartService(t)
	ctx := context.Background()
	require.NoError(t, h.service.AddItem(ctx, beans))

	require.NoError(t, h.service.UpdateQuantity(ctx, "P1|regular", 4))

	lines := storedGuestCart(t, h.storage)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, 4, (*h.states)[len(*h.states)-1].Items)
}

func TestService_Guest_UpdateQuantity_ZeroOrLessRemoves(t *testing.T) {
	for _, qty := range []int{0, -1, -10} {
		h := newGuestCartService(t)
		ctx := context.Background()
		require.NoError(t, h.service.AddItem(ctx, beans))
		require.NoError(t, h.service.AddItem(ctx, beans, WithPriceOption(pricing.FiveWeeks)))

		require.NoError(t, h.service.UpdateQuantity(ctx, "P1|regular", qty))

		lines := storedGuestCart(t, h.storage)
		require.Len(t, lines, 1, "quantity %d", qty)
		assert.Equal(t, "P1|5weeks", lines[0].Key())
		for _, l := range lines {
			assert.Positive(t, l.Quantity)
		}
	}
}

func TestService_Guest_UpdateQuantity_UnknownLine(t *testing.T) {
	h := newGuestCartService(t)

	err := h.service.UpdateQuantity(context.Background(), "missing|regular", 2)

	assert.ErrorIs(t, err, ErrLineNotFound)
	assert.Empty(t, *h.states)
	assert.Len(t, h.notifier.Errors(), 1)
}

func TestService_Guest_RemoveAndClear(t *testing.T) {
	h := newGuestCartService(t)
	ctx := context.Background()
	require.NoError(t, h.service.AddItem(ctx, beans))
	require.NoError(t, h.service.AddItem(ctx, beans, WithPriceOption(pricing.ThreeWeeks)))

	require.NoError(t, h.service.RemoveItem(ctx, "P1|3weeks"))
	assert.Len(t, storedGuestCart(t, h.storage), 1)

	require.NoError(t, h.service.Clear(ctx))
	_, ok := h.storage.GetData(storage.KeyGuestCart)
	assert.False(t, ok)
	assert.Equal(t, 0, (*h.states)[len(*h.states)-1].Lines)
}

func TestService_Guest_StorageWriteFailure(t *testing.T) {
	h := newGuestCartService(t)
	h.storage.SetErr = errors.New("quota exceeded")

	err := h.service.AddItem(context.Background(), beans)

	assert.EqualError(t, err, "quota exceeded")
	assert.Empty(t, *h.states)
	assert.Equal(t, []string{"quota exceeded"}, h.notifier.Errors())
}

func TestService_Guest_LegacyCartLoads(t *testing.T) {
	h := newGuestCartService(t)
	h.storage.SetData(storage.KeyGuestCart,
		`[{"productId":"P1","quantity":2,"name":"Old","price":10},{"productId":"P2","quantity":0}]`)

	lines, err := h.service.Lines(context.Background())

	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, pricing.Regular, lines[0].PriceOption)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestService_Guest_SavedAsEnvelope(t *testing.T) {
	h := newGuestCartService(t)
	require.NoError(t, h.service.AddItem(context.Background(), beans))

	raw, ok := h.storage.GetData(storage.KeyGuestCart)
	require.True(t, ok)
	var env struct {
		Schema string            `json:"schema"`
		V      int               `json:"v"`
		Data   []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "guest-cart", env.Schema)
	assert.Equal(t, 1, env.V)
	assert.Len(t, env.Data, 1)
}

// ============================================
// Authenticated Cart Tests
// ============================================

type remoteHarness struct {
	service  *Service
	backend  *apitest.Backend
	notifier *notify.Recorder
	states   *[]events.CartState
	local    *mocks.MockStorage
}

func newRemoteCartService(t *testing.T) remoteHarness {
	t.Helper()
	backend := apitest.NewBackend("test-secret-key-for-testing-purposes")
	backend.AddProduct(product.Product{ID: "P2", Name: "House Blend", Price: 15, Price3WeeksDelivery: 13})
	backend.AddProduct(beans)
	srv := apitest.Start(t, backend)
	session, client := apitest.LoginAs(t, backend, srv, "user-1")

	bus := events.NewBus()
	states := &[]events.CartState{}
	events.Subscribe(bus, events.CartUpdated, func(s events.CartState) {
		*states = append(*states, s)
	})
	rec := notify.NewRecorder()
	local := mocks.NewMockStorage()
	svc := NewService(session, NewLocalStore(local), NewRemoteStore(client), bus, rec, zaptest.NewLogger(t))
	return remoteHarness{service: svc, backend: backend, notifier: rec, states: states, local: local}
}

func TestService_Remote_AddItem_RegularOmitsPriceOption(t *testing.T) {
	h := newRemoteCartService(t)

	err := h.service.AddItem(context.Background(), product.Product{ID: "P2"}, WithQuantity(2), WithPriceOption(pricing.Regular))

	require.NoError(t, err)
	posts := h.backend.RequestsFor(api.OpCartAdd)
	require.Len(t, posts, 1)
	assert.Equal(t, http.MethodPost, posts[0].Method)
	assert.Equal(t, map[string]any{"productId": "P2", "quantity": float64(2)}, posts[0].Body)
	assert.False(t, posts[0].HasBodyKey("priceOption"))

	require.Len(t, *h.states, 1)
	assert.True(t, (*h.states)[0].Remote)
	assert.Equal(t, 2, (*h.states)[0].Items)
	assert.InDelta(t, 30.0, (*h.states)[0].Subtotal, 1e-9)
	assert.Equal(t, 0, h.local.WriteCount())
}

func TestService_Remote_AddItem_NonDefaultOptionSent(t *testing.T) {
	h := newRemoteCartService(t)

	require.NoError(t, h.service.AddItem(context.Background(), product.Product{ID: "P2"}, WithPriceOption(pricing.ThreeWeeks)))

	posts := h.backend.RequestsFor(api.OpCartAdd)
	require.Len(t, posts, 1)
	assert.Equal(t, "3weeks", posts[0].Body["priceOption"])
	lines := h.backend.CartOf("user-1")
	require.Len(t, lines, 1)
	assert.Equal(t, "3weeks", lines[0].PriceOption)
}

func TestService_Remote_AddItem_MinimalSuccessEnvelope(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	bus := events.NewBus()
	fired := 0
	events.Subscribe(bus, events.CartUpdated, func(events.CartState) { fired++ })
	svc := NewService(fakeSession(true), nil, NewRemoteStore(api.NewClient(srv.URL)), bus, nil, zaptest.NewLogger(t))

	require.NoError(t, svc.AddItem(context.Background(), product.Product{ID: "P2"}, WithQuantity(2)))

	assert.Equal(t, int32(1), posts.Load())
	assert.Equal(t, 1, fired)
}

func TestService_Remote_AddItem_FailureToastsServerMessage(t *testing.T) {
	h := newRemoteCartService(t)
	h.backend.Fail(api.OpCartAdd, http.StatusConflict, "Not enough stock", 1)

	err := h.service.AddItem(context.Background(), product.Product{ID: "P2"})

	assert.True(t, api.IsStatus(err, http.StatusConflict))
	assert.Equal(t, []string{"Not enough stock"}, h.notifier.Errors())
	assert.Empty(t, *h.states)
	assert.Empty(t, h.backend.RequestsFor(api.OpCartList), "no refresh after a failed mutation")
	assert.Len(t, h.backend.RequestsFor(api.OpCartAdd), 1, "no retry")
}

func TestService_Remote_UpdateAndRemoveByServerID(t *testing.T) {
	h := newRemoteCartService(t)
	ctx := context.Background()
	require.NoError(t, h.service.AddItem(ctx, product.Product{ID: "P2"}))

	lines, err := h.service.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	id := lines[0].ID
	require.NotEmpty(t, id)
	assert.Equal(t, id, lines[0].Key())
	assert.Equal(t, "House Blend", lines[0].Name)

	require.NoError(t, h.service.UpdateQuantity(ctx, id, 5))
	assert.Equal(t, 5, h.backend.CartOf("user-1")[0].Quantity)

	require.NoError(t, h.service.UpdateQuantity(ctx, id, 0))
	assert.Empty(t, h.backend.CartOf("user-1"))
	assert.Len(t, h.backend.RequestsFor(api.OpCartRemove), 1)
	assert.Equal(t, 0, (*h.states)[len(*h.states)-1].Lines)
}

func TestService_Remote_LinesFailureKeepsLastRead(t *testing.T) {
	h := newRemoteCartService(t)
	ctx := context.Background()
	require.NoError(t, h.service.AddItem(ctx, product.Product{ID: "P2"}))
	h.notifier.Reset()

	h.backend.Fail(api.OpCartList, http.StatusInternalServerError, "boom", 1)
	lines, err := h.service.Lines(ctx)

	assert.Error(t, err)
	assert.Len(t, lines, 1)
	assert.Empty(t, h.notifier.Toasts(), "reads fail silently")
}

func TestService_Remote_RefreshFailurePublishesUnknown(t *testing.T) {
	h := newRemoteCartService(t)
	h.backend.Fail(api.OpCartList, http.StatusBadGateway, "upstream down", 1)

	require.NoError(t, h.service.AddItem(context.Background(), product.Product{ID: "P2"}, WithQuantity(2)))

	require.Len(t, *h.states, 1)
	assert.Equal(t, events.UnknownCart(true), (*h.states)[0])
	assert.False(t, (*h.states)[0].Known())
	assert.Equal(t, 2, h.backend.CartOf("user-1")[0].Quantity, "the add itself went through")
}

func TestService_Remote_SwitchesWithSession(t *testing.T) {
	backend := apitest.NewBackend("test-secret-key-for-testing-purposes")
	backend.AddProduct(beans)
	srv := apitest.Start(t, backend)
	token, err := backend.TokenFor("user-2")
	require.NoError(t, err)
	session, client := apitest.Guest(t, srv)
	local := mocks.NewMockStorage()
	svc := NewService(session, NewLocalStore(local), NewRemoteStore(client), events.NewBus(), nil, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, beans))
	assert.Empty(t, backend.RequestsFor(api.OpCartAdd))

	require.NoError(t, session.Login(token))
	require.NoError(t, svc.AddItem(ctx, beans))
	assert.Len(t, backend.RequestsFor(api.OpCartAdd), 1)
	assert.Len(t, storedGuestCart(t, local), 1, "guest cart is left alone on login")
}

// ============================================
// Merge Tests
// ============================================

func TestService_MergeGuestCart(t *testing.T) {
	h := newRemoteCartService(t)
	ctx := context.Background()
	local := NewLocalStore(h.local)
	require.NoError(t, local.Add(ctx, snapshotLine(beans, 2, pricing.ThreeWeeks)))
	require.NoError(t, local.Add(ctx, snapshotLine(product.Product{ID: "P2"}, 1, pricing.Regular)))

	moved, err := h.service.MergeGuestCart(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.Empty(t, storedGuestCart(t, h.local))
	server := h.backend.CartOf("user-1")
	require.Len(t, server, 2)
	assert.Equal(t, "3weeks", server[0].PriceOption)
	assert.Equal(t, 2, server[0].Quantity)
	assert.Equal(t, []string{notify.CartMerged(2, 0)}, h.notifier.Successes())
	require.NotEmpty(t, *h.states)
	assert.Equal(t, 3, (*h.states)[len(*h.states)-1].Items)
}

func TestService_MergeGuestCart_KeepsRejectedLines(t *testing.T) {
	h := newRemoteCartService(t)
	ctx := context.Background()
	local := NewLocalStore(h.local)
	require.NoError(t, local.Add(ctx, snapshotLine(beans, 1, pricing.Regular)))
	require.NoError(t, local.Add(ctx, snapshotLine(product.Product{ID: "gone"}, 1, pricing.Regular)))

	moved, err := h.service.MergeGuestCart(ctx)

	assert.Error(t, err)
	assert.Equal(t, 1, moved)
	left := storedGuestCart(t, h.local)
	require.Len(t, left, 1)
	assert.Equal(t, "gone", left[0].ProductID)
	assert.Equal(t, []string{notify.CartMerged(1, 1)}, h.notifier.Errors())
}

func TestService_MergeGuestCart_RequiresLogin(t *testing.T) {
	h := newGuestCartService(t)

	_, err := h.service.MergeGuestCart(context.Background())

	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

// ============================================
// Stale Refresh Tests
// ============================================

// blockingStore is a remote-like store whose first refresh blocks until
// released, returning the lines as they were when it started.
type blockingStore struct {
	mu      sync.Mutex
	lines   []Line
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Remote() bool { return true }

func (b *blockingStore) Lines(ctx context.Context) ([]Line, error) {
	b.mu.Lock()
	snapshot := append([]Line(nil), b.lines...)
	b.mu.Unlock()
	if b.calls.Add(1) == 1 {
		close(b.entered)
		<-b.release
	}
	return snapshot, nil
}

func (b *blockingStore) Add(ctx context.Context, line Line) error { return nil }

func (b *blockingStore) SetQuantity(ctx context.Context, key string, qty int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		if b.lines[i].Key() == key {
			b.lines[i].Quantity = qty
		}
	}
	return nil
}

func (b *blockingStore) Remove(ctx context.Context, key string) error { return nil }
func (b *blockingStore) Clear(ctx context.Context) error              { return nil }

func TestService_StaleRefreshIsDiscarded(t *testing.T) {
	store := &blockingStore{
		lines:   []Line{{ID: "l1", ProductID: "P1", Quantity: 1, SelectedPrice: 10}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	bus := events.NewBus()
	var mu sync.Mutex
	var published []int
	events.Subscribe(bus, events.CartUpdated, func(s events.CartState) {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, s.Items)
	})
	svc := NewService(fakeSession(true), nil, store, bus, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- svc.UpdateQuantity(ctx, "l1", 3) }()
	<-store.entered

	require.NoError(t, svc.UpdateQuantity(ctx, "l1", 5))
	close(store.release)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{5}, published)
	lines := svc.snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

// readingStore runs onRead once, inside the next Lines call.
type readingStore struct {
	Store
	onRead func()
}

func (r *readingStore) Lines(ctx context.Context) ([]Line, error) {
	if hook := r.onRead; hook != nil {
		r.onRead = nil
		hook()
	}
	return r.Store.Lines(ctx)
}

func TestService_ReadDuringRefreshStillPublishes(t *testing.T) {
	bus := events.NewBus()
	var published []events.CartState
	events.Subscribe(bus, events.CartUpdated, func(s events.CartState) {
		published = append(published, s)
	})
	store := &readingStore{Store: NewLocalStore(mocks.NewMockStorage())}
	svc := NewService(fakeSession(false), store, nil, bus, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	var readErr error
	var read []Line
	store.onRead = func() { read, readErr = svc.Lines(ctx) }
	require.NoError(t, svc.AddItem(ctx, beans, WithQuantity(2)))

	require.NoError(t, readErr)
	assert.Len(t, read, 1)
	require.Len(t, published, 1, "a plain read does not supersede the refresh")
	assert.Equal(t, 2, published[0].Items)
	assert.Len(t, svc.snapshot(), 1)
}

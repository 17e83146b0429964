// Package counts projects cart, wishlist and compare events into the header
// badge numbers.
package counts

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/coffee-storefront/internal/domain/cart"
	"github.com/example/coffee-storefront/internal/events"
	"github.com/example/coffee-storefront/internal/infrastructure/storage"
)

// Counts are the badge values.
type Counts struct {
	Cart     int `json:"cart"`
	Wishlist int `json:"wishlist"`
	Compare  int `json:"compare"`
}

// CartSource reads the cart summary.
type CartSource interface {
	Summary(ctx context.Context) (cart.Summary, error)
}

// ListSource reads the size of a membership list.
type ListSource interface {
	Count(ctx context.Context) (int, error)
}

// Counter keeps Counts current from bus events. Event payloads are used as
// they arrive; changes written by another process trigger a re-read.
type Counter struct {
	bus      *events.Bus
	cart     CartSource
	wishlist ListSource
	compare  ListSource
	logger   *zap.Logger

	mu       sync.Mutex
	counts   Counts
	onChange func(Counts)
	unsubs   []func()
}

func NewCounter(bus *events.Bus, cartSrc CartSource, wishlist, compare ListSource, logger *zap.Logger) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Counter{
		bus:      bus,
		cart:     cartSrc,
		wishlist: wishlist,
		compare:  compare,
		logger:   logger.Named("counts"),
	}
}

// OnChange registers fn to run after every change of the counts.
func (c *Counter) OnChange(fn func(Counts)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Counter) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// Start reads the initial counts and subscribes to the bus. ctx bounds the
// re-reads triggered by events.
func (c *Counter) Start(ctx context.Context) error {
	c.mu.Lock()
	c.unsubs = append(c.unsubs,
		events.Subscribe(c.bus, events.CartUpdated, func(s events.CartState) {
			c.handleCart(ctx, s)
		}),
		events.Subscribe(c.bus, events.WishlistUpdated, func(s events.ListState) {
			c.handleList(ctx, s, c.wishlist, func(n *Counts, v int) { n.Wishlist = v })
		}),
		events.Subscribe(c.bus, events.CompareUpdated, func(s events.ListState) {
			c.handleList(ctx, s, c.compare, func(n *Counts, v int) { n.Compare = v })
		}),
		events.Subscribe(c.bus, events.StorageChanged, func(ch storage.Change) {
			c.handleStorage(ctx, ch)
		}),
	)
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Stop unsubscribes from the bus.
func (c *Counter) Stop() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// Refresh re-reads all three counts in parallel. A failed read keeps the
// previous value and is logged.
func (c *Counter) Refresh(ctx context.Context) error {
	var next Counts
	var cartOK, wishlistOK, compareOK bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := c.cart.Summary(gctx)
		if err != nil {
			c.logger.Warn("failed to count cart", zap.Error(err))
			return nil
		}
		next.Cart, cartOK = sum.Items, true
		return nil
	})
	g.Go(func() error {
		n, err := c.wishlist.Count(gctx)
		if err != nil {
			c.logger.Warn("failed to count wishlist", zap.Error(err))
			return nil
		}
		next.Wishlist, wishlistOK = n, true
		return nil
	})
	g.Go(func() error {
		n, err := c.compare.Count(gctx)
		if err != nil {
			c.logger.Warn("failed to count compare list", zap.Error(err))
			return nil
		}
		next.Compare, compareOK = n, true
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.update(func(n *Counts) {
		if cartOK {
			n.Cart = next.Cart
		}
		if wishlistOK {
			n.Wishlist = next.Wishlist
		}
		if compareOK {
			n.Compare = next.Compare
		}
	})
	return ctx.Err()
}

// handleCart applies a cart event, reading the cart when the publisher
// could not.
func (c *Counter) handleCart(ctx context.Context, s events.CartState) {
	if !s.Known() {
		c.recountCart(ctx)
		return
	}
	c.update(func(n *Counts) { n.Cart = s.Items })
}

func (c *Counter) recountCart(ctx context.Context) {
	sum, err := c.cart.Summary(ctx)
	if err != nil {
		c.logger.Warn("failed to count cart", zap.Error(err))
		return
	}
	c.update(func(n *Counts) { n.Cart = sum.Items })
}

// handleList applies a list event. A negative count means the publisher
// could not size the list, so it is read here instead.
func (c *Counter) handleList(ctx context.Context, s events.ListState, src ListSource, set func(*Counts, int)) {
	count := s.Count
	if count < 0 {
		n, err := src.Count(ctx)
		if err != nil {
			c.logger.Warn("failed to count list", zap.String("list", s.List), zap.Error(err))
			return
		}
		count = n
	}
	c.update(func(n *Counts) { set(n, count) })
}

func (c *Counter) handleStorage(ctx context.Context, ch storage.Change) {
	var src ListSource
	var set func(*Counts, int)
	switch ch.Key {
	case storage.KeyGuestCart:
		c.recountCart(ctx)
		return
	case storage.KeyWishlist:
		src, set = c.wishlist, func(n *Counts, v int) { n.Wishlist = v }
	case storage.KeyCompare:
		src, set = c.compare, func(n *Counts, v int) { n.Compare = v }
	case storage.KeyAuthToken:
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("failed to refresh counts", zap.Error(err))
		}
		return
	default:
		return
	}
	n, err := src.Count(ctx)
	if err != nil {
		c.logger.Warn("failed to count list", zap.String("key", ch.Key), zap.Error(err))
		return
	}
	c.update(func(counts *Counts) { set(counts, n) })
}

func (c *Counter) update(fn func(*Counts)) {
	c.mu.Lock()
	before := c.counts
	fn(&c.counts)
	after := c.counts
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil && after != before {
		onChange(after)
	}
}

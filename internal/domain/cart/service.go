// Package cart presents one logical cart whether the visitor is a guest or
// logged in. The backing store is chosen from the session on every call.
package cart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/events"
	"github.com/example/coffee-storefront/internal/notify"
	"github.com/example/coffee-storefront/internal/pricing"
	"github.com/example/coffee-storefront/internal/reqseq"
)

const (
	// refreshKey sequences the refreshes that follow mutations. Only those
	// decide what gets published.
	refreshKey = "cart"
	// cacheKey sequences every read, so an older read never replaces the
	// cached lines of a newer one.
	cacheKey = "cart-cache"
)

// SessionState is the part of the session the cart depends on.
type SessionState interface {
	IsLoggedIn() bool
}

type Service struct {
	session  SessionState
	local    Store
	remote   Store
	bus      *events.Bus
	notifier notify.Notifier
	logger   *zap.Logger
	seq      *reqseq.Sequencer

	mu     sync.Mutex
	cached []Line
}

// NewService wires the cart. local backs guests, remote backs logged-in users.
func NewService(session SessionState, local, remote Store, bus *events.Bus, notifier notify.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		session:  session,
		local:    local,
		remote:   remote,
		bus:      bus,
		notifier: notifier,
		logger:   logger.Named("cart"),
		seq:      reqseq.New(),
	}
}

// store is the single place the guest/authenticated choice is made.
func (s *Service) store() Store {
	if s.session.IsLoggedIn() {
		return s.remote
	}
	return s.local
}

type addOptions struct {
	quantity int
	option   pricing.Option
}

// AddOption customises AddItem.
type AddOption func(*addOptions)

func WithQuantity(n int) AddOption {
	return func(o *addOptions) { o.quantity = n }
}

func WithPriceOption(opt pricing.Option) AddOption {
	return func(o *addOptions) { o.option = opt }
}

// AddItem adds p to the cart, one unit at the regular price unless told
// otherwise. A guest line with the same product and option is incremented.
func (s *Service) AddItem(ctx context.Context, p product.Product, opts ...AddOption) error {
	o := addOptions{quantity: 1, option: pricing.Regular}
	for _, opt := range opts {
		opt(&o)
	}
	if p.ID == "" {
		s.notifier.Error(product.ErrInvalidProduct.Error())
		return product.ErrInvalidProduct
	}
	if o.quantity < 1 {
		s.notifier.Error(ErrInvalidQuantity.Error())
		return ErrInvalidQuantity
	}

	line := snapshotLine(p, o.quantity, o.option.OrDefault())
	store := s.store()
	token := s.seq.Next(line.Key())
	if err := store.Add(ctx, line); err != nil {
		s.fail("add item", err, zap.String("product_id", p.ID))
		return err
	}
	s.logger.Info("item added",
		zap.String("product_id", p.ID),
		zap.Int("quantity", o.quantity),
		zap.String("price_option", string(line.PriceOption)),
		zap.Bool("remote", store.Remote()))
	s.afterMutation(ctx, store, token)
	s.notifier.Success(notify.MsgAddedToCart)
	return nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, key string, qty int) error {
	if qty <= 0 {
		return s.RemoveItem(ctx, key)
	}

	store := s.store()
	token := s.seq.Next(key)
	if err := store.SetQuantity(ctx, key, qty); err != nil {
		s.fail("update quantity", err, zap.String("line", key))
		return err
	}
	s.logger.Info("quantity updated", zap.String("line", key), zap.Int("quantity", qty))
	s.afterMutation(ctx, store, token)
	s.notifier.Success(notify.MsgCartUpdated)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, key string) error {
	store := s.store()
	token := s.seq.Next(key)
	if err := store.Remove(ctx, key); err != nil {
		s.fail("remove item", err, zap.String("line", key))
		return err
	}
	s.logger.Info("item removed", zap.String("line", key))
	s.afterMutation(ctx, store, token)
	s.notifier.Success(notify.MsgRemovedFromCart)
	return nil
}

func (s *Service) Clear(ctx context.Context) error {
	store := s.store()
	if err := store.Clear(ctx); err != nil {
		s.fail("clear cart", err)
		return err
	}
	s.logger.Info("cart cleared", zap.Bool("remote", store.Remote()))
	s.afterMutation(ctx, store)
	s.notifier.Success(notify.MsgCartCleared)
	return nil
}

// Lines reads the current cart. Read failures are logged, not toasted, and
// the last good read is returned alongside the error.
func (s *Service) Lines(ctx context.Context) ([]Line, error) {
	store := s.store()
	token := s.seq.Next(cacheKey)
	lines, err := store.Lines(ctx)
	if err != nil {
		s.logger.Warn("failed to load cart", zap.Error(err))
		return s.snapshot(), err
	}
	if s.seq.Current(token) {
		s.setCached(lines)
	}
	return lines, nil
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	lines, err := s.Lines(ctx)
	return Summarize(lines), err
}

// MergeGuestCart pushes the guest lines into the server cart. Lines the
// server accepts are dropped from the guest cart; rejected ones stay.
func (s *Service) MergeGuestCart(ctx context.Context) (moved int, err error) {
	if !s.session.IsLoggedIn() {
		return 0, ErrNotLoggedIn
	}
	guest, err := s.local.Lines(ctx)
	if err != nil {
		s.fail("read guest cart", err)
		return 0, err
	}
	if len(guest) == 0 {
		return 0, nil
	}

	var errs []error
	for _, line := range guest {
		if err := s.remote.Add(ctx, line); err != nil {
			s.logger.Warn("guest line rejected",
				zap.String("product_id", line.ProductID),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := s.local.Remove(ctx, line.Key()); err != nil {
			errs = append(errs, err)
			continue
		}
		moved++
	}

	s.afterMutation(ctx, s.remote)
	failed := len(guest) - moved
	if failed > 0 {
		s.notifier.Error(notify.CartMerged(moved, failed))
	} else {
		s.notifier.Success(notify.CartMerged(moved, 0))
	}
	s.logger.Info("guest cart merged", zap.Int("moved", moved), zap.Int("failed", failed))
	return moved, errors.Join(errs...)
}

// afterMutation refreshes the cart and publishes its state. A refresh that
// was superseded by a later mutation of the same line, or by a later
// mutation refresh, is dropped; the later one publishes. Plain reads never
// supersede it. When the refresh fails the state is published as unknown.
func (s *Service) afterMutation(ctx context.Context, store Store, lineTokens ...reqseq.Token) {
	refresh := s.seq.Next(refreshKey)
	cache := s.seq.Next(cacheKey)
	lines, err := store.Lines(ctx)
	if !s.seq.Latest(append(lineTokens, refresh)...) {
		s.logger.Debug("discarding stale cart refresh")
		return
	}
	if err != nil {
		s.logger.Warn("failed to refresh cart", zap.Error(err))
		s.publishUnknown(store.Remote())
		return
	}
	if s.seq.Current(cache) {
		s.setCached(lines)
	}
	s.publish(lines, store.Remote())
}

func (s *Service) publish(lines []Line, remote bool) {
	if s.bus == nil {
		return
	}
	sum := Summarize(lines)
	events.Publish(s.bus, events.CartUpdated, events.CartState{
		Lines:    sum.Lines,
		Items:    sum.Items,
		Subtotal: sum.Subtotal,
		Remote:   remote,
	})
}

// publishUnknown tells listeners the cart changed but could not be read.
func (s *Service) publishUnknown(remote bool) {
	if s.bus == nil {
		return
	}
	events.Publish(s.bus, events.CartUpdated, events.UnknownCart(remote))
}

func (s *Service) fail(action string, err error, fields ...zap.Field) {
	s.logger.Error("failed to "+action, append(fields, zap.Error(err))...)
	notify.Failure(s.notifier, err)
}

func (s *Service) snapshot() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.cached...)
}

func (s *Service) setCached(lines []Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = append([]Line(nil), lines...)
}

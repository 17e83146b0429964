// Package membership keeps the wishlist and compare lists: toggle-only sets
// of products, stored locally for guests and on the server for users.
package membership

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/events"
	"github.com/example/coffee-storefront/internal/notify"
)

var ErrCompareFull = errors.New("compare list is full")

// Result is the outcome of a toggle.
type Result string

const (
	Added   Result = "added"
	Removed Result = "removed"
)

// SessionState is the part of the session the lists depend on.
type SessionState interface {
	IsLoggedIn() bool
}

type Service struct {
	kind     Kind
	session  SessionState
	local    Store
	remote   Store
	bus      *events.Bus
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewService(kind Kind, session SessionState, local, remote Store, bus *events.Bus, notifier notify.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		kind:     kind,
		session:  session,
		local:    local,
		remote:   remote,
		bus:      bus,
		notifier: notifier,
		logger:   logger.Named(kind.Codec.Schema),
	}
}

func (s *Service) Kind() Kind { return s.kind }

func (s *Service) store() Store {
	if s.session.IsLoggedIn() {
		return s.remote
	}
	return s.local
}

// Toggle removes p when it is a member and adds it otherwise. A capped list
// that is already full rejects the addition before anything is written.
func (s *Service) Toggle(ctx context.Context, p product.Product) (Result, error) {
	if p.ID == "" {
		s.notifier.Error(product.ErrInvalidProduct.Error())
		return "", product.ErrInvalidProduct
	}
	store := s.store()

	member, err := store.Contains(ctx, p.ID)
	if err != nil {
		s.fail("check membership", err, p.ID)
		return "", err
	}

	if member {
		if err := store.Remove(ctx, p.ID); err != nil {
			s.fail("remove", err, p.ID)
			return "", err
		}
		s.logger.Info("removed", zap.String("product_id", p.ID), zap.Bool("remote", store.Remote()))
		s.announce(ctx, store, p.ID, false)
		s.notifier.Success(notify.RemovedFrom(s.kind.Name))
		return Removed, nil
	}

	if s.kind.Limit > 0 {
		entries, err := store.List(ctx)
		if err != nil {
			s.fail("read list", err, p.ID)
			return "", err
		}
		if len(entries) >= s.kind.Limit {
			s.logger.Info("list full", zap.String("product_id", p.ID), zap.Int("limit", s.kind.Limit))
			s.notifier.Error(notify.MsgCompareFull)
			return "", ErrCompareFull
		}
	}

	if err := store.Add(ctx, p); err != nil {
		s.fail("add", err, p.ID)
		return "", err
	}
	s.logger.Info("added", zap.String("product_id", p.ID), zap.Bool("remote", store.Remote()))
	s.announce(ctx, store, p.ID, true)
	s.notifier.Success(notify.AddedTo(s.kind.Name))
	return Added, nil
}

// Contains reports membership. Failures are logged and read as "not a member".
func (s *Service) Contains(ctx context.Context, productID string) (bool, error) {
	ok, err := s.store().Contains(ctx, productID)
	if err != nil {
		s.logger.Warn("failed to check membership", zap.String("product_id", productID), zap.Error(err))
		return false, err
	}
	return ok, nil
}

func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.store().List(ctx)
	if err != nil {
		s.logger.Warn("failed to load list", zap.Error(err))
		return nil, err
	}
	return entries, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	entries, err := s.List(ctx)
	return len(entries), err
}

// Clear empties the list.
func (s *Service) Clear(ctx context.Context) error {
	store := s.store()
	if err := store.Clear(ctx); err != nil {
		s.fail("clear", err, "")
		return err
	}
	s.logger.Info("cleared", zap.Bool("remote", store.Remote()))
	if s.bus != nil {
		events.Publish(s.bus, s.kind.Topic, events.ListState{List: s.kind.Codec.Key})
	}
	if s.kind.Limit > 0 {
		s.notifier.Success(notify.MsgCompareCleared)
	} else {
		s.notifier.Success(notify.MsgWishlistCleared)
	}
	return nil
}

// announce publishes the new list size. When the size cannot be read the
// event still fires with a count of -1 so listeners re-query.
func (s *Service) announce(ctx context.Context, store Store, productID string, added bool) {
	if s.bus == nil {
		return
	}
	count := -1
	if entries, err := store.List(ctx); err != nil {
		s.logger.Warn("failed to count list", zap.Error(err))
	} else {
		count = len(entries)
	}
	events.Publish(s.bus, s.kind.Topic, events.ListState{
		List:      s.kind.Codec.Key,
		ProductID: productID,
		Added:     added,
		Count:     count,
	})
}

func (s *Service) fail(action string, err error, productID string) {
	s.logger.Error("failed to "+action, zap.String("product_id", productID), zap.Error(err))
	notify.Failure(s.notifier, err)
}

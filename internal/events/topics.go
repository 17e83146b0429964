package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/coffee-storefront/internal/infrastructure/storage"
)

var ErrUnknownTopic = errors.New("unknown topic")

// CartState is published after every successful cart mutation. Lines and
// Items are -1 when the cart could not be read; listeners read it themselves.
type CartState struct {
	Lines    int     `json:"lines"`
	Items    int     `json:"items"`
	Subtotal float64 `json:"subtotal"`
	Remote   bool    `json:"remote"`
}

func UnknownCart(remote bool) CartState {
	return CartState{Lines: -1, Items: -1, Remote: remote}
}

// Known reports whether the counts were read.
func (s CartState) Known() bool {
	return s.Items >= 0
}

// ListState is published after a wishlist or compare toggle. Count is -1
// when the list could not be read.
type ListState struct {
	List      string `json:"list"`
	ProductID string `json:"product_id"`
	Added     bool   `json:"added"`
	Count     int    `json:"count"`
}

var (
	CartUpdated     = NewTopic[CartState]("cart-updated")
	WishlistUpdated = NewTopic[ListState]("wishlist-updated")
	CompareUpdated  = NewTopic[ListState]("compare-updated")

	// StorageChanged carries changes made to local storage by another process.
	StorageChanged = NewTopic[storage.Change]("storage")
)

// PublishJSON decodes payload for a known topic name and publishes it. It is
// used to replay events that arrive from outside the process.
func PublishJSON(b *Bus, topic string, payload json.RawMessage) error {
	switch topic {
	case CartUpdated.Name():
		return publishDecoded(b, CartUpdated, payload)
	case WishlistUpdated.Name():
		return publishDecoded(b, WishlistUpdated, payload)
	case CompareUpdated.Name():
		return publishDecoded(b, CompareUpdated, payload)
	case StorageChanged.Name():
		return publishDecoded(b, StorageChanged, payload)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
}

func publishDecoded[T any](b *Bus, t Topic[T], payload json.RawMessage) error {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", t.Name(), err)
	}
	Publish(b, t, v)
	return nil
}

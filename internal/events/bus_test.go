package events

import (
	"encoding/json"
	"testing"

	"github.com/example/coffee-storefront/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversTypedPayloadInOrder(t *testing.T) {
	bus := NewBus()
	var got []string

	Subscribe(bus, CartUpdated, func(s CartState) {
		got = append(got, "first")
		assert.Equal(t, 3, s.Items)
	})
	Subscribe(bus, CartUpdated, func(s CartState) {
		got = append(got, "second")
	})

	Publish(bus, CartUpdated, CartState{Lines: 2, Items: 3})

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestPublish_TopicsAreIndependent(t *testing.T) {
	bus := NewBus()
	wishlist, compare := 0, 0

	Subscribe(bus, WishlistUpdated, func(ListState) { wishlist++ })
	Subscribe(bus, CompareUpdated, func(ListState) { compare++ })

	Publish(bus, WishlistUpdated, ListState{List: "wishlist", Count: 1})

	assert.Equal(t, 1, wishlist)
	assert.Equal(t, 0, compare)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0

	unsubscribe := Subscribe(bus, CompareUpdated, func(ListState) { calls++ })
	assert.Equal(t, 1, SubscriberCount(bus, CompareUpdated))

	unsubscribe()
	Publish(bus, CompareUpdated, ListState{})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, SubscriberCount(bus, CompareUpdated))
}

func TestSubscribe_UnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	calls := 0

	var unsubscribe func()
	unsubscribe = Subscribe(bus, CartUpdated, func(CartState) {
		calls++
		unsubscribe()
	})

	Publish(bus, CartUpdated, CartState{})
	Publish(bus, CartUpdated, CartState{})

	assert.Equal(t, 1, calls)
}

func TestTap_SeesEveryTopic(t *testing.T) {
	bus := NewBus()
	var topics []string

	untap := bus.Tap(func(env Envelope) {
		topics = append(topics, env.Topic)
		assert.False(t, env.At.IsZero())
	})

	Publish(bus, CartUpdated, CartState{})
	Publish(bus, WishlistUpdated, ListState{})
	untap()
	Publish(bus, CompareUpdated, ListState{})

	assert.Equal(t, []string{"cart-updated", "wishlist-updated"}, topics)
}

func TestPublishJSON(t *testing.T) {
	bus := NewBus()
	var got storage.Change
	Subscribe(bus, StorageChanged, func(c storage.Change) { got = c })

	err := PublishJSON(bus, "storage", json.RawMessage(`{"key":"wishlist","new_value":"[]"}`))

	require.NoError(t, err)
	assert.Equal(t, storage.Change{Key: "wishlist", NewValue: "[]"}, got)
}

func TestPublishJSON_UnknownTopic(t *testing.T) {
	err := PublishJSON(NewBus(), "order-placed", json.RawMessage(`{}`))

	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func TestPublishJSON_BadPayload(t *testing.T) {
	err := PublishJSON(NewBus(), "cart-updated", json.RawMessage(`"nope"`))

	assert.Error(t, err)
}

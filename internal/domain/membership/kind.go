package membership

import (
	"github.com/example/coffee-storefront/internal/api"
	"github.com/example/coffee-storefront/internal/events"
	"github.com/example/coffee-storefront/internal/infrastructure/storage"
)

// CompareLimit is the most products the compare list holds.
const CompareLimit = 4

// Kind describes one membership list: where guests keep it, which endpoints
// back it for logged-in users and which topic announces changes.
type Kind struct {
	Name  string
	Limit int // 0 means unbounded
	Topic events.Topic[events.ListState]
	Codec storage.Codec[[]Entry]

	opList, opAdd, opRemove, opCheck, opClear string
}

var (
	Wishlist = Kind{
		Name:     "wishlist",
		Topic:    events.WishlistUpdated,
		Codec:    storage.Codec[[]Entry]{Key: storage.KeyWishlist, Schema: "wishlist", Version: 1},
		opList:   api.OpWishlistList,
		opAdd:    api.OpWishlistAdd,
		opRemove: api.OpWishlistRemove,
		opCheck:  api.OpWishlistCheck,
		opClear:  api.OpWishlistClear,
	}

	Compare = Kind{
		Name:     "compare list",
		Limit:    CompareLimit,
		Topic:    events.CompareUpdated,
		Codec:    storage.Codec[[]Entry]{Key: storage.KeyCompare, Schema: "compare", Version: 1},
		opList:   api.OpCompareList,
		opAdd:    api.OpCompareAdd,
		opRemove: api.OpCompareRemove,
		opCheck:  api.OpCompareCheck,
		opClear:  api.OpCompareClear,
	}
)

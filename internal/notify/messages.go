package notify

import "fmt"

// User-facing messages shared by the cart and list services.
const (
	MsgAddedToCart     = "Added to cart"
	MsgCartUpdated     = "Cart updated"
	MsgRemovedFromCart = "Removed from cart"
	MsgCartCleared     = "Cart cleared"
	MsgCompareFull     = "You can compare up to 4 products"
	MsgCompareCleared  = "Compare list cleared"
	MsgWishlistCleared = "Wishlist cleared"
)

// AddedTo builds the toast for a list addition, e.g. "Added to wishlist".
func AddedTo(list string) string {
	return fmt.Sprintf("Added to %s", list)
}

// RemovedFrom builds the toast for a list removal.
func RemovedFrom(list string) string {
	return fmt.Sprintf("Removed from %s", list)
}

// CartMerged summarises a guest cart merge.
func CartMerged(moved, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("Moved %d item(s) from your guest cart", moved)
	}
	return fmt.Sprintf("Moved %d item(s) from your guest cart, %d could not be added", moved, failed)
}

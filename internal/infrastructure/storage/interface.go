package storage

// Keys used by the storefront client. Values are JSON documents or plain
// strings, the same shapes the web client kept in window.localStorage.
const (
	KeyWishlist         = "wishlist"
	KeyCompare          = "compareList"
	KeyGuestCart        = "guestCart"
	KeySelectedCurrency = "selectedCurrency"
	KeyExchangeRates    = "exchangeRates"
	KeyAuthToken        = "authToken"
	KeyDeviceID         = "deviceId"
)

// Storage is a string key/value store scoped to one origin.
type Storage interface {
	// GetItem returns the stored value and whether the key exists
	GetItem(key string) (string, bool, error)

	// SetItem stores a value, replacing any previous one
	SetItem(key, value string) error

	// RemoveItem deletes a key; removing a missing key is not an error
	RemoveItem(key string) error
}

// Change describes a value that changed outside this process.
type Change struct {
	Key      string `json:"key"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

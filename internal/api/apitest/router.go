package apitest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/coffee-storefront/internal/api"
)

// Router builds the chi router from the same endpoint table the client uses.
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, "Route not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	public := map[string]http.HandlerFunc{
		api.OpLogin:             b.login,
		api.OpProductSearch:     b.searchProducts,
		api.OpProductGet:        b.getProduct,
		api.OpCategories:        b.listCategories,
		api.OpCategoryBySlug:    b.categoryBySlug,
		api.OpSubCategories:     b.listSubCategories,
		api.OpSubCategoryBySlug: b.subCategoryBySlug,
		api.OpBrands:            b.listBrands,
		api.OpBrandBySlug:       b.brandBySlug,
		api.OpCurrencyRates:     b.exchangeRates,
	}
	protected := map[string]http.HandlerFunc{
		api.OpProfile:        b.profile,
		api.OpCartList:       b.listCart,
		api.OpCartAdd:        b.addToCart,
		api.OpCartUpdate:     b.updateCartLine,
		api.OpCartRemove:     b.removeCartLine,
		api.OpCartClear:      b.clearCart,
		api.OpWishlistList:   b.listMembers(wishlistKind),
		api.OpWishlistAdd:    b.addMember(wishlistKind),
		api.OpWishlistRemove: b.removeMember(wishlistKind),
		api.OpWishlistCheck:  b.checkMember(wishlistKind),
		api.OpWishlistClear:  b.clearMembers(wishlistKind),
		api.OpCompareList:    b.listMembers(compareKind),
		api.OpCompareAdd:     b.addMember(compareKind),
		api.OpCompareRemove:  b.removeMember(compareKind),
		api.OpCompareCheck:   b.checkMember(compareKind),
		api.OpCompareClear:   b.clearMembers(compareKind),
	}

	endpoints := api.DefaultEndpoints()
	for op, h := range public {
		ep := endpoints[op]
		r.Method(ep.Method, ep.URL, b.wrap(op, h))
	}
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(b.issuer))
		for op, h := range protected {
			ep := endpoints[op]
			r.Method(ep.Method, ep.URL, b.wrap(op, h))
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(b.issuer), requireRole("admin"))
		for _, op := range []string{api.OpAdminBrandCreate, api.OpAdminBrandDelete} {
			ep := endpoints[op]
			r.Method(ep.Method, ep.URL, b.wrap(op, b.adminBrands(op)))
		}
	})

	return r
}

// wrap records the call and applies injected delays and failures.
func (b *Backend) wrap(op string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, delay := b.record(op, r)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if f != nil {
			respondError(w, f.message, f.status)
			return
		}
		h(w, r)
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

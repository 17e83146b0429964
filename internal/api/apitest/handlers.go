package apitest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/coffee-storefront/internal/api"
	"github.com/example/coffee-storefront/internal/auth"
	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/pricing"
)

const defaultPageSize = 12

// Auth Handlers

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	u, ok := b.users[req.Email]
	b.mu.Unlock()
	if !ok || !auth.CheckPassword(req.Password, u.PasswordHash) {
		respondError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, _, err := b.issuer.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		respondError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, api.LoginResult{
		Token: token,
		User:  api.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == id {
			respondJSON(w, http.StatusOK, api.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role})
			return
		}
	}
	respondError(w, "User not found", http.StatusNotFound)
}

// Catalog Handlers

func (b *Backend) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sets := map[string]map[string]bool{}
	for _, facet := range []string{"productType", "roastLevel", "intensity", "blend", "brand"} {
		if raw := q.Get(facet); raw != "" {
			sets[facet] = map[string]bool{}
			for _, v := range strings.Split(raw, ",") {
				sets[facet][v] = true
			}
		}
	}
	minPrice, hasMin := parseFloat(q.Get("minPrice"))
	maxPrice, hasMax := parseFloat(q.Get("maxPrice"))
	search := strings.ToLower(strings.TrimSpace(q.Get("q")))

	b.mu.Lock()
	var matched []product.Product
	for _, id := range b.productOrder {
		p := b.products[id]
		if !inSet(sets["productType"], p.ProductType) ||
			!inSet(sets["roastLevel"], p.RoastLevel) ||
			!inSet(sets["intensity"], p.Intensity) ||
			!inSet(sets["blend"], p.Blend) ||
			!inSet(sets["brand"], p.Brand.ID) {
			continue
		}
		if c := q.Get("category"); c != "" && p.Category.ID != c {
			continue
		}
		if s := q.Get("subCategory"); s != "" && p.SubCategory.ID != s {
			continue
		}
		price := p.UnitPrice(pricing.Regular)
		if (hasMin && price < minPrice) || (hasMax && price > maxPrice) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		matched = append(matched, p)
	}
	b.mu.Unlock()

	switch q.Get("sort") {
	case "price-low":
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].UnitPrice(pricing.Regular) < matched[j].UnitPrice(pricing.Regular)
		})
	case "price-high":
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].UnitPrice(pricing.Regular) > matched[j].UnitPrice(pricing.Regular)
		})
	case "alphabet":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	case "popularity":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Stock < matched[j].Stock })
	default:
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	pages := (len(matched) + limit - 1) / limit
	start := (page - 1) * limit
	end := start + limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	respondJSON(w, http.StatusOK, product.Page{
		Products: append([]product.Product{}, matched[start:end]...),
		Total:    len(matched),
		Page:     page,
		Pages:    pages,
	})
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	p, ok := b.products[chi.URLParam(r, "id")]
	b.mu.Unlock()
	if !ok {
		respondError(w, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (b *Backend) listCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	respondJSON(w, http.StatusOK, append([]product.Category{}, b.categories...))
}

func (b *Backend) categoryBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.categories {
		if c.Slug == slug {
			respondJSON(w, http.StatusOK, c)
			return
		}
	}
	respondError(w, "Category not found", http.StatusNotFound)
}

func (b *Backend) listSubCategories(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []product.SubCategory{}
	for _, s := range b.subCategories {
		if s.Category.ID == categoryID {
			out = append(out, s)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (b *Backend) subCategoryBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subCategories {
		if s.Slug == slug {
			respondJSON(w, http.StatusOK, s)
			return
		}
	}
	respondError(w, "Sub-category not found", http.StatusNotFound)
}

func (b *Backend) listBrands(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	respondJSON(w, http.StatusOK, append([]product.Brand{}, b.brands...))
}

func (b *Backend) brandBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, br := range b.brands {
		if br.Slug == slug {
			respondJSON(w, http.StatusOK, br)
			return
		}
	}
	respondError(w, "Brand not found", http.StatusNotFound)
}

func (b *Backend) exchangeRates(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]float64, len(b.rates))
	for k, v := range b.rates {
		out[k] = v
	}
	respondJSON(w, http.StatusOK, out)
}

func (b *Backend) adminBrands(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch op {
		case api.OpAdminBrandCreate:
			var br product.Brand
			if err := json.NewDecoder(r.Body).Decode(&br); err != nil || br.Name == "" {
				respondError(w, "Brand name is required", http.StatusBadRequest)
				return
			}
			br.ID = uuid.NewString()
			b.brands = append(b.brands, br)
			respondJSON(w, http.StatusCreated, br)
		case api.OpAdminBrandDelete:
			id := chi.URLParam(r, "id")
			out := b.brands[:0]
			for _, br := range b.brands {
				if br.ID != id {
					out = append(out, br)
				}
			}
			b.brands = out
			respondMessage(w, http.StatusOK, "Brand deleted")
		}
	}
}

// Cart Handlers

type cartItemResponse struct {
	ID            string          `json:"_id"`
	Product       product.Product `json:"product"`
	Quantity      int             `json:"quantity"`
	PriceOption   string          `json:"priceOption"`
	SelectedPrice float64         `json:"selectedPrice"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
}

func (b *Backend) listCart(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	respondJSON(w, http.StatusOK, b.cartResponseLocked(id))
}

func (b *Backend) cartResponseLocked(userID string) cartResponse {
	out := cartResponse{Items: []cartItemResponse{}}
	for _, line := range b.carts[userID] {
		p := b.products[line.ProductID]
		opt, _ := pricing.ParseOption(line.PriceOption)
		out.Items = append(out.Items, cartItemResponse{
			ID:            line.ID,
			Product:       p,
			Quantity:      line.Quantity,
			PriceOption:   string(opt),
			SelectedPrice: p.UnitPrice(opt),
		})
	}
	return out
}

func (b *Backend) addToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID   string `json:"productId"`
		Quantity    int    `json:"quantity"`
		PriceOption string `json:"priceOption"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		respondError(w, "Quantity must be at least 1", http.StatusBadRequest)
		return
	}
	opt, err := pricing.ParseOption(req.PriceOption)
	if err != nil {
		respondError(w, "Invalid price option", http.StatusBadRequest)
		return
	}

	id := userID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[req.ProductID]
	if !ok {
		respondError(w, "Product not found", http.StatusNotFound)
		return
	}
	if p.Stock > 0 && req.Quantity > p.Stock {
		respondError(w, "Not enough stock", http.StatusConflict)
		return
	}

	lines := b.carts[id]
	for i := range lines {
		if lines[i].ProductID == req.ProductID && lines[i].PriceOption == string(opt) {
			lines[i].Quantity += req.Quantity
			respondJSON(w, http.StatusOK, b.cartResponseLocked(id))
			return
		}
	}
	b.carts[id] = append(lines, CartLine{
		ID:          uuid.NewString(),
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		PriceOption: string(opt),
	})
	respondJSON(w, http.StatusCreated, b.cartResponseLocked(id))
}

func (b *Backend) updateCartLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		respondError(w, "Quantity must be at least 1", http.StatusBadRequest)
		return
	}

	id := userID(r)
	lineID := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.carts[id] {
		if b.carts[id][i].ID == lineID {
			b.carts[id][i].Quantity = req.Quantity
			respondJSON(w, http.StatusOK, b.cartResponseLocked(id))
			return
		}
	}
	respondError(w, "Cart item not found", http.StatusNotFound)
}

func (b *Backend) removeCartLine(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	lineID := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[id]
	for i := range lines {
		if lines[i].ID == lineID {
			b.carts[id] = append(lines[:i:i], lines[i+1:]...)
			respondJSON(w, http.StatusOK, b.cartResponseLocked(id))
			return
		}
	}
	respondError(w, "Cart item not found", http.StatusNotFound)
}

func (b *Backend) clearCart(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.carts, id)
	respondMessage(w, http.StatusOK, "Cart cleared")
}

// Wishlist / Compare Handlers

type memberKind int

const (
	wishlistKind memberKind = iota
	compareKind
)

func (b *Backend) membersLocked(kind memberKind) map[string][]string {
	if kind == compareKind {
		return b.compares
	}
	return b.wishlists
}

func (b *Backend) listMembers(kind memberKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := userID(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []product.Product{}
		for _, pid := range b.membersLocked(kind)[id] {
			if p, ok := b.products[pid]; ok {
				out = append(out, p)
			} else {
				out = append(out, product.Product{ID: pid})
			}
		}
		respondJSON(w, http.StatusOK, out)
	}
}

func (b *Backend) addMember(kind memberKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID string `json:"productId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
			respondError(w, "Product id is required", http.StatusBadRequest)
			return
		}

		id := userID(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		members := b.membersLocked(kind)
		for _, pid := range members[id] {
			if pid == req.ProductID {
				respondError(w, "Product already added", http.StatusConflict)
				return
			}
		}
		if kind == compareKind && len(members[id]) >= CompareLimit {
			respondError(w, "You can compare up to 4 products", http.StatusBadRequest)
			return
		}
		members[id] = append(members[id], req.ProductID)
		respondMessage(w, http.StatusCreated, "Added")
	}
}

func (b *Backend) removeMember(kind memberKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := userID(r)
		productID := chi.URLParam(r, "id")
		b.mu.Lock()
		defer b.mu.Unlock()
		members := b.membersLocked(kind)
		out := members[id][:0:0]
		for _, pid := range members[id] {
			if pid != productID {
				out = append(out, pid)
			}
		}
		members[id] = out
		respondMessage(w, http.StatusOK, "Removed")
	}
}

func (b *Backend) checkMember(kind memberKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := userID(r)
		productID := chi.URLParam(r, "id")
		b.mu.Lock()
		defer b.mu.Unlock()
		exists := false
		for _, pid := range b.membersLocked(kind)[id] {
			if pid == productID {
				exists = true
				break
			}
		}
		respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
	}
}

func (b *Backend) clearMembers(kind memberKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := userID(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.membersLocked(kind), id)
		respondMessage(w, http.StatusOK, "Cleared")
	}
}

func inSet(set map[string]bool, v string) bool {
	return len(set) == 0 || set[v]
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

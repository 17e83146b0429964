package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint is one REST operation of the storefront API.
type Endpoint struct {
	URL    string `yaml:"url" json:"url"`
	Method string `yaml:"method" json:"method"`
}

// Endpoints maps logical operation names to their REST endpoints.
type Endpoints map[string]Endpoint

// Logical operation names
const (
	OpLogin    = "auth.login"
	OpRegister = "auth.register"
	OpProfile  = "auth.profile"

	OpProductSearch = "products.search"
	OpProductGet    = "products.get"

	OpCategories          = "categories.list"
	OpCategoryBySlug      = "categories.bySlug"
	OpSubCategories       = "subcategories.byCategory"
	OpSubCategoryBySlug   = "subcategories.bySlug"
	OpBrands              = "brands.list"
	OpBrandBySlug         = "brands.bySlug"
	OpCartList            = "cart.list"
	OpCartAdd             = "cart.add"
	OpCartUpdate          = "cart.update"
	OpCartRemove          = "cart.remove"
	OpCartClear           = "cart.clear"
	OpWishlistList        = "wishlist.list"
	OpWishlistAdd         = "wishlist.add"
	OpWishlistRemove      = "wishlist.remove"
	OpWishlistCheck       = "wishlist.check"
	OpWishlistClear       = "wishlist.clear"
	OpCompareList         = "compare.list"
	OpCompareAdd          = "compare.add"
	OpCompareRemove       = "compare.remove"
	OpCompareCheck        = "compare.check"
	OpCompareClear        = "compare.clear"
	OpCurrencyRates       = "currency.rates"
	OpBannersList         = "banners.list"
	OpSlidersList         = "sliders.list"
	OpBlogList            = "blog.list"
	OpBlogGet             = "blog.get"
	OpOrdersList          = "orders.list"
	OpOrderCreate         = "orders.create"
	OpShippingTrack       = "shipping.track"
	OpAdminBrandCreate    = "admin.brands.create"
	OpAdminBrandUpdate    = "admin.brands.update"
	OpAdminBrandDelete    = "admin.brands.delete"
	OpAdminBannerCreate   = "admin.banners.create"
	OpAdminBannerDelete   = "admin.banners.delete"
	OpAdminSliderCreate   = "admin.sliders.create"
	OpAdminSliderDelete   = "admin.sliders.delete"
	OpAdminSubCategoryAdd = "admin.subcategories.create"
)

// DefaultEndpoints returns the API table. Path parameters use {name}.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		OpLogin:    {URL: "/auth/login", Method: http.MethodPost},
		OpRegister: {URL: "/auth/register", Method: http.MethodPost},
		OpProfile:  {URL: "/auth/profile", Method: http.MethodGet},

		OpProductSearch: {URL: "/products/search", Method: http.MethodGet},
		OpProductGet:    {URL: "/products/{id}", Method: http.MethodGet},

		OpCategories:        {URL: "/categories", Method: http.MethodGet},
		OpCategoryBySlug:    {URL: "/categories/slug/{slug}", Method: http.MethodGet},
		OpSubCategories:     {URL: "/categories/{id}/subcategories", Method: http.MethodGet},
		OpSubCategoryBySlug: {URL: "/subcategories/slug/{slug}", Method: http.MethodGet},
		OpBrands:            {URL: "/brands", Method: http.MethodGet},
		OpBrandBySlug:       {URL: "/brands/slug/{slug}", Method: http.MethodGet},

		OpCartList:   {URL: "/cart", Method: http.MethodGet},
		OpCartAdd:    {URL: "/cart", Method: http.MethodPost},
		OpCartUpdate: {URL: "/cart/{id}", Method: http.MethodPut},
		OpCartRemove: {URL: "/cart/{id}", Method: http.MethodDelete},
		OpCartClear:  {URL: "/cart", Method: http.MethodDelete},

		OpWishlistList:   {URL: "/wishlist", Method: http.MethodGet},
		OpWishlistAdd:    {URL: "/wishlist", Method: http.MethodPost},
		OpWishlistRemove: {URL: "/wishlist/{id}", Method: http.MethodDelete},
		OpWishlistCheck:  {URL: "/wishlist/check/{id}", Method: http.MethodGet},
		OpWishlistClear:  {URL: "/wishlist", Method: http.MethodDelete},

		OpCompareList:   {URL: "/compare", Method: http.MethodGet},
		OpCompareAdd:    {URL: "/compare", Method: http.MethodPost},
		OpCompareRemove: {URL: "/compare/{id}", Method: http.MethodDelete},
		OpCompareCheck:  {URL: "/compare/check/{id}", Method: http.MethodGet},
		OpCompareClear:  {URL: "/compare", Method: http.MethodDelete},

		OpCurrencyRates: {URL: "/currency/rates", Method: http.MethodGet},

		OpBannersList:   {URL: "/banners", Method: http.MethodGet},
		OpSlidersList:   {URL: "/sliders", Method: http.MethodGet},
		OpBlogList:      {URL: "/blogs", Method: http.MethodGet},
		OpBlogGet:       {URL: "/blogs/{slug}", Method: http.MethodGet},
		OpOrdersList:    {URL: "/orders", Method: http.MethodGet},
		OpOrderCreate:   {URL: "/orders", Method: http.MethodPost},
		OpShippingTrack: {URL: "/shipping/track/{trackingNumber}", Method: http.MethodGet},

		OpAdminBrandCreate:    {URL: "/admin/brands", Method: http.MethodPost},
		OpAdminBrandUpdate:    {URL: "/admin/brands/{id}", Method: http.MethodPut},
		OpAdminBrandDelete:    {URL: "/admin/brands/{id}", Method: http.MethodDelete},
		OpAdminBannerCreate:   {URL: "/admin/banners", Method: http.MethodPost},
		OpAdminBannerDelete:   {URL: "/admin/banners/{id}", Method: http.MethodDelete},
		OpAdminSliderCreate:   {URL: "/admin/sliders", Method: http.MethodPost},
		OpAdminSliderDelete:   {URL: "/admin/sliders/{id}", Method: http.MethodDelete},
		OpAdminSubCategoryAdd: {URL: "/admin/subcategories", Method: http.MethodPost},
	}
}

// Merge returns a copy of e with overrides applied. Override entries with an
// empty method keep the default method.
func (e Endpoints) Merge(overrides Endpoints) Endpoints {
	out := make(Endpoints, len(e)+len(overrides))
	for op, ep := range e {
		out[op] = ep
	}
	for op, ep := range overrides {
		if ep.Method == "" {
			ep.Method = out[op].Method
		}
		ep.Method = strings.ToUpper(ep.Method)
		out[op] = ep
	}
	return out
}

// Resolve expands {name} placeholders with escaped params.
func (ep Endpoint) Resolve(params map[string]string) (string, error) {
	path := ep.URL
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			return path, nil
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q", ep.URL)
		}
		name := path[start+1 : start+end]
		value, ok := params[name]
		if !ok || value == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingParam, name)
		}
		path = path[:start] + url.PathEscape(value) + path[start+end+1:]
	}
}

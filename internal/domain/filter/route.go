package filter

import (
	"fmt"
	"net/url"
	"strings"
)

// RouteKind says which facet, if any, the page address fixes.
type RouteKind int

const (
	RouteShop RouteKind = iota
	RouteCategory
	RouteSubCategory
	RouteBrand
)

// Route is a parsed shop path such as /category/:slug/subcategory/:slug.
type Route struct {
	Kind            RouteKind
	CategorySlug    string
	SubCategorySlug string
	BrandSlug       string
}

// ParseRoute reads a shop path. /, /shop and /search list everything.
func ParseRoute(path string) (Route, error) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p == "" {
			continue
		}
		seg, err := url.PathUnescape(p)
		if err != nil {
			return Route{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
		}
		parts = append(parts, seg)
	}

	switch {
	case len(parts) == 0:
		return Route{Kind: RouteShop}, nil
	case len(parts) == 1 && (parts[0] == "shop" || parts[0] == "search"):
		return Route{Kind: RouteShop}, nil
	case len(parts) == 2 && parts[0] == "category":
		return Route{Kind: RouteCategory, CategorySlug: parts[1]}, nil
	case len(parts) == 4 && parts[0] == "category" && parts[2] == "subcategory":
		return Route{Kind: RouteSubCategory, CategorySlug: parts[1], SubCategorySlug: parts[3]}, nil
	case len(parts) == 2 && parts[0] == "brand":
		return Route{Kind: RouteBrand, BrandSlug: parts[1]}, nil
	}
	return Route{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
}

// Path renders the route back to its address.
func (r Route) Path() string {
	switch r.Kind {
	case RouteCategory:
		return "/category/" + url.PathEscape(r.CategorySlug)
	case RouteSubCategory:
		return "/category/" + url.PathEscape(r.CategorySlug) + "/subcategory/" + url.PathEscape(r.SubCategorySlug)
	case RouteBrand:
		return "/brand/" + url.PathEscape(r.BrandSlug)
	}
	return "/shop"
}

// Locks lists the facets the route fixes.
func (r Route) Locks() []Facet {
	switch r.Kind {
	case RouteCategory:
		return []Facet{FacetCategory}
	case RouteSubCategory:
		return []Facet{FacetCategory, FacetSubCategory}
	case RouteBrand:
		return []Facet{FacetBrand}
	}
	return nil
}

// Package filter composes shop facet selections into one catalog search
// query and keeps it in step with the shareable URL.
package filter

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrLocked       = errors.New("filter is fixed by the page address")
	ErrUnknownFacet = errors.New("unknown facet")
	ErrInvalidSort  = errors.New("invalid sort")
	ErrInvalidPrice = errors.New("price must not be negative")
	ErrUnknownRoute = errors.New("unknown shop route")
)

// Facet names double as query parameter names.
type Facet string

const (
	FacetProductType Facet = "productType"
	FacetRoastLevel  Facet = "roastLevel"
	FacetIntensity   Facet = "intensity"
	FacetBlend       Facet = "blend"
	FacetBrand       Facet = "brand"
	FacetCategory    Facet = "category"
	FacetSubCategory Facet = "subCategory"
)

// MultiFacets are the toggle-in-place facets, in query order.
var MultiFacets = []Facet{FacetProductType, FacetRoastLevel, FacetIntensity, FacetBlend, FacetBrand}

// Sort orders search results.
type Sort string

const (
	SortNewest     Sort = "newest"
	SortPriceLow   Sort = "price-low"
	SortPriceHigh  Sort = "price-high"
	SortPopularity Sort = "popularity"
	SortAlphabet   Sort = "alphabet"
)

func ParseSort(s string) (Sort, error) {
	switch v := Sort(strings.TrimSpace(s)); v {
	case "":
		return SortNewest, nil
	case SortNewest, SortPriceLow, SortPriceHigh, SortPopularity, SortAlphabet:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
}

// Query parameter names that are not facets.
const (
	paramMinPrice = "minPrice"
	paramMaxPrice = "maxPrice"
	paramSort     = "sort"
	paramSearch   = "q"
	paramPage     = "page"
)

// State is one set of shop filters. Nil price bounds are unset.
type State struct {
	ProductType []string
	RoastLevel  []string
	Intensity   []string
	Blend       []string
	Brand       []string
	Category    string
	SubCategory string
	MinPrice    *float64
	MaxPrice    *float64
	Sort        Sort
	Search      string
	Page        int
}

func (s *State) values(f Facet) *[]string {
	switch f {
	case FacetProductType:
		return &s.ProductType
	case FacetRoastLevel:
		return &s.RoastLevel
	case FacetIntensity:
		return &s.Intensity
	case FacetBlend:
		return &s.Blend
	case FacetBrand:
		return &s.Brand
	}
	return nil
}

// Values returns the selected values of a multi-valued facet.
func (s State) Values(f Facet) []string {
	if v := s.values(f); v != nil {
		return slices.Clone(*v)
	}
	return nil
}

func (s State) clone() State {
	out := s
	for _, f := range MultiFacets {
		*out.values(f) = slices.Clone(*s.values(f))
	}
	if s.MinPrice != nil {
		v := *s.MinPrice
		out.MinPrice = &v
	}
	if s.MaxPrice != nil {
		v := *s.MaxPrice
		out.MaxPrice = &v
	}
	return out
}

// Query builds the search request. Empty facets are left out entirely and
// multi-valued facets are comma-joined.
func (s State) Query() url.Values {
	q := url.Values{}
	for _, f := range MultiFacets {
		if vals := compact(*s.values(f)); len(vals) > 0 {
			q.Set(string(f), strings.Join(vals, ","))
		}
	}
	if s.Category != "" {
		q.Set(string(FacetCategory), s.Category)
	}
	if s.SubCategory != "" {
		q.Set(string(FacetSubCategory), s.SubCategory)
	}
	if s.MinPrice != nil {
		q.Set(paramMinPrice, formatPrice(*s.MinPrice))
	}
	if s.MaxPrice != nil {
		q.Set(paramMaxPrice, formatPrice(*s.MaxPrice))
	}
	sort := s.Sort
	if sort == "" {
		sort = SortNewest
	}
	q.Set(paramSort, string(sort))
	if search := strings.TrimSpace(s.Search); search != "" {
		q.Set(paramSearch, search)
	}
	if s.Page > 1 {
		q.Set(paramPage, strconv.Itoa(s.Page))
	}
	return q
}

// FromQuery rebuilds a State from URL query parameters. Multi-valued facets
// accept comma-joined or repeated values. Malformed prices, sorts and pages
// are ignored.
func FromQuery(q url.Values) State {
	var s State
	for _, f := range MultiFacets {
		var vals []string
		for _, raw := range q[string(f)] {
			for _, v := range strings.Split(raw, ",") {
				if v = strings.TrimSpace(v); v != "" && !slices.Contains(vals, v) {
					vals = append(vals, v)
				}
			}
		}
		*s.values(f) = vals
	}
	s.Category = strings.TrimSpace(q.Get(string(FacetCategory)))
	s.SubCategory = strings.TrimSpace(q.Get(string(FacetSubCategory)))
	if s.Category == "" {
		s.SubCategory = ""
	}
	s.MinPrice = parsePrice(q.Get(paramMinPrice))
	s.MaxPrice = parsePrice(q.Get(paramMaxPrice))
	s.Sort, _ = ParseSort(q.Get(paramSort))
	if s.Sort == "" {
		s.Sort = SortNewest
	}
	s.Search = strings.TrimSpace(q.Get(paramSearch))
	if page, err := strconv.Atoi(q.Get(paramPage)); err == nil && page > 1 {
		s.Page = page
	}
	return s
}

func compact(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

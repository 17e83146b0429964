package filter

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/reqseq"
)

// SubCategoryLoader fetches the sub-categories of a category.
type SubCategoryLoader interface {
	SubCategories(ctx context.Context, categoryID string) ([]product.SubCategory, error)
}

// PriceRange is a price band being edited before it is applied.
type PriceRange struct {
	Min *float64
	Max *float64
}

// Model is the mutable filter state behind one shop page.
type Model struct {
	mu      sync.Mutex
	state   State
	route   Route
	locked  map[Facet]bool
	staged  PriceRange
	subs    []product.SubCategory
	loader  SubCategoryLoader
	seq     *reqseq.Sequencer
	changes int
}

// NewModel starts from initial, typically FromQuery of the current address.
func NewModel(initial State, route Route, loader SubCategoryLoader) *Model {
	if initial.Sort == "" {
		initial.Sort = SortNewest
	}
	m := &Model{
		state:  initial.clone(),
		route:  route,
		locked: make(map[Facet]bool),
		loader: loader,
		seq:    reqseq.New(),
	}
	m.staged = PriceRange{Min: copyPrice(initial.MinPrice), Max: copyPrice(initial.MaxPrice)}
	return m
}

// Fix sets a facet from the page address and locks it.
func (m *Model) Fix(f Facet, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch f {
	case FacetCategory:
		m.state.Category = value
	case FacetSubCategory:
		m.state.SubCategory = value
	case FacetBrand:
		m.state.Brand = []string{value}
	default:
		return fmt.Errorf("%w: %s cannot be fixed", ErrUnknownFacet, f)
	}
	m.locked[f] = true
	return nil
}

func (m *Model) Locked(f Facet) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked[f]
}

// State returns a copy of the committed filters.
func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *Model) Route() Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.route
}

// Version counts committed changes.
func (m *Model) Version() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changes
}

// Toggle adds value to a multi-valued facet, or removes it when present.
func (m *Model) Toggle(f Facet, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vals := m.state.values(f)
	if vals == nil {
		return fmt.Errorf("%w: %s", ErrUnknownFacet, f)
	}
	if m.locked[f] {
		return ErrLocked
	}
	if i := slices.Index(*vals, value); i >= 0 {
		*vals = slices.Delete(*vals, i, i+1)
	} else {
		*vals = append(*vals, value)
	}
	m.commitLocked()
	return nil
}

// SelectCategory switches category. The sub-category is cleared in the same
// update and the new category's sub-categories are fetched once. An empty id
// means "All": both are cleared and nothing is fetched.
func (m *Model) SelectCategory(ctx context.Context, categoryID string) error {
	m.mu.Lock()
	if m.locked[FacetCategory] {
		m.mu.Unlock()
		return ErrLocked
	}
	m.state.Category = categoryID
	m.state.SubCategory = ""
	m.subs = nil
	m.commitLocked()
	token := m.seq.Next(string(FacetCategory))
	m.mu.Unlock()

	if categoryID == "" || m.loader == nil {
		return nil
	}
	subs, err := m.loader.SubCategories(ctx, categoryID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq.Current(token) {
		m.subs = subs
	}
	return nil
}

// LoadSubCategories fetches the current category's sub-categories without
// changing any filter.
func (m *Model) LoadSubCategories(ctx context.Context) error {
	m.mu.Lock()
	categoryID := m.state.Category
	token := m.seq.Next(string(FacetCategory))
	m.mu.Unlock()

	if categoryID == "" || m.loader == nil {
		return nil
	}
	subs, err := m.loader.SubCategories(ctx, categoryID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq.Current(token) {
		m.subs = subs
	}
	return nil
}

// SubCategories returns the options for the selected category.
func (m *Model) SubCategories() []product.SubCategory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.subs)
}

// SelectSubCategory sets or, with an empty id, clears the sub-category.
func (m *Model) SelectSubCategory(subCategoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked[FacetSubCategory] {
		return ErrLocked
	}
	m.state.SubCategory = subCategoryID
	m.commitLocked()
	return nil
}

// StagePrice edits the price band without touching the committed filters.
func (m *Model) StagePrice(lo, hi *float64) error {
	if (lo != nil && *lo < 0) || (hi != nil && *hi < 0) {
		return ErrInvalidPrice
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged = PriceRange{Min: copyPrice(lo), Max: copyPrice(hi)}
	return nil
}

func (m *Model) Staged() PriceRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PriceRange{Min: copyPrice(m.staged.Min), Max: copyPrice(m.staged.Max)}
}

// ApplyPrice commits the staged price band.
func (m *Model) ApplyPrice() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.MinPrice = copyPrice(m.staged.Min)
	m.state.MaxPrice = copyPrice(m.staged.Max)
	m.commitLocked()
}

func (m *Model) SetSort(s Sort) error {
	sort, err := ParseSort(string(s))
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Sort = sort
	m.commitLocked()
	return nil
}

func (m *Model) SetSearch(q string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Search = strings.TrimSpace(q)
	m.commitLocked()
}

// SetPage moves to another result page; it is the only change that keeps
// the page number.
func (m *Model) SetPage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page < 1 {
		page = 1
	}
	m.state.Page = page
	m.changes++
}

// Reset clears every filter the page address does not fix.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := State{Sort: SortNewest}
	if m.locked[FacetCategory] {
		next.Category = m.state.Category
	}
	if m.locked[FacetSubCategory] {
		next.SubCategory = m.state.SubCategory
	}
	if m.locked[FacetBrand] {
		next.Brand = slices.Clone(m.state.Brand)
	}
	if next.Category == "" {
		m.subs = nil
	}
	m.state = next
	m.staged = PriceRange{}
	m.commitLocked()
}

// ShowCoffeeFacets reports whether roast level, intensity and blend apply:
// when no product type is chosen or a coffee type is among them.
func (m *Model) ShowCoffeeFacets() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.state.ProductType) == 0 {
		return true
	}
	return slices.Contains(m.state.ProductType, product.TypeCoffee) ||
		slices.Contains(m.state.ProductType, product.TypeCoffeeBeans)
}

// Query is the search request for the committed filters.
func (m *Model) Query() url.Values {
	return m.State().Query()
}

// URL is the shareable address: the route path plus every filter it does
// not already carry. The default sort is left out.
func (m *Model) URL() string {
	m.mu.Lock()
	route := m.route
	state := m.state.clone()
	locked := make(map[Facet]bool, len(m.locked))
	for f, v := range m.locked {
		locked[f] = v
	}
	m.mu.Unlock()

	q := state.Query()
	for f := range locked {
		q.Del(string(f))
	}
	if q.Get(paramSort) == string(SortNewest) {
		q.Del(paramSort)
	}
	if len(q) == 0 {
		return route.Path()
	}
	return route.Path() + "?" + q.Encode()
}

// commitLocked records a filter change. Any filter change returns to the
// first page.
func (m *Model) commitLocked() {
	m.state.Page = 0
	m.changes++
}

func copyPrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package filter

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coffee-storefront/internal/domain/product"
)

// mockLoader records sub-category fetches.
type mockLoader struct {
	mu    sync.Mutex
	Calls []string
	Err   error
	subs  map[string][]product.SubCategory
}

func newMockLoader() *mockLoader {
	return &mockLoader{subs: map[string][]product.SubCategory{
		"cat-coffee":    {{ID: "sub-blends", Name: "Blends"}, {ID: "sub-origin", Name: "Single Origin"}},
		"cat-equipment": {{ID: "sub-grinders", Name: "Grinders"}},
	}}
}

func (l *mockLoader) SubCategories(ctx context.Context, categoryID string) ([]product.SubCategory, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, categoryID)
	if l.Err != nil {
		return nil, l.Err
	}
	return l.subs[categoryID], nil
}

func price(v float64) *float64 { return &v }

// ============================================
// Query Tests
// ============================================

func TestState_Query(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  url.Values
	}{
		{
			name:  "empty facets are omitted",
			state: State{RoastLevel: []string{}, Brand: []string{}, Category: ""},
			want:  url.Values{"sort": {"newest"}},
		},
		{
			name: "multi-valued facets are comma-joined",
			state: State{
				ProductType: []string{"COFFEE", "COFFEE_BEANS"},
				RoastLevel:  []string{"LIGHT"},
				Brand:       []string{"b1", "b2"},
				Sort:        SortPriceLow,
			},
			want: url.Values{
				"productType": {"COFFEE,COFFEE_BEANS"},
				"roastLevel":  {"LIGHT"},
				"brand":       {"b1,b2"},
				"sort":        {"price-low"},
			},
		},
		{
			name: "one price bound without the other",
			state: State{
				Category: "cat-1",
				MinPrice: price(0),
				Search:   "  kenya ",
				Page:     3,
			},
			want: url.Values{
				"category": {"cat-1"},
				"minPrice": {"0"},
				"sort":     {"newest"},
				"q":        {"kenya"},
				"page":     {"3"},
			},
		},
		{
			name:  "blank values inside a facet are dropped",
			state: State{Blend: []string{"", ""}, MaxPrice: price(24.5)},
			want:  url.Values{"maxPrice": {"24.5"}, "sort": {"newest"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.state.Query()); diff != "" {
				t.Errorf("Query() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromQuery(t *testing.T) {
	q := url.Values{
		"roastLevel":  {"LIGHT,DARK", "DARK", "MEDIUM"},
		"brand":       {""},
		"category":    {"cat-1"},
		"subCategory": {"sub-1"},
		"minPrice":    {"-4"},
		"maxPrice":    {"30"},
		"sort":        {"bogus"},
		"q":           {"house"},
		"page":        {"2"},
	}

	got := FromQuery(q)

	want := State{
		RoastLevel:  []string{"LIGHT", "DARK", "MEDIUM"},
		Category:    "cat-1",
		SubCategory: "sub-1",
		MaxPrice:    price(30),
		Sort:        SortNewest,
		Search:      "house",
		Page:        2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromQuery() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromQuery_SubCategoryNeedsCategory(t *testing.T) {
	got := FromQuery(url.Values{"subCategory": {"sub-1"}})
	assert.Empty(t, got.SubCategory)
}

func TestQuery_RoundTrip(t *testing.T) {
	state := State{
		ProductType: []string{"COFFEE"},
		Intensity:   []string{"8", "9"},
		Category:    "cat-1",
		MinPrice:    price(5),
		Sort:        SortAlphabet,
		Page:        4,
	}

	if diff := cmp.Diff(state, FromQuery(state.Query())); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSort(t *testing.T) {
	for _, s := range []string{"newest", "price-low", "price-high", "popularity", "alphabet"} {
		got, err := ParseSort(s)
		require.NoError(t, err)
		assert.Equal(t, Sort(s), got)
	}
	got, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortNewest, got)

	_, err = ParseSort("cheapest")
	assert.ErrorIs(t, err, ErrInvalidSort)
}

// ============================================
// Route Tests
// ============================================

func TestParseRoute(t *testing.T) {
	tests := []struct {
		path    string
		want    Route
		wantErr bool
	}{
		{"/", Route{Kind: RouteShop}, false},
		{"/shop?q=x", Route{Kind: RouteShop}, false},
		{"/search", Route{Kind: RouteShop}, false},
		{"/category/coffee", Route{Kind: RouteCategory, CategorySlug: "coffee"}, false},
		{"/category/coffee/subcategory/blends/", Route{Kind: RouteSubCategory, CategorySlug: "coffee", SubCategorySlug: "blends"}, false},
		{"/brand/origin%20roasters", Route{Kind: RouteBrand, BrandSlug: "origin roasters"}, false},
		{"/category", Route{}, true},
		{"/cart", Route{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParseRoute(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownRoute)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoute_PathAndLocks(t *testing.T) {
	r := Route{Kind: RouteSubCategory, CategorySlug: "coffee", SubCategorySlug: "blends"}
	assert.Equal(t, "/category/coffee/subcategory/blends", r.Path())
	assert.Equal(t, []Facet{FacetCategory, FacetSubCategory}, r.Locks())

	assert.Equal(t, "/shop", Route{}.Path())
	assert.Nil(t, Route{}.Locks())
	assert.Equal(t, []Facet{FacetBrand}, Route{Kind: RouteBrand, BrandSlug: "x"}.Locks())
}

// ============================================
// Model Tests
// ============================================

func TestModel_Toggle(t *testing.T) {
	m := NewModel(State{}, Route{}, nil)

	require.NoError(t, m.Toggle(FacetRoastLevel, "LIGHT"))
	require.NoError(t, m.Toggle(FacetRoastLevel, "DARK"))
	require.NoError(t, m.Toggle(FacetRoastLevel, "LIGHT"))

	assert.Equal(t, []string{"DARK"}, m.State().RoastLevel)

	require.NoError(t, m.Toggle(FacetRoastLevel, "DARK"))
	_, present := m.Query()["roastLevel"]
	assert.False(t, present)
}

func TestModel_Toggle_UnknownFacet(t *testing.T) {
	m := NewModel(State{}, Route{}, nil)

	assert.ErrorIs(t, m.Toggle(FacetCategory, "x"), ErrUnknownFacet)
	assert.ErrorIs(t, m.Toggle("colour", "red"), ErrUnknownFacet)
}

func TestModel_SelectCategory_Cascade(t *testing.T) {
	loader := newMockLoader()
	m := NewModel(State{Category: "cat-equipment", SubCategory: "sub-grinders"}, Route{}, loader)

	require.NoError(t, m.SelectCategory(context.Background(), "cat-coffee"))

	state := m.State()
	assert.Equal(t, "cat-coffee", state.Category)
	assert.Empty(t, state.SubCategory)
	assert.Equal(t, []string{"cat-coffee"}, loader.Calls)
	assert.Len(t, m.SubCategories(), 2)

	require.NoError(t, m.SelectSubCategory("sub-blends"))
	require.NoError(t, m.SelectCategory(context.Background(), "cat-equipment"))
	assert.Empty(t, m.State().SubCategory)
	assert.Equal(t, []string{"cat-coffee", "cat-equipment"}, loader.Calls)
}

func TestModel_SelectCategory_AllClearsWithoutFetch(t *testing.T) {
	loader := newMockLoader()
	m := NewModel(State{Category: "cat-coffee", SubCategory: "sub-blends"}, Route{}, loader)

	require.NoError(t, m.SelectCategory(context.Background(), ""))

	state := m.State()
	assert.Empty(t, state.Category)
	assert.Empty(t, state.SubCategory)
	assert.Empty(t, loader.Calls)
	assert.Empty(t, m.SubCategories())
}

func TestModel_SelectCategory_FetchFailureKeepsSelection(t *testing.T) {
	loader := newMockLoader()
	loader.Err = errors.New("timeout")
	m := NewModel(State{}, Route{}, loader)

	err := m.SelectCategory(context.Background(), "cat-coffee")

	assert.EqualError(t, err, "timeout")
	assert.Equal(t, "cat-coffee", m.State().Category)
	assert.Empty(t, m.SubCategories())
}

// slowLoader blocks fetches for one category until released.
type slowLoader struct {
	*mockLoader
	block   string
	entered chan struct{}
	release chan struct{}
}

func (l *slowLoader) SubCategories(ctx context.Context, categoryID string) ([]product.SubCategory, error) {
	subs, err := l.mockLoader.SubCategories(ctx, categoryID)
	if categoryID == l.block {
		close(l.entered)
		<-l.release
	}
	return subs, err
}

func TestModel_SelectCategory_StaleFetchDiscarded(t *testing.T) {
	loader := &slowLoader{mockLoader: newMockLoader(), block: "cat-coffee", entered: make(chan struct{}), release: make(chan struct{})}
	m := NewModel(State{}, Route{}, loader)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- m.SelectCategory(ctx, "cat-coffee") }()
	<-loader.entered
	require.NoError(t, m.SelectCategory(ctx, "cat-equipment"))
	close(loader.release)
	require.NoError(t, <-done)

	subs := m.SubCategories()
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-grinders", subs[0].ID)
}

func TestModel_LockedFacets(t *testing.T) {
	loader := newMockLoader()
	route := Route{Kind: RouteCategory, CategorySlug: "coffee"}
	m := NewModel(State{}, route, loader)
	require.NoError(t, m.Fix(FacetCategory, "cat-coffee"))

	assert.ErrorIs(t, m.SelectCategory(context.Background(), "cat-equipment"), ErrLocked)
	assert.ErrorIs(t, m.SelectCategory(context.Background(), ""), ErrLocked)
	assert.Equal(t, "cat-coffee", m.State().Category)
	assert.Empty(t, loader.Calls)

	// the sub-category stays free under a category route
	require.NoError(t, m.SelectSubCategory("sub-blends"))

	m.Reset()
	assert.Equal(t, "cat-coffee", m.State().Category)
	assert.Empty(t, m.State().SubCategory)
}

func TestModel_LockedBrand(t *testing.T) {
	m := NewModel(State{}, Route{Kind: RouteBrand, BrandSlug: "origin"}, nil)
	require.NoError(t, m.Fix(FacetBrand, "brand-origin"))

	assert.ErrorIs(t, m.Toggle(FacetBrand, "brand-origin"), ErrLocked)
	assert.ErrorIs(t, m.Toggle(FacetBrand, "brand-other"), ErrLocked)
	require.NoError(t, m.Toggle(FacetRoastLevel, "DARK"))

	assert.True(t, m.Locked(FacetBrand))
	assert.False(t, m.Locked(FacetCategory))
	assert.Equal(t, "brand-origin", m.Query().Get("brand"))
	assert.Equal(t, "/brand/origin?roastLevel=DARK", m.URL())
}

func TestModel_Fix_RejectsMultiFacet(t *testing.T) {
	m := NewModel(State{}, Route{}, nil)
	assert.ErrorIs(t, m.Fix(FacetBlend, "x"), ErrUnknownFacet)
}

func TestModel_StagedPrice(t *testing.T) {
	m := NewModel(State{}, Route{}, nil)

	require.NoError(t, m.StagePrice(price(10), nil))
	assert.Nil(t, m.State().MinPrice, "staging does not commit")
	assert.Empty(t, m.Query().Get("minPrice"))

	m.ApplyPrice()
	assert.Equal(t, "10", m.Query().Get("minPrice"))
	_, hasMax := m.Query()["maxPrice"]
	assert.False(t, hasMax)

	assert.ErrorIs(t, m.StagePrice(nil, price(-1)), ErrInvalidPrice)
	assert.Equal(t, 10.0, *m.Staged().Min)
}

func TestModel_FilterChangeReturnsToFirstPage(t *testing.T) {
	m := NewModel(State{}, Route{}, nil)
	m.SetPage(3)
	assert.Equal(t, "3", m.Query().Get("page"))

	require.NoError(t, m.Toggle(FacetBlend, "ARABICA"))
	assert.Empty(t, m.Query().Get("page"))

	m.SetPage(0)
	assert.Equal(t, 1, m.State().Page)
}

func TestModel_SortSearchAndReset(t *testing.T) {
	m := NewModel(State{}, Route{}, nil)
	require.NoError(t, m.SetSort(SortPriceHigh))
	assert.ErrorIs(t, m.SetSort("random"), ErrInvalidSort)
	m.SetSearch("  ethiopia ")
	require.NoError(t, m.StagePrice(price(1), price(2)))
	m.ApplyPrice()

	want := url.Values{
		"sort":     {"price-high"},
		"q":        {"ethiopia"},
		"minPrice": {"1"},
		"maxPrice": {"2"},
	}
	if diff := cmp.Diff(want, m.Query()); diff != "" {
		t.Errorf("Query() mismatch (-want +got):\n%s", diff)
	}

	m.Reset()
	if diff := cmp.Diff(url.Values{"sort": {"newest"}}, m.Query()); diff != "" {
		t.Errorf("Query() after Reset mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, PriceRange{}, m.Staged())
}

func TestModel_ShowCoffeeFacets(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  bool
	}{
		{"no type chosen", nil, true},
		{"coffee", []string{product.TypeCoffee}, true},
		{"beans among others", []string{"EQUIPMENT", product.TypeCoffeeBeans}, true},
		{"equipment only", []string{"EQUIPMENT"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(State{ProductType: tt.types}, Route{}, nil)
			assert.Equal(t, tt.want, m.ShowCoffeeFacets())
		})
	}
}

func TestModel_URL(t *testing.T) {
	m := NewModel(State{}, Route{Kind: RouteSubCategory, CategorySlug: "coffee", SubCategorySlug: "blends"}, nil)
	require.NoError(t, m.Fix(FacetCategory, "cat-coffee"))
	require.NoError(t, m.Fix(FacetSubCategory, "sub-blends"))

	assert.Equal(t, "/category/coffee/subcategory/blends", m.URL())

	m.SetSearch("dark")
	m.SetPage(2)
	assert.Equal(t, "/category/coffee/subcategory/blends?page=2&q=dark", m.URL())
}

func TestModel_StateIsACopy(t *testing.T) {
	m := NewModel(State{Brand: []string{"b1"}}, Route{}, nil)

	s := m.State()
	s.Brand[0] = "mutated"

	assert.Equal(t, []string{"b1"}, m.State().Brand)
}

func TestModel_Version(t *testing.T) {
	m := NewModel(State{}, Route{}, nil)
	v := m.Version()

	m.SetSearch("x")
	assert.Equal(t, v+1, m.Version())
}

// Package shop drives the shop and search pages: it resolves the page
// address into locked filters, loads the option lists and runs the search.
package shop

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/coffee-storefront/internal/domain/filter"
	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/notify"
	"github.com/example/coffee-storefront/internal/reqseq"
)

const searchKey = "search"

type Controller struct {
	catalog  Catalog
	notifier notify.Notifier
	logger   *zap.Logger
	seq      *reqseq.Sequencer

	mu         sync.Mutex
	model      *filter.Model
	categories []product.Category
	brands     []product.Brand
	page       product.Page
	loading    bool
}

func NewController(catalog Catalog, notifier notify.Notifier, logger *zap.Logger) *Controller {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		catalog:  catalog,
		notifier: notifier,
		logger:   logger.Named("shop"),
		seq:      reqseq.New(),
		model:    filter.NewModel(filter.State{}, filter.Route{}, catalog),
	}
}

// Open navigates to path?query. Slugs in the path are resolved to ids and
// their facets locked; an unknown slug fails the navigation. Option lists
// load in parallel with the sub-categories, then the search runs.
func (c *Controller) Open(ctx context.Context, path string, query url.Values) error {
	route, err := filter.ParseRoute(path)
	if err != nil {
		return err
	}
	model := filter.NewModel(filter.FromQuery(query), route, c.catalog)
	if err := c.resolve(ctx, route, model); err != nil {
		c.logger.Warn("failed to resolve shop route", zap.String("path", path), zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.model = model
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.loadCategories(gctx)
		return nil
	})
	g.Go(func() error {
		c.loadBrands(gctx)
		return nil
	})
	g.Go(func() error {
		if err := model.LoadSubCategories(gctx); err != nil {
			c.optionsFailed("sub-categories", err)
		}
		return nil
	})
	_ = g.Wait()

	return c.Refresh(ctx)
}

func (c *Controller) resolve(ctx context.Context, route filter.Route, model *filter.Model) error {
	switch route.Kind {
	case filter.RouteCategory, filter.RouteSubCategory:
		cat, err := c.catalog.CategoryBySlug(ctx, route.CategorySlug)
		if err != nil {
			return fmt.Errorf("category %q: %w", route.CategorySlug, err)
		}
		if err := model.Fix(filter.FacetCategory, cat.ID); err != nil {
			return err
		}
		if route.Kind == filter.RouteCategory {
			return nil
		}
		sub, err := c.catalog.SubCategoryBySlug(ctx, route.SubCategorySlug)
		if err != nil {
			return fmt.Errorf("sub-category %q: %w", route.SubCategorySlug, err)
		}
		if sub.Category.ID != "" && sub.Category.ID != cat.ID {
			return fmt.Errorf("%w: sub-category %q is not in category %q",
				filter.ErrUnknownRoute, route.SubCategorySlug, route.CategorySlug)
		}
		return model.Fix(filter.FacetSubCategory, sub.ID)
	case filter.RouteBrand:
		brand, err := c.catalog.BrandBySlug(ctx, route.BrandSlug)
		if err != nil {
			return fmt.Errorf("brand %q: %w", route.BrandSlug, err)
		}
		return model.Fix(filter.FacetBrand, brand.ID)
	}
	return nil
}

func (c *Controller) loadCategories(ctx context.Context) {
	cats, err := c.catalog.Categories(ctx)
	if err != nil {
		c.optionsFailed("categories", err)
		return
	}
	c.mu.Lock()
	c.categories = cats
	c.mu.Unlock()
}

func (c *Controller) loadBrands(ctx context.Context) {
	brands, err := c.catalog.Brands(ctx)
	if err != nil {
		c.optionsFailed("brands", err)
		return
	}
	c.mu.Lock()
	c.brands = brands
	c.mu.Unlock()
}

// optionsFailed toasts and keeps the previous option list.
func (c *Controller) optionsFailed(list string, err error) {
	c.logger.Warn("failed to load options", zap.String("list", list), zap.Error(err))
	notify.Failure(c.notifier, err)
}

// Refresh runs the search for the current filters. A response that arrives
// after a newer search started is dropped. On failure the previous products
// stay and the error is returned.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	model := c.model
	c.loading = true
	token := c.seq.Next(searchKey)
	c.mu.Unlock()

	query := model.Query()
	page, err := c.catalog.Search(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seq.Current(token) {
		c.logger.Debug("discarding stale search", zap.String("query", query.Encode()))
		return nil
	}
	c.loading = false
	if err != nil {
		c.logger.Warn("search failed", zap.String("query", query.Encode()), zap.Error(err))
		return err
	}
	c.page = page
	return nil
}

// Apply changes the filters through fn and searches again.
func (c *Controller) Apply(ctx context.Context, fn func(m *filter.Model) error) error {
	if err := fn(c.Model()); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// SelectCategory cascades the category change and searches again. A failed
// sub-category fetch is toasted; the search still runs.
func (c *Controller) SelectCategory(ctx context.Context, categoryID string) error {
	if err := c.Model().SelectCategory(ctx, categoryID); err != nil {
		if errors.Is(err, filter.ErrLocked) {
			return err
		}
		c.optionsFailed("sub-categories", err)
	}
	return c.Refresh(ctx)
}

func (c *Controller) Model() *filter.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func (c *Controller) Products() product.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.page
	p.Products = slices.Clone(p.Products)
	return p
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) Categories() []product.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.categories)
}

func (c *Controller) Brands() []product.Brand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.brands)
}

func (c *Controller) SubCategories() []product.SubCategory {
	return c.Model().SubCategories()
}

// URL is the shareable address of the current view.
func (c *Controller) URL() string {
	return c.Model().URL()
}

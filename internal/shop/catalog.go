package shop

import (
	"context"
	"net/url"

	"github.com/example/coffee-storefront/internal/api"
	"github.com/example/coffee-storefront/internal/domain/product"
)

// Catalog is the read side of the storefront API the shop page needs.
type Catalog interface {
	Categories(ctx context.Context) ([]product.Category, error)
	Brands(ctx context.Context) ([]product.Brand, error)
	SubCategories(ctx context.Context, categoryID string) ([]product.SubCategory, error)
	CategoryBySlug(ctx context.Context, slug string) (product.Category, error)
	SubCategoryBySlug(ctx context.Context, slug string) (product.SubCategory, error)
	BrandBySlug(ctx context.Context, slug string) (product.Brand, error)
	Search(ctx context.Context, query url.Values) (product.Page, error)
}

// APICatalog reads the catalog over the REST API.
type APICatalog struct {
	client *api.Client
}

func NewAPICatalog(client *api.Client) *APICatalog {
	return &APICatalog{client: client}
}

func (c *APICatalog) Categories(ctx context.Context) ([]product.Category, error) {
	var out []product.Category
	err := c.client.Do(ctx, api.Call{Op: api.OpCategories}, &out)
	return out, err
}

func (c *APICatalog) Brands(ctx context.Context) ([]product.Brand, error) {
	var out []product.Brand
	err := c.client.Do(ctx, api.Call{Op: api.OpBrands}, &out)
	return out, err
}

func (c *APICatalog) SubCategories(ctx context.Context, categoryID string) ([]product.SubCategory, error) {
	var out []product.SubCategory
	err := c.client.Do(ctx, api.Call{
		Op:     api.OpSubCategories,
		Params: map[string]string{"id": categoryID},
	}, &out)
	return out, err
}

func (c *APICatalog) CategoryBySlug(ctx context.Context, slug string) (product.Category, error) {
	var out product.Category
	err := c.client.Do(ctx, api.Call{
		Op:     api.OpCategoryBySlug,
		Params: map[string]string{"slug": slug},
	}, &out)
	return out, err
}

func (c *APICatalog) SubCategoryBySlug(ctx context.Context, slug string) (product.SubCategory, error) {
	var out product.SubCategory
	err := c.client.Do(ctx, api.Call{
		Op:     api.OpSubCategoryBySlug,
		Params: map[string]string{"slug": slug},
	}, &out)
	return out, err
}

func (c *APICatalog) BrandBySlug(ctx context.Context, slug string) (product.Brand, error) {
	var out product.Brand
	err := c.client.Do(ctx, api.Call{
		Op:     api.OpBrandBySlug,
		Params: map[string]string{"slug": slug},
	}, &out)
	return out, err
}

func (c *APICatalog) Search(ctx context.Context, query url.Values) (product.Page, error) {
	var out product.Page
	err := c.client.Do(ctx, api.Call{Op: api.OpProductSearch, Query: query}, &out)
	return out, err
}

// Product fetches one product by id.
func (c *APICatalog) Product(ctx context.Context, id string) (product.Product, error) {
	var out product.Product
	err := c.client.Do(ctx, api.Call{
		Op:     api.OpProductGet,
		Params: map[string]string{"id": id},
	}, &out)
	return out, err
}

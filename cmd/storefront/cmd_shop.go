package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/coffee-storefront/internal/domain/filter"
	"github.com/example/coffee-storefront/internal/pricing"
)

type shopFlags struct {
	productType []string
	roastLevel  []string
	intensity   []string
	blend       []string
	brand       []string
	category    string
	subCategory string
	minPrice    float64
	maxPrice    float64
	sort        string
	search      string
	page        int
}

// query renders the flags the way the shop page reads its URL.
func (f shopFlags) query(cmd *cobra.Command) url.Values {
	q := url.Values{}
	multi := map[filter.Facet][]string{
		filter.FacetProductType: f.productType,
		filter.FacetRoastLevel:  f.roastLevel,
		filter.FacetIntensity:   f.intensity,
		filter.FacetBlend:       f.blend,
		filter.FacetBrand:       f.brand,
	}
	for facet, vals := range multi {
		if len(vals) > 0 {
			q.Set(string(facet), strings.Join(vals, ","))
		}
	}
	if f.category != "" {
		q.Set(string(filter.FacetCategory), f.category)
	}
	if f.subCategory != "" {
		q.Set(string(filter.FacetSubCategory), f.subCategory)
	}
	if cmd.Flags().Changed("min-price") {
		q.Set("minPrice", strconv.FormatFloat(f.minPrice, 'f', -1, 64))
	}
	if cmd.Flags().Changed("max-price") {
		q.Set("maxPrice", strconv.FormatFloat(f.maxPrice, 'f', -1, 64))
	}
	if f.sort != "" {
		q.Set("sort", f.sort)
	}
	if f.search != "" {
		q.Set("q", f.search)
	}
	if f.page > 1 {
		q.Set("page", strconv.Itoa(f.page))
	}
	return q
}

func newShopCmd(c *cli) *cobra.Command {
	var f shopFlags
	cmd := &cobra.Command{
		Use:   "shop [path]",
		Short: "Browse the catalog with filters",
		Long: `Browse the catalog. path is one of /shop, /category/<slug>,
/category/<slug>/subcategory/<slug> or /brand/<slug>; facets named by the
path cannot be changed by flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.sort != "" {
				if _, err := filter.ParseSort(f.sort); err != nil {
					return err
				}
			}
			path := "/shop"
			if len(args) == 1 {
				path = args[0]
			}

			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Shop.Open(cmd.Context(), path, f.query(cmd)); err != nil {
				return err
			}

			page := a.Shop.Products()
			fmt.Fprintln(c.out, a.Shop.URL())
			if len(page.Products) == 0 {
				fmt.Fprintln(c.out, "No products match these filters")
				return nil
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPRODUCT\tTYPE\tROAST\tPRICE")
			for _, p := range page.Products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.ProductType, p.RoastLevel,
					a.Currency.Format(p.UnitPrice(pricing.Regular)))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Page %d of %d, %d products\n", max(page.Page, 1), max(page.Pages, 1), page.Total)
			if !a.Shop.Model().ShowCoffeeFacets() {
				fmt.Fprintln(c.out, "Roast, intensity and blend filters do not apply to this selection")
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&f.productType, "type", nil, "product types, e.g. COFFEE,COFFEE_BEANS")
	fl.StringSliceVar(&f.roastLevel, "roast", nil, "roast levels")
	fl.StringSliceVar(&f.intensity, "intensity", nil, "intensities")
	fl.StringSliceVar(&f.blend, "blend", nil, "blend kinds")
	fl.StringSliceVar(&f.brand, "brand", nil, "brand ids")
	fl.StringVar(&f.category, "category", "", "category id")
	fl.StringVar(&f.subCategory, "subcategory", "", "sub-category id")
	fl.Float64Var(&f.minPrice, "min-price", 0, "lowest price")
	fl.Float64Var(&f.maxPrice, "max-price", 0, "highest price")
	fl.StringVar(&f.sort, "sort", "", "newest, price-low, price-high, popularity or alphabet")
	fl.StringVarP(&f.search, "query", "q", "", "search text")
	fl.IntVar(&f.page, "page", 1, "result page")
	return cmd
}

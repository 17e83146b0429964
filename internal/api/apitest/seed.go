package apitest

import "github.com/example/coffee-storefront/internal/domain/product"

// Demo account created by Seed.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "coffee-lover"
)

// Seed fills b with a small coffee catalog and a demo account.
func Seed(b *Backend) error {
	b.SetRates(map[string]float64{"EUR": 0.92, "GBP": 0.79, "JPY": 151.2})

	coffee := product.Category{ID: "cat-coffee", Name: "Coffee", Slug: "coffee"}
	equipment := product.Category{ID: "cat-equipment", Name: "Equipment", Slug: "equipment"}
	b.AddCategory(coffee)
	b.AddCategory(equipment)

	b.AddSubCategory(product.SubCategory{ID: "sub-single-origin", Name: "Single Origin", Slug: "single-origin", Category: product.Ref{ID: coffee.ID}})
	b.AddSubCategory(product.SubCategory{ID: "sub-blends", Name: "Blends", Slug: "blends", Category: product.Ref{ID: coffee.ID}})
	b.AddSubCategory(product.SubCategory{ID: "sub-grinders", Name: "Grinders", Slug: "grinders", Category: product.Ref{ID: equipment.ID}})

	origin := product.Brand{ID: "brand-origin", Name: "Origin Roasters", Slug: "origin-roasters"}
	alpine := product.Brand{ID: "brand-alpine", Name: "Alpine Tools", Slug: "alpine-tools"}
	b.AddBrand(origin)
	b.AddBrand(alpine)

	products := []product.Product{
		{
			ID: "p-yirgacheffe", Name: "Ethiopia Yirgacheffe", Slug: "ethiopia-yirgacheffe",
			Images: []string{"/img/yirgacheffe.jpg"}, Price: 18, Discount: 10,
			Price3WeeksDelivery: 16, Price5WeeksDelivery: 15,
			ProductType: product.TypeCoffeeBeans, RoastLevel: "light", Intensity: "4", Blend: "single-origin",
			Brand: product.Ref{ID: origin.ID, Name: origin.Name}, Category: product.Ref{ID: coffee.ID},
			SubCategory: product.Ref{ID: "sub-single-origin"}, Stock: 40,
		},
		{
			ID: "p-house-blend", Name: "House Espresso Blend", Slug: "house-espresso-blend",
			Images: []string{"/img/house.jpg"}, Price: 14,
			ProductType: product.TypeCoffee, RoastLevel: "dark", Intensity: "9", Blend: "blend",
			Brand: product.Ref{ID: origin.ID, Name: origin.Name}, Category: product.Ref{ID: coffee.ID},
			SubCategory: product.Ref{ID: "sub-blends"}, Stock: 100,
		},
		{
			ID: "p-colombia", Name: "Colombia Huila", Slug: "colombia-huila",
			Images: []string{"/img/huila.jpg"}, Price: 16, Price3WeeksDelivery: 14.5,
			ProductType: product.TypeCoffeeBeans, RoastLevel: "medium", Intensity: "6", Blend: "single-origin",
			Brand: product.Ref{ID: origin.ID, Name: origin.Name}, Category: product.Ref{ID: coffee.ID},
			SubCategory: product.Ref{ID: "sub-single-origin"}, Stock: 25,
		},
		{
			ID: "p-hand-grinder", Name: "Hand Grinder C40", Slug: "hand-grinder-c40",
			Images: []string{"/img/grinder.jpg"}, Price: 250, Discount: 5,
			ProductType: "EQUIPMENT",
			Brand:       product.Ref{ID: alpine.ID, Name: alpine.Name}, Category: product.Ref{ID: equipment.ID},
			SubCategory: product.Ref{ID: "sub-grinders"}, Stock: 5,
		},
		{
			ID: "p-decaf", Name: "Swiss Water Decaf", Slug: "swiss-water-decaf",
			Images: []string{"/img/decaf.jpg"}, Price: 15,
			ProductType: product.TypeCoffee, RoastLevel: "medium", Intensity: "5", Blend: "single-origin",
			Brand: product.Ref{ID: origin.ID, Name: origin.Name}, Category: product.Ref{ID: coffee.ID},
			SubCategory: product.Ref{ID: "sub-single-origin"}, Stock: 30,
		},
	}
	for _, p := range products {
		b.AddProduct(p)
	}

	_, err := b.AddUser(DemoEmail, DemoPassword, "customer")
	return err
}

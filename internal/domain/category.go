package domain

// Category is one entry of the fixed classification taxonomy.
type Category struct {
	Name        string
	DisplayName string
	Icon        string
	Color       string // HEX
}

// FallbackCategory is assigned when the classifier omits a category.
const FallbackCategory = "ideas"

// taxonomy is the fixed category catalog. The classifier may only ever
// resolve labels against this set; unknown labels leave a memory uncategorized.
var taxonomy = []Category{
	{Name: "movies", DisplayName: "Movies & Shows", Icon: "film", Color: "#E53E3E"},
	{Name: "books", DisplayName: "Books & Articles", Icon: "book", Color: "#3182CE"},
	{Name: "places", DisplayName: "Places", Icon: "map-pin", Color: "#38A169"},
	{Name: "ideas", DisplayName: "Ideas", Icon: "bulb", Color: "#D69E2E"},
	{Name: "recipes", DisplayName: "Recipes", Icon: "utensils", Color: "#DD6B20"},
	{Name: "products", DisplayName: "Products", Icon: "shopping-bag", Color: "#805AD5"},
}

// Categories returns the full taxonomy in catalog order.
func Categories() []Category {
	out := make([]Category, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// CategoryByName resolves a taxonomy label.
func CategoryByName(name string) (Category, bool) {
	for _, c := range taxonomy {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// IsKnownCategory reports whether name belongs to the taxonomy.
func IsKnownCategory(name string) bool {
	_, ok := CategoryByName(name)
	return ok
}

package enums

import "fmt"

// Category groups catalog products for filtering.
type Category string

const (
	CategoryElectric Category = "electric"
	CategoryManual   Category = "manual"
	CategoryAuto     Category = "auto"
)

var validCategories = []Category{
	CategoryElectric,
	CategoryManual,
	CategoryAuto,
}

var categoryLabels = map[Category]string{
	CategoryElectric: "Électrique",
	CategoryManual:   "Manuel",
	CategoryAuto:     "Automobile",
}

// Categories returns every known category in display order.
func Categories() []Category {
	out := make([]Category, len(validCategories))
	copy(out, validCategories)
	return out
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// Label returns the storefront display label, falling back to the raw value.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// IsValid reports whether the value is a known Category.
func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCategory converts raw input into a Category.
func ParseCategory(value string) (Category, error) {
	for _, candidate := range validCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", value)
}

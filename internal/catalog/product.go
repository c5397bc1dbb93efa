package catalog

import "github.com/toolshop/storefront/pkg/enums"

// Product is a read-only catalog entry. Prices are whole FCFA units.
type Product struct {
	ID          int               `json:"id" validate:"required,gt=0"`
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"desc" validate:"max=2000"`
	Price       int64             `json:"price" validate:"gte=0"`
	Category    enums.Category    `json:"category" validate:"required,category"`
	Rating      int               `json:"rating" validate:"gte=0,lte=5"`
	Badge       string            `json:"badge,omitempty" validate:"max=40"`
	Image       string            `json:"image,omitempty"`
	Images      []string          `json:"images,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
}

// Clone returns a deep copy so callers cannot alias catalog slices or maps.
func (p Product) Clone() Product {
	out := p
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	if p.Specs != nil {
		out.Specs = make(map[string]string, len(p.Specs))
		for k, v := range p.Specs {
			out.Specs[k] = v
		}
	}
	return out
}

// CategoryView is a category with its display label and product count.
type CategoryView struct {
	Category enums.Category `json:"category"`
	Label    string         `json:"label"`
	Count    int            `json:"count"`
}

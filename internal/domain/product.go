package domain

// Product is an immutable catalog record. Name is the case-sensitive
// display form and is unique within a catalog; Keywords hold the
// normalized trigger strings used for message matching.
type Product struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       string   `json:"price"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// PriceNotAvailable is the display marker used when a product carries
// no price.
const PriceNotAvailable = "INR N/A"

// DisplayPrice returns the product price or the not-available marker.
func (p Product) DisplayPrice() string {
	if p.Price == "" {
		return PriceNotAvailable
	}
	return p.Price
}

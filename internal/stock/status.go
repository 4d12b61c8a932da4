package stock

// Status is the stock availability inferred from a product page.
type Status int

// Known statuses. NotFound is the zero value so an unmatched page never
// reads as available.
const (
	NotFound Status = iota
	SoldOut
	ComingSoon
	AddToCart
)

// String returns the page marker text for the status.
func (s Status) String() string {
	switch s {
	case SoldOut:
		return "Sold Out"
	case ComingSoon:
		return "Coming Soon"
	case AddToCart:
		return "Add to Cart"
	default:
		return "Not Found"
	}
}

// Key returns a stable snake_case identifier suitable for metric labels.
func (s Status) Key() string {
	switch s {
	case SoldOut:
		return "sold_out"
	case ComingSoon:
		return "coming_soon"
	case AddToCart:
		return "add_to_cart"
	default:
		return "not_found"
	}
}

// MarshalText encodes the status as its marker text.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

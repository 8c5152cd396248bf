package domain

import "strings"

// PrintOrder is one physical order handed to the print provider.
type PrintOrder struct {
	SourceSessionID string          `json:"sourceSessionId"`
	SKU             string          `json:"sku"`
	ImageURL        string          `json:"imageUrl"`
	Quantity        int64           `json:"quantity"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	Email           string          `json:"email"`
	Address         ShippingAddress `json:"address"`
}

// SplitName splits a full name on the first space. "Mary Ann Smith" becomes
// ("Mary", "Ann Smith"); single-word and empty names fall back to placeholders.
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	first, last, _ = strings.Cut(full, " ")
	last = strings.TrimSpace(last)
	if first == "" {
		first = "Customer"
	}
	if last == "" {
		last = "-"
	}
	return first, last
}

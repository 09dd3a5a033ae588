package pricing

import "strings"

// Package is a purchasable credit bundle. Amounts are in the smallest
// currency unit so they can be passed to the payment provider unchanged.
type Package struct {
	ID          string
	Credits     int64
	AmountCents int64
	Currency    string
	Name        string
}

var packages = []Package{
	{ID: "starter", Credits: 5, AmountCents: 300, Currency: "usd", Name: "5 GitRead credits"},
	{ID: "standard", Credits: 20, AmountCents: 900, Currency: "usd", Name: "20 GitRead credits"},
	{ID: "bulk", Credits: 50, AmountCents: 1800, Currency: "usd", Name: "50 GitRead credits"},
}

// Packages returns the catalog in display order.
func Packages() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}

// FindPackage looks a package up by its ID. The second return value reports
// whether the ID is part of the catalog.
func FindPackage(id string) (Package, bool) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	for _, p := range packages {
		if p.ID == normalized {
			return p, true
		}
	}
	return Package{}, false
}

package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// ProductFilter применяется одинаково на сервере и к локальному кэшу
type ProductFilter struct {
	Search     string
	Category   string
	ActiveOnly bool
}

func (f ProductFilter) Match(p Product) bool {
	if f.ActiveOnly && !p.Active {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.SKU), q) {
			return false
		}
	}
	return true
}

func (f ProductFilter) Query() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.ActiveOnly {
		v.Set("active", strconv.FormatBool(true))
	}
	return v
}

type CustomerFilter struct {
	Search string
}

func (f CustomerFilter) Match(c Customer) bool {
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Phone), q) ||
		strings.Contains(strings.ToLower(c.Email), q)
}

func (f CustomerFilter) Query() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}

func FilterProducts(products []Product, f ProductFilter) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func FilterCustomers(customers []Customer, f CustomerFilter) []Customer {
	out := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductFilter_Match(t *testing.T) {
	tea := Product{ID: 1, Name: "Green Tea", SKU: "TEA-01", Category: "drinks", Active: true}
	old := Product{ID: 2, Name: "Old Coffee", SKU: "COF-99", Category: "Drinks", Active: false}

	tests := []struct {
		name   string
		filter ProductFilter
		want   []int64
	}{
		{name: "empty filter", filter: ProductFilter{}, want: []int64{1, 2}},
		{name: "search by name", filter: ProductFilter{Search: "tea"}, want: []int64{1}},
		{name: "search by sku", filter: ProductFilter{Search: "cof-"}, want: []int64{2}},
		{name: "category ignores case", filter: ProductFilter{Category: "DRINKS"}, want: []int64{1, 2}},
		{name: "active only", filter: ProductFilter{ActiveOnly: true}, want: []int64{1}},
		{name: "no match", filter: ProductFilter{Search: "milk"}, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []int64{}
			for _, p := range FilterProducts([]Product{tea, old}, tt.filter) {
				got = append(got, p.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductFilter_Query(t *testing.T) {
	q := ProductFilter{Search: "tea", Category: "drinks", ActiveOnly: true}.Query()
	assert.Equal(t, "tea", q.Get("search"))
	assert.Equal(t, "drinks", q.Get("category"))
	assert.Equal(t, "true", q.Get("active"))
	assert.Empty(t, ProductFilter{}.Query().Encode())
}

func TestCustomerFilter_Match(t *testing.T) {
	c := Customer{Name: "Магазин Берёзка", Phone: "+7 900 111-22-33", Email: "shop@example.com"}

	assert.True(t, CustomerFilter{}.Match(c))
	assert.True(t, CustomerFilter{Search: "берёзка"}.Match(c))
	assert.True(t, CustomerFilter{Search: "111-22"}.Match(c))
	assert.True(t, CustomerFilter{Search: "EXAMPLE"}.Match(c))
	assert.False(t, CustomerFilter{Search: "ромашка"}.Match(c))
}

func TestCreateCustomerRequest_Validate(t *testing.T) {
	assert.NoError(t, CreateCustomerRequest{Name: "Ромашка"}.Validate())
	assert.ErrorIs(t, CreateCustomerRequest{Name: "  "}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, CreateCustomerRequest{Name: "A", Email: "nope"}.Validate(), ErrInvalidEmail)
}

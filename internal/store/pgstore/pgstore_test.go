package pgstore

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/safar/shop-api/internal/store"
)

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%ham%", containsPattern("ham"))
	assert.Equal(t, `%50\%\_off\\%`, containsPattern(`50%_off\`))
}

func TestProductWhere(t *testing.T) {
	where, args := productWhere(store.ProductFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	lo, hi := decimal.NewFromInt(1), decimal.NewFromInt(9)
	where, args = productWhere(store.ProductFilter{
		Search:     "lamp",
		MinPrice:   &lo,
		MaxPrice:   &hi,
		CategoryID: "c1",
	})
	assert.Equal(t,
		" WHERE (name ILIKE $1 OR $2 = ANY(keywords)) AND price >= $3 AND price <= $4 AND category_id = $5",
		where)
	assert.Equal(t, []interface{}{"%lamp%", "lamp", lo, hi, "c1"}, args)
}

package mongostore

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safar/shop-api/internal/store"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, in := range []string{"0", "10", "32.50", "0.01", "123456789.123456"} {
		d := decimal.RequireFromString(in)
		d128, err := toDecimal128(d)
		require.NoError(t, err)
		assert.True(t, fromDecimal128(d128).Equal(d), in)
	}
}

func TestObjectIDsSkipsMalformed(t *testing.T) {
	valid := primitive.NewObjectID()
	got := objectIDs([]string{valid.Hex(), "nope", ""})
	assert.Equal(t, []primitive.ObjectID{valid}, got)
}

func TestObjectIDMalformedIsNotFound(t *testing.T) {
	_, err := objectID("get order", "xyz")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProductQuery(t *testing.T) {
	lo := decimal.NewFromInt(5)
	q, ok, err := productQuery(store.ProductFilter{Search: "a.b", MinPrice: &lo})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, q, "$or")
	assert.Contains(t, q, "price")

	_, ok, err = productQuery(store.ProductFilter{CategoryID: "not-hex"})
	require.NoError(t, err)
	assert.False(t, ok)
}

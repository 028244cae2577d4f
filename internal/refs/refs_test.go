package refs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
	"github.com/safar/shop-api/internal/store/memstore"
)

type failingFinder struct{}

func (failingFinder) Existing(context.Context, store.Collection, []string) (map[string]struct{}, error) {
	return nil, errors.New("connection reset")
}

func TestAllExist(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := &models.Category{Name: "Refs"}
	require.NoError(t, s.CreateCategory(ctx, c))
	a := &models.Product{Name: "A", CategoryID: c.ID}
	b := &models.Product{Name: "B", CategoryID: c.ID}
	require.NoError(t, s.CreateProduct(ctx, a))
	require.NoError(t, s.CreateProduct(ctx, b))

	v := NewValidator(s)

	tests := []struct {
		name string
		ids  []string
		want bool
	}{
		{"all present", []string{a.ID, b.ID}, true},
		{"duplicates count once", []string{a.ID, a.ID, b.ID, a.ID}, true},
		{"one missing", []string{a.ID, "missing"}, false},
		{"empty", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := v.AllExist(ctx, store.Products, tt.ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAllExistPropagatesStoreError(t *testing.T) {
	_, err := NewValidator(failingFinder{}).AllExist(context.Background(), store.Users, []string{"x"})
	assert.ErrorContains(t, err, "connection reset")
}

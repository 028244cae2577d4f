// Package storetest holds behavior checks every store.Store backend must pass.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"UserLifecycle", testUserLifecycle},
		{"UserUniqueness", testUserUniqueness},
		{"CategoryRoundTrip", testCategoryRoundTrip},
		{"CategoryToggle", testCategoryToggle},
		{"ConcurrentProductToggle", testConcurrentProductToggle},
		{"ProductFilter", testProductFilter},
		{"ProductPatchAndImages", testProductPatchAndImages},
		{"OrderLifecycle", testOrderLifecycle},
		{"OrderListing", testOrderListing},
		{"Existing", testExisting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func ptr[T any](v T) *T { return &v }

func newUser(name string) *models.User {
	return &models.User{
		UserName: name,
		Email:    name + "@example.com",
		Phone:    "555-" + name,
		Password: "hash",
		Role:     models.RoleMember,
		Status:   true,
	}
}

func seedCategory(t *testing.T, s store.Store, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Status: true}
	require.NoError(t, s.CreateCategory(context.Background(), c))
	return c
}

func seedProduct(t *testing.T, s store.Store, name, price, categoryID string, keywords ...string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
		Keywords:   keywords,
		Status:     true,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func testUserLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := newUser("alice")
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)
	assert.Equal(t, "hash", got.Password)
	assert.True(t, got.Status)

	byEmail, err := s.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	updated, err := s.UpdateUser(ctx, u.ID, store.UserPatch{FullName: ptr("Alice A"), Address: ptr("1 Main St")})
	require.NoError(t, err)
	assert.Equal(t, "Alice A", updated.FullName)
	assert.Equal(t, "1 Main St", updated.Address)
	assert.Equal(t, "alice@example.com", updated.Email)

	off, err := s.SetUserStatus(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, off.Status)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	deleted, err := s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, deleted.ID)

	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.DeleteUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUser(ctx, "not-an-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUserUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newUser("bob")))

	exists, err := s.UserExists(ctx, "bob", "", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.UserExists(ctx, "someone", "x@example.com", "555-bob")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.UserExists(ctx, "carol", "carol@example.com", "")
	require.NoError(t, err)
	assert.False(t, exists)

	dup := newUser("bob2")
	dup.Email = "bob@example.com"
	err = s.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func testCategoryRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()

	c := seedCategory(t, s, "Electronics")

	got, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Electronics", got.Name)
	assert.True(t, got.Status)

	err = s.CreateCategory(ctx, &models.Category{Name: "Electronics", Status: true})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	seedCategory(t, s, "Books")
	all, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Electronics", all[0].Name)

	updated, err := s.UpdateCategory(ctx, c.ID, store.CategoryPatch{Description: ptr("gadgets")})
	require.NoError(t, err)
	assert.Equal(t, "gadgets", updated.Description)
	assert.Equal(t, "Electronics", updated.Name)

	_, err = s.UpdateCategory(ctx, c.ID, store.CategoryPatch{Name: ptr("Books")})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.UpdateCategory(ctx, "missing", store.CategoryPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCategoryToggle(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedCategory(t, s, "Toys")

	first, err := s.ToggleCategoryStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, first.Status)

	second, err := s.ToggleCategoryStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, second.Status)

	_, err = s.ToggleCategoryStatus(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentProductToggle(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedCategory(t, s, "Kitchen")
	p := seedProduct(t, s, "Kettle", "20", c.ID)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ToggleProductStatus(ctx, p.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Status, "an even number of flips restores the original value")
}

func testProductFilter(t *testing.T, s store.Store) {
	ctx := context.Background()
	tools := seedCategory(t, s, "Tools")
	garden := seedCategory(t, s, "Garden")

	seedProduct(t, s, "Hammer", "15.50", tools.ID, "nails")
	seedProduct(t, s, "Screwdriver", "7", tools.ID)
	seedProduct(t, s, "Garden Hose", "30", garden.ID, "water")
	seedProduct(t, s, "Rake", "12", garden.ID)

	tests := []struct {
		name   string
		filter store.ProductFilter
		want   []string
		total  int64
	}{
		{"all", store.ProductFilter{}, []string{"Hammer", "Screwdriver", "Garden Hose", "Rake"}, 4},
		{"name search is case insensitive", store.ProductFilter{Search: "hAm"}, []string{"Hammer"}, 1},
		{"keyword search", store.ProductFilter{Search: "water"}, []string{"Garden Hose"}, 1},
		{"price range", store.ProductFilter{MinPrice: ptr(decimal.NewFromInt(10)), MaxPrice: ptr(decimal.NewFromInt(20))}, []string{"Hammer", "Rake"}, 2},
		{"category", store.ProductFilter{CategoryID: garden.ID}, []string{"Garden Hose", "Rake"}, 2},
		{"newest first", store.ProductFilter{CategoryID: tools.ID, Sort: store.SortNewest}, []string{"Screwdriver", "Hammer"}, 2},
		{"oldest first", store.ProductFilter{CategoryID: tools.ID, Sort: store.SortOldest}, []string{"Hammer", "Screwdriver"}, 2},
		{"paged", store.ProductFilter{Page: &store.Page{Page: 1, Limit: 3}}, []string{"Rake"}, 4},
		{"page past end", store.ProductFilter{Page: &store.Page{Page: 5, Limit: 3}}, nil, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListProducts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			names := make([]string, 0, len(got))
			for _, p := range got {
				names = append(names, p.Name)
			}
			if tt.want == nil {
				assert.Empty(t, names)
				return
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func testProductPatchAndImages(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedCategory(t, s, "Office")
	other := seedCategory(t, s, "Outdoor")
	p := seedProduct(t, s, "Desk", "120.25", c.ID)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("120.25")))
	assert.Empty(t, got.Images)

	updated, err := s.UpdateProduct(ctx, p.ID, store.ProductPatch{
		Price:      ptr(decimal.NewFromInt(99)),
		CategoryID: ptr(other.ID),
		Stock:      ptr(4),
		Dimensions: &models.Dimensions{Width: 1.5, Height: 0.75},
		Type:       ptr(models.ProductTypeFeatured),
		Keywords:   &[]string{"wood"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Desk", updated.Name)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, other.ID, updated.CategoryID)
	assert.Equal(t, 4, updated.Stock)
	assert.Equal(t, models.Dimensions{Width: 1.5, Height: 0.75}, updated.Dimensions)
	assert.Equal(t, models.ProductTypeFeatured, updated.Type)
	assert.Equal(t, []string{"wood"}, updated.Keywords)

	withImage, err := s.AddProductImage(ctx, p.ID, "https://img.example.com/desk.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example.com/desk.png"}, withImage.Images)

	prices, err := s.ProductPrices(ctx, []string{p.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.True(t, prices[p.ID].Equal(decimal.NewFromInt(99)))

	_, err = s.UpdateProduct(ctx, "missing", store.ProductPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.AddProductImage(ctx, "missing", "u")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testOrderLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := newUser("dave")
	require.NoError(t, s.CreateUser(ctx, u))
	c := seedCategory(t, s, "Misc")
	widget := seedProduct(t, s, "Widget", "10", c.ID)
	gadget := seedProduct(t, s, "Gadget", "2.50", c.ID)

	o := &models.Order{
		UserID: u.ID,
		Products: []models.LineItem{
			{ProductID: widget.ID, Quantity: 3, Price: decimal.NewFromInt(10)},
			{ProductID: gadget.ID, Quantity: 1, Price: decimal.RequireFromString("2.50")},
		},
		TotalAmount:     decimal.RequireFromString("32.50"),
		Status:          models.OrderStatusPlaced,
		ShippingAddress: "1 Main St",
	}
	require.NoError(t, s.CreateOrder(ctx, o))
	require.NotEmpty(t, o.ID)

	first, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	second, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first.Products, 2)
	assert.Equal(t, widget.ID, first.Products[0].ProductID)
	assert.Equal(t, 3, first.Products[0].Quantity)
	assert.True(t, first.TotalAmount.Equal(decimal.RequireFromString("32.5")))
	assert.Equal(t, u.ID, first.UserID)

	items := []models.LineItem{{ProductID: gadget.ID, Quantity: 4, Price: decimal.RequireFromString("2.50")}}
	updated, err := s.UpdateOrder(ctx, o.ID, store.OrderPatch{
		Products:        &items,
		TotalAmount:     ptr(decimal.NewFromInt(10)),
		ShippingAddress: ptr("2 Side St"),
	})
	require.NoError(t, err)
	require.Len(t, updated.Products, 1)
	assert.Equal(t, gadget.ID, updated.Products[0].ProductID)
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "2 Side St", updated.ShippingAddress)

	kept, err := s.UpdateOrder(ctx, o.ID, store.OrderPatch{ShippingAddress: ptr("3 Back St")})
	require.NoError(t, err)
	assert.Len(t, kept.Products, 1)
	assert.True(t, kept.TotalAmount.Equal(decimal.NewFromInt(10)))

	for _, st := range []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusPlaced, models.OrderStatusInProgress} {
		changed, err := s.SetOrderStatus(ctx, o.ID, st)
		require.NoError(t, err)
		assert.Equal(t, st, changed.Status)
	}

	require.NoError(t, s.DeleteOrder(ctx, o.ID))
	_, err = s.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteOrder(ctx, o.ID), store.ErrNotFound)
	_, err = s.SetOrderStatus(ctx, o.ID, models.OrderStatusCompleted)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UpdateOrder(ctx, o.ID, store.OrderPatch{ShippingAddress: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testOrderListing(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newUser("erin")
	b := newUser("frank")
	require.NoError(t, s.CreateUser(ctx, a))
	require.NoError(t, s.CreateUser(ctx, b))

	var ids []string
	for _, uid := range []string{a.ID, b.ID, a.ID} {
		o := &models.Order{UserID: uid, Products: []models.LineItem{}, TotalAmount: decimal.Zero, ShippingAddress: "x"}
		require.NoError(t, s.CreateOrder(ctx, o))
		ids = append(ids, o.ID)
	}

	all, err := s.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)
	assert.Empty(t, all[0].Products)

	mine, err := s.ListOrders(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[2], mine[0].ID)
	assert.Equal(t, ids[0], mine[1].ID)
}

func testExisting(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedCategory(t, s, "Ref")
	p1 := seedProduct(t, s, "One", "1", c.ID)
	p2 := seedProduct(t, s, "Two", "2", c.ID)

	found, err := s.Existing(ctx, store.Products, []string{p1.ID, p2.ID, p1.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Contains(t, found, p1.ID)
	assert.Contains(t, found, p2.ID)

	found, err = s.Existing(ctx, store.Categories, []string{c.ID})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = s.Existing(ctx, store.Users, []string{p1.ID})
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = s.Existing(ctx, store.Products, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

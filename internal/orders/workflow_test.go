package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/logger"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store/memstore"
)

type recorder struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *recorder) Publish(e models.OrderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []models.OrderEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.OrderEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	events *recorder
	user   *models.User
	widget *models.Product
	gadget *models.Product
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	user := &models.User{UserName: "buyer", Email: "buyer@example.com", Status: true, Role: models.RoleMember}
	require.NoError(t, st.CreateUser(ctx, user))
	cat := &models.Category{Name: "Things", Status: true}
	require.NoError(t, st.CreateCategory(ctx, cat))
	widget := &models.Product{Name: "Widget", Price: decimal.NewFromInt(10), CategoryID: cat.ID, Status: true}
	require.NoError(t, st.CreateProduct(ctx, widget))
	gadget := &models.Product{Name: "Gadget", Price: decimal.RequireFromString("4.25"), CategoryID: cat.ID, Status: true}
	require.NoError(t, st.CreateProduct(ctx, gadget))

	events := &recorder{}
	opts = append([]Option{WithNotifier(events), WithLogger(logger.Discard())}, opts...)
	return &fixture{
		svc:    NewService(st, opts...),
		store:  st,
		events: events,
		user:   user,
		widget: widget,
		gadget: gadget,
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func (f *fixture) createWidgetOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:          f.user.ID,
		Products:        []LineItemInput{{Product: f.widget.ID, Quantity: 3, Price: dec("10")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	return order
}

func TestCreateWidgetScenario(t *testing.T) {
	f := newFixture(t)

	order := f.createWidgetOrder(t)

	assert.NotEmpty(t, order.ID)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	require.NotNil(t, order.User)
	assert.Equal(t, "buyer", order.User.UserName)
	assert.Equal(t, []models.OrderEventType{models.OrderCreated}, f.events.types())
}

func TestCreateTotalIsExactSum(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID: f.user.ID,
		Products: []LineItemInput{
			{Product: f.widget.ID, Quantity: 7, Price: dec("0.1")},
			{Product: f.gadget.ID, Quantity: 3, Price: dec("0.2")},
			{Product: f.widget.ID, Quantity: 1, Price: dec("19.99")},
		},
		ShippingAddress: "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "21.29", order.TotalAmount.String())
	assert.True(t, order.TotalAmount.Equal(Total(order.Products)))
}

func TestCreateKeepsSubCentTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderCommand{
		UserID:          f.user.ID,
		Products:        []LineItemInput{{Product: f.widget.ID, Quantity: 1, Price: dec("0.333")}},
		ShippingAddress: "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "0.333", order.TotalAmount.String())

	stored, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(Total(stored.Products)), "total %s, items %s", stored.TotalAmount, Total(stored.Products))
}

func TestCreateDefaultsQuantity(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:          f.user.ID,
		Products:        []LineItemInput{{Product: f.widget.ID, Price: dec("10")}},
		ShippingAddress: "x",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, order.Products[0].Quantity)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(10)))
}

func TestCreateFillsMissingPriceFromCatalog(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:          f.user.ID,
		Products:        []LineItemInput{{Product: f.gadget.ID, Quantity: 2}},
		ShippingAddress: "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "8.5", order.TotalAmount.String())
}

func TestCreateCatalogPriceSource(t *testing.T) {
	f := newFixture(t, WithPriceSource(PriceFromCatalog))

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:          f.user.ID,
		Products:        []LineItemInput{{Product: f.widget.ID, Quantity: 2, Price: dec("0.01")}},
		ShippingAddress: "x",
	})
	require.NoError(t, err)
	assert.True(t, order.Products[0].Price.Equal(decimal.NewFromInt(10)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(20)))
}

func TestCreateEmptyProducts(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:          f.user.ID,
		ShippingAddress: "x",
	})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.IsZero())
	assert.Empty(t, order.Products)
}

func TestCreateRejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		cmd  CreateOrderCommand
		kind apperr.Kind
		msg  string
	}{
		{
			name: "dangling product",
			cmd: CreateOrderCommand{UserID: f.user.ID, ShippingAddress: "x",
				Products: []LineItemInput{{Product: f.widget.ID, Quantity: 1, Price: dec("1")}, {Product: "missing", Quantity: 1, Price: dec("1")}}},
			kind: apperr.KindInvalidReference,
			msg:  "One or more products do not exist",
		},
		{
			name: "unknown user",
			cmd: CreateOrderCommand{UserID: "ghost", ShippingAddress: "x",
				Products: []LineItemInput{{Product: f.widget.ID, Quantity: 1, Price: dec("1")}}},
			kind: apperr.KindNotFound,
			msg:  "User with ID ghost not found",
		},
		{
			name: "product error wins over user error",
			cmd: CreateOrderCommand{UserID: "ghost", ShippingAddress: "x",
				Products: []LineItemInput{{Product: "missing", Quantity: 1, Price: dec("1")}}},
			kind: apperr.KindInvalidReference,
			msg:  "One or more products do not exist",
		},
		{
			name: "missing shipping address",
			cmd:  CreateOrderCommand{UserID: f.user.ID},
			kind: apperr.KindValidation,
		},
		{
			name: "negative quantity",
			cmd: CreateOrderCommand{UserID: f.user.ID, ShippingAddress: "x",
				Products: []LineItemInput{{Product: f.widget.ID, Quantity: -2, Price: dec("1")}}},
			kind: apperr.KindValidation,
		},
		{
			name: "negative price",
			cmd: CreateOrderCommand{UserID: f.user.ID, ShippingAddress: "x",
				Products: []LineItemInput{{Product: f.widget.ID, Quantity: 1, Price: dec("-1")}}},
			kind: apperr.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}

	orders, err := f.store.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders, "rejected creates must not persist anything")
	assert.Empty(t, f.events.types())
}

func TestGetIsStable(t *testing.T) {
	f := newFixture(t)
	order := f.createWidgetOrder(t)

	first, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	second, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = f.svc.Get(context.Background(), "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Order with ID missing not found", err.Error())
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.createWidgetOrder(t)

	other := &models.User{UserName: "other", Email: "other@example.com", Status: true}
	require.NoError(t, f.store.CreateUser(ctx, other))

	t.Run("replaces items and recomputes total", func(t *testing.T) {
		items := []LineItemInput{{Product: f.gadget.ID, Quantity: 4, Price: dec("4.25")}}
		updated, err := f.svc.Update(ctx, UpdateOrderCommand{ID: order.ID, Products: &items})
		require.NoError(t, err)
		assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(17)))
		require.Len(t, updated.Products, 1)
		assert.Equal(t, "1 Main St", updated.ShippingAddress)
		require.NotNil(t, updated.User)
		assert.Equal(t, f.user.ID, updated.User.ID)
	})

	t.Run("without products keeps items and total", func(t *testing.T) {
		updated, err := f.svc.Update(ctx, UpdateOrderCommand{ID: order.ID, ShippingAddress: strPtr("2 Side St"), UserID: &other.ID})
		require.NoError(t, err)
		assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(17)))
		assert.Len(t, updated.Products, 1)
		assert.Equal(t, "2 Side St", updated.ShippingAddress)
		assert.Equal(t, other.ID, updated.UserID)
		assert.Equal(t, "other", updated.User.UserName)
	})

	t.Run("empty shipping address is ignored", func(t *testing.T) {
		updated, err := f.svc.Update(ctx, UpdateOrderCommand{ID: order.ID, ShippingAddress: strPtr("")})
		require.NoError(t, err)
		assert.Equal(t, "2 Side St", updated.ShippingAddress)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.Update(ctx, UpdateOrderCommand{ID: order.ID, UserID: strPtr("ghost")})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, "User with ID ghost not found", err.Error())
	})

	t.Run("dangling product leaves order untouched", func(t *testing.T) {
		items := []LineItemInput{{Product: "missing", Quantity: 1, Price: dec("1")}}
		_, err := f.svc.Update(ctx, UpdateOrderCommand{ID: order.ID, Products: &items, ShippingAddress: strPtr("nope")})
		assert.Equal(t, apperr.KindInvalidReference, apperr.KindOf(err))

		got, err := f.svc.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "2 Side St", got.ShippingAddress)
		assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(17)))
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := f.svc.Update(ctx, UpdateOrderCommand{ID: "missing"})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, "Order with ID missing not found", err.Error())
	})
}

func TestUpdateToleratesDeletedOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.createWidgetOrder(t)

	_, err := f.store.DeleteUser(ctx, f.user.ID)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, UpdateOrderCommand{ID: order.ID, ShippingAddress: strPtr("moved")})
	require.NoError(t, err)
	assert.Nil(t, updated.User)
	assert.Equal(t, "moved", updated.ShippingAddress)
}

func TestChangeStatusAnyTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.createWidgetOrder(t)

	all := []models.OrderStatus{models.OrderStatusPlaced, models.OrderStatusInProgress, models.OrderStatusCompleted}
	for _, from := range all {
		for _, to := range all {
			_, err := f.svc.ChangeStatus(ctx, order.ID, from)
			require.NoError(t, err)
			got, err := f.svc.ChangeStatus(ctx, order.ID, to)
			require.NoError(t, err)
			assert.Equal(t, to, got.Status, "%s -> %s", from, to)
		}
	}

	_, err := f.svc.ChangeStatus(ctx, "missing", models.OrderStatusCompleted)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.ChangeStatus(ctx, order.ID, models.OrderStatus(7))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.createWidgetOrder(t)

	id, err := f.svc.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, id)

	_, err = f.svc.Get(ctx, order.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Delete(ctx, order.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Equal(t, []models.OrderEventType{models.OrderCreated, models.OrderDeleted}, f.events.types())
}

func TestListAndListByUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.createWidgetOrder(t)
	second := f.createWidgetOrder(t)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
	require.NotNil(t, all[0].User)

	mine, err := f.svc.ListByUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.ListByUser(ctx, "ghost")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

type brokenStore struct {
	*memstore.Store
}

func (brokenStore) ListOrders(context.Context, string) ([]models.Order, error) {
	return nil, errors.New("disk on fire")
}

func TestStoreFailureIsInternal(t *testing.T) {
	svc := NewService(brokenStore{memstore.New()}, WithLogger(logger.Discard()))

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "internal error", err.Error())
}

type userOutage struct {
	*memstore.Store
}

func (userOutage) GetUser(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection refused")
}

func TestUserLookupFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	order := f.createWidgetOrder(t)
	svc := NewService(userOutage{f.store}, WithLogger(logger.Discard()))
	ctx := context.Background()

	_, err := svc.List(ctx)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = svc.Get(ctx, order.ID)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	changed, err := svc.ChangeStatus(ctx, order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, changed.Status)
	assert.Nil(t, changed.User)
}

func TestListKeepsOrdersOfDeletedUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createWidgetOrder(t)

	_, err := f.store.DeleteUser(ctx, f.user.ID)
	require.NoError(t, err)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].User)
}

package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/shop-api/internal/auth"
	"github.com/safar/shop-api/internal/logger"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/orders"
	"github.com/safar/shop-api/internal/store/memstore"
)

type fixture struct {
	schema *Schema
	store  *memstore.Store
	user   *models.User
	widget *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	user := &models.User{UserName: "buyer", Email: "buyer@example.com", Status: true, Role: models.RoleMember}
	require.NoError(t, st.CreateUser(ctx, user))
	cat := &models.Category{Name: "Things", Status: true}
	require.NoError(t, st.CreateCategory(ctx, cat))
	widget := &models.Product{Name: "Widget", Price: decimal.NewFromInt(10), CategoryID: cat.ID, Status: true}
	require.NoError(t, st.CreateProduct(ctx, widget))

	schema, err := NewSchema(orders.NewService(st, orders.WithLogger(logger.Discard())))
	require.NoError(t, err)
	return &fixture{schema: schema, store: st, user: user, widget: widget}
}

func asAdmin() context.Context {
	return auth.NewContext(context.Background(), &auth.Claims{UserID: "root", Role: models.RoleAdmin})
}

func asUser(id string) context.Context {
	return auth.NewContext(context.Background(), &auth.Claims{UserID: id, Role: models.RoleMember})
}

// decode round-trips the result through JSON so tests see what clients see.
func decode(t *testing.T, res *graphql.Result) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func firstError(t *testing.T, res *graphql.Result) (string, string) {
	t.Helper()
	out := decode(t, res)
	errs, ok := out["errors"].([]interface{})
	require.True(t, ok, "expected errors in %v", out)
	e := errs[0].(map[string]interface{})
	ext, _ := e["extensions"].(map[string]interface{})
	kind, _ := ext["kind"].(string)
	return e["message"].(string), kind
}

const addOrder = `mutation($userId: ID!, $products: [OrderProductInput]!, $addr: String!) {
	addOrder(userId: $userId, products: $products, shippingAddress: $addr) {
		id status totalAmount shippingAddress
		user { Id userName email }
		products { product quantity price }
	}
}`

func TestAddOrderWidgetScenario(t *testing.T) {
	f := newFixture(t)

	res := f.schema.Execute(asUser(f.user.ID), Request{
		Query: addOrder,
		Variables: map[string]interface{}{
			"userId":   f.user.ID,
			"products": []interface{}{map[string]interface{}{"product": f.widget.ID, "quantity": 3, "price": 10.0}},
			"addr":     "1 Main St",
		},
	})
	require.Empty(t, res.Errors)

	order := decode(t, res)["data"].(map[string]interface{})["addOrder"].(map[string]interface{})
	assert.Equal(t, 30.0, order["totalAmount"])
	assert.Equal(t, 0.0, order["status"])
	assert.Equal(t, "1 Main St", order["shippingAddress"])
	user := order["user"].(map[string]interface{})
	assert.Equal(t, f.user.ID, user["Id"])
	assert.Equal(t, "buyer", user["userName"])
	items := order["products"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, 3.0, items[0].(map[string]interface{})["quantity"])
}

func TestAddOrderMissingProduct(t *testing.T) {
	f := newFixture(t)

	res := f.schema.Execute(asAdmin(), Request{
		Query: addOrder,
		Variables: map[string]interface{}{
			"userId":   f.user.ID,
			"products": []interface{}{map[string]interface{}{"product": "ghost", "quantity": 1}},
			"addr":     "1 Main St",
		},
	})
	msg, kind := firstError(t, res)
	assert.Equal(t, "One or more products do not exist", msg)
	assert.Equal(t, "invalid_reference", kind)

	stored, err := f.store.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAddOrderRejectsNullLineItem(t *testing.T) {
	f := newFixture(t)

	res := f.schema.Execute(asUser(f.user.ID), Request{
		Query: addOrder,
		Variables: map[string]interface{}{
			"userId": f.user.ID,
			"products": []interface{}{
				map[string]interface{}{"product": f.widget.ID, "quantity": 1},
				nil,
			},
			"addr": "1 Main St",
		},
	})
	msg, kind := firstError(t, res)
	assert.Equal(t, "products[1] must not be null", msg)
	assert.Equal(t, "validation", kind)

	stored, err := f.store.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAddOrderForSomeoneElse(t *testing.T) {
	f := newFixture(t)

	res := f.schema.Execute(asUser("intruder"), Request{
		Query: addOrder,
		Variables: map[string]interface{}{
			"userId":   f.user.ID,
			"products": []interface{}{},
			"addr":     "1 Main St",
		},
	})
	_, kind := firstError(t, res)
	assert.Equal(t, "forbidden", kind)
}

func TestOrderQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	price := decimal.NewFromInt(10)
	svc := orders.NewService(f.store, orders.WithLogger(logger.Discard()))
	placed, err := svc.Create(ctx, orders.CreateOrderCommand{
		UserID:          f.user.ID,
		Products:        []orders.LineItemInput{{Product: f.widget.ID, Quantity: 2, Price: &price}},
		ShippingAddress: "2 Side St",
	})
	require.NoError(t, err)

	t.Run("order by id", func(t *testing.T) {
		res := f.schema.Execute(asUser(f.user.ID), Request{
			Query:     `query($id: ID!) { order(id: $id) { id totalAmount createdAt } }`,
			Variables: map[string]interface{}{"id": placed.ID},
		})
		require.Empty(t, res.Errors)
		order := decode(t, res)["data"].(map[string]interface{})["order"].(map[string]interface{})
		assert.Equal(t, placed.ID, order["id"])
		assert.Equal(t, 20.0, order["totalAmount"])
		assert.NotEmpty(t, order["createdAt"])
	})

	t.Run("missing order", func(t *testing.T) {
		res := f.schema.Execute(asAdmin(), Request{
			Query: `{ order(id: "nope") { id } }`,
		})
		msg, kind := firstError(t, res)
		assert.Equal(t, "Order with ID nope not found", msg)
		assert.Equal(t, "not_found", kind)
	})

	t.Run("other member cannot read", func(t *testing.T) {
		res := f.schema.Execute(asUser("someone"), Request{
			Query:     `query($id: ID!) { order(id: $id) { id } }`,
			Variables: map[string]interface{}{"id": placed.ID},
		})
		_, kind := firstError(t, res)
		assert.Equal(t, "forbidden", kind)
	})

	t.Run("orders scoped to caller", func(t *testing.T) {
		res := f.schema.Execute(asAdmin(), Request{Query: `{ orders { id } }`})
		require.Empty(t, res.Errors)
		all := decode(t, res)["data"].(map[string]interface{})["orders"].([]interface{})
		assert.Len(t, all, 1)

		res = f.schema.Execute(asUser(f.user.ID), Request{Query: `{ orders { id } }`})
		require.Empty(t, res.Errors)
		mine := decode(t, res)["data"].(map[string]interface{})["orders"].([]interface{})
		assert.Len(t, mine, 1)
	})

	t.Run("update and status", func(t *testing.T) {
		res := f.schema.Execute(asAdmin(), Request{
			Query:     `mutation($id: ID!) { updateOrder(id: $id, shippingAddress: "3 New St") { shippingAddress totalAmount } }`,
			Variables: map[string]interface{}{"id": placed.ID},
		})
		require.Empty(t, res.Errors)
		updated := decode(t, res)["data"].(map[string]interface{})["updateOrder"].(map[string]interface{})
		assert.Equal(t, "3 New St", updated["shippingAddress"])
		assert.Equal(t, 20.0, updated["totalAmount"])

		res = f.schema.Execute(asAdmin(), Request{
			Query:     `mutation($id: ID!) { changeOrderStatus(id: $id, status: 2) { status } }`,
			Variables: map[string]interface{}{"id": placed.ID},
		})
		require.Empty(t, res.Errors)
		changed := decode(t, res)["data"].(map[string]interface{})["changeOrderStatus"].(map[string]interface{})
		assert.Equal(t, 2.0, changed["status"])

		res = f.schema.Execute(asAdmin(), Request{
			Query:     `mutation($id: ID!) { changeOrderStatus(id: $id, status: 5) { status } }`,
			Variables: map[string]interface{}{"id": placed.ID},
		})
		_, kind := firstError(t, res)
		assert.Equal(t, "validation", kind)
	})

	t.Run("members cannot mutate", func(t *testing.T) {
		res := f.schema.Execute(asUser(f.user.ID), Request{
			Query:     `mutation($id: ID!) { deleteOrder(id: $id) { id } }`,
			Variables: map[string]interface{}{"id": placed.ID},
		})
		_, kind := firstError(t, res)
		assert.Equal(t, "forbidden", kind)
	})

	t.Run("delete", func(t *testing.T) {
		res := f.schema.Execute(asAdmin(), Request{
			Query:     `mutation($id: ID!) { deleteOrder(id: $id) { id } }`,
			Variables: map[string]interface{}{"id": placed.ID},
		})
		require.Empty(t, res.Errors)
		deleted := decode(t, res)["data"].(map[string]interface{})["deleteOrder"].(map[string]interface{})
		assert.Equal(t, placed.ID, deleted["id"])

		res = f.schema.Execute(asAdmin(), Request{
			Query:     `mutation($id: ID!) { deleteOrder(id: $id) { id } }`,
			Variables: map[string]interface{}{"id": placed.ID},
		})
		_, kind := firstError(t, res)
		assert.Equal(t, "not_found", kind)
	})
}

func TestUnauthenticatedContext(t *testing.T) {
	f := newFixture(t)
	res := f.schema.Execute(context.Background(), Request{Query: `{ orders { id } }`})
	_, kind := firstError(t, res)
	assert.Equal(t, "unauthorized", kind)
}

// Package graph serves the order workflow over GraphQL.
package graph

import (
	"context"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/auth"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/orders"
)

// Request is the standard GraphQL POST body.
type Request struct {
	Query         string                 `json:"query" binding:"required"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

type Schema struct {
	schema graphql.Schema
	orders *orders.Service
}

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"Id":       &graphql.Field{Type: graphql.String},
		"userName": &graphql.Field{Type: graphql.String},
		"email":    &graphql.Field{Type: graphql.String},
	},
})

var orderProductType = graphql.NewObject(graphql.ObjectConfig{
	Name: "OrderProduct",
	Fields: graphql.Fields{
		"product":  &graphql.Field{Type: graphql.String},
		"quantity": &graphql.Field{Type: graphql.Int},
		"price":    &graphql.Field{Type: graphql.Float},
	},
})

var orderType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Order",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.String},
		"user":            &graphql.Field{Type: userType},
		"products":        &graphql.Field{Type: graphql.NewList(orderProductType)},
		"totalAmount":     &graphql.Field{Type: graphql.Float},
		"status":          &graphql.Field{Type: graphql.Int},
		"shippingAddress": &graphql.Field{Type: graphql.String},
		"createdAt":       &graphql.Field{Type: graphql.String},
		"updatedAt":       &graphql.Field{Type: graphql.String},
	},
})

var orderProductInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "OrderProductInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"product":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"quantity": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"price":    &graphql.InputObjectFieldConfig{Type: graphql.Float},
	},
})

var deletedOrderType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DeletedOrder",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.String},
	},
})

func NewSchema(svc *orders.Service) (*Schema, error) {
	s := &Schema{orders: svc}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"orders": &graphql.Field{
				Type:    graphql.NewList(orderType),
				Resolve: s.resolveOrders,
			},
			"order": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: s.resolveOrder,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addOrder": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"userId":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"products":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(orderProductInput))},
					"shippingAddress": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: s.resolveAddOrder,
			},
			"updateOrder": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"id":              &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"userId":          &graphql.ArgumentConfig{Type: graphql.ID},
					"products":        &graphql.ArgumentConfig{Type: graphql.NewList(orderProductInput)},
					"shippingAddress": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: s.resolveUpdateOrder,
			},
			"deleteOrder": &graphql.Field{
				Type: deletedOrderType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: s.resolveDeleteOrder,
			},
			"changeOrderStatus": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"status": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: s.resolveChangeOrderStatus,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
	if err != nil {
		return nil, err
	}
	s.schema = schema
	return s, nil
}

func (s *Schema) Execute(ctx context.Context, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

func (s *Schema) resolveOrders(p graphql.ResolveParams) (interface{}, error) {
	claims, err := caller(p.Context, "graph.orders")
	if err != nil {
		return nil, err
	}

	var list []models.Order
	if claims.Role == models.RoleAdmin {
		list, err = s.orders.List(p.Context)
	} else {
		list, err = s.orders.ListByUser(p.Context, claims.UserID)
	}
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(list))
	for i := range list {
		out = append(out, orderView(&list[i]))
	}
	return out, nil
}

func (s *Schema) resolveOrder(p graphql.ResolveParams) (interface{}, error) {
	const op = "graph.order"

	claims, err := caller(p.Context, op)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.Get(p.Context, stringArg(p.Args, "id"))
	if err != nil {
		return nil, err
	}
	if !claims.CanActFor(o.UserID) {
		return nil, apperr.Forbidden(op, "You can only view your own orders")
	}
	return orderView(o), nil
}

func (s *Schema) resolveAddOrder(p graphql.ResolveParams) (interface{}, error) {
	const op = "graph.addOrder"

	claims, err := caller(p.Context, op)
	if err != nil {
		return nil, err
	}
	userID := stringArg(p.Args, "userId")
	if !claims.CanActFor(userID) {
		return nil, apperr.Forbidden(op, "You can only place orders for yourself")
	}

	items, err := lineItems(op, p.Args["products"])
	if err != nil {
		return nil, err
	}
	o, err := s.orders.Create(p.Context, orders.CreateOrderCommand{
		UserID:          userID,
		Products:        items,
		ShippingAddress: stringArg(p.Args, "shippingAddress"),
	})
	if err != nil {
		return nil, err
	}
	return orderView(o), nil
}

func (s *Schema) resolveUpdateOrder(p graphql.ResolveParams) (interface{}, error) {
	const op = "graph.updateOrder"

	if err := requireAdmin(p.Context, op); err != nil {
		return nil, err
	}

	cmd := orders.UpdateOrderCommand{ID: stringArg(p.Args, "id")}
	if v, ok := p.Args["userId"].(string); ok {
		cmd.UserID = &v
	}
	if raw, ok := p.Args["products"]; ok && raw != nil {
		items, err := lineItems(op, raw)
		if err != nil {
			return nil, err
		}
		cmd.Products = &items
	}
	if v, ok := p.Args["shippingAddress"].(string); ok {
		cmd.ShippingAddress = &v
	}

	o, err := s.orders.Update(p.Context, cmd)
	if err != nil {
		return nil, err
	}
	return orderView(o), nil
}

func (s *Schema) resolveDeleteOrder(p graphql.ResolveParams) (interface{}, error) {
	if err := requireAdmin(p.Context, "graph.deleteOrder"); err != nil {
		return nil, err
	}
	id, err := s.orders.Delete(p.Context, stringArg(p.Args, "id"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": id}, nil
}

func (s *Schema) resolveChangeOrderStatus(p graphql.ResolveParams) (interface{}, error) {
	if err := requireAdmin(p.Context, "graph.changeOrderStatus"); err != nil {
		return nil, err
	}
	status, _ := p.Args["status"].(int)
	o, err := s.orders.ChangeStatus(p.Context, stringArg(p.Args, "id"), models.OrderStatus(status))
	if err != nil {
		return nil, err
	}
	return orderView(o), nil
}

func caller(ctx context.Context, op string) (*auth.Claims, error) {
	claims, ok := auth.FromContext(ctx)
	if !ok {
		return nil, apperr.Unauthorized(op, "Authorization header is missing")
	}
	return claims, nil
}

func requireAdmin(ctx context.Context, op string) error {
	claims, err := caller(ctx, op)
	if err != nil {
		return err
	}
	if !auth.Allows(claims.Role, models.RoleAdmin) {
		return apperr.Forbidden(op, "You do not have permission to access this resource")
	}
	return nil
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func lineItems(op string, raw interface{}) ([]orders.LineItemInput, error) {
	list, _ := raw.([]interface{})
	items := make([]orders.LineItemInput, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			return nil, apperr.Validation(op, "products[%d] must not be null", i)
		}
		item := orders.LineItemInput{}
		item.Product, _ = m["product"].(string)
		item.Quantity, _ = m["quantity"].(int)
		if price, ok := m["price"].(float64); ok {
			d := decimal.NewFromFloat(price)
			item.Price = &d
		}
		items = append(items, item)
	}
	return items, nil
}

func orderView(o *models.Order) map[string]interface{} {
	products := make([]map[string]interface{}, 0, len(o.Products))
	for _, it := range o.Products {
		price, _ := it.Price.Float64()
		products = append(products, map[string]interface{}{
			"product":  it.ProductID,
			"quantity": it.Quantity,
			"price":    price,
		})
	}

	var user interface{}
	if o.User != nil {
		user = map[string]interface{}{
			"Id":       o.User.ID,
			"userName": o.User.UserName,
			"email":    o.User.Email,
		}
	}

	total, _ := o.TotalAmount.Float64()
	return map[string]interface{}{
		"id":              o.ID,
		"user":            user,
		"products":        products,
		"totalAmount":     total,
		"status":          int(o.Status),
		"shippingAddress": o.ShippingAddress,
		"createdAt":       o.CreatedAt.Format(time.RFC3339),
		"updatedAt":       o.UpdatedAt.Format(time.RFC3339),
	}
}

package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
)

type lineItemDoc struct {
	Product  primitive.ObjectID   `bson:"product"`
	Quantity int                  `bson:"quantity"`
	Price    primitive.Decimal128 `bson:"price"`
}

type orderDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	User            primitive.ObjectID   `bson:"user"`
	Products        []lineItemDoc        `bson:"products"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	Status          int                  `bson:"status"`
	ShippingAddress string               `bson:"shippingAddress"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func (d orderDoc) model() *models.Order {
	items := make([]models.LineItem, 0, len(d.Products))
	for _, it := range d.Products {
		items = append(items, models.LineItem{
			ProductID: it.Product.Hex(),
			Quantity:  it.Quantity,
			Price:     fromDecimal128(it.Price),
		})
	}
	return &models.Order{
		ID:              d.ID.Hex(),
		UserID:          d.User.Hex(),
		Products:        items,
		TotalAmount:     fromDecimal128(d.TotalAmount),
		Status:          models.OrderStatus(d.Status),
		ShippingAddress: d.ShippingAddress,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func lineItemDocs(items []models.LineItem) ([]lineItemDoc, error) {
	out := make([]lineItemDoc, 0, len(items))
	for _, it := range items {
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product id %q: %w", it.ProductID, err)
		}
		price, err := toDecimal128(it.Price)
		if err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
		out = append(out, lineItemDoc{Product: pid, Quantity: it.Quantity, Price: price})
	}
	return out, nil
}

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	user, err := primitive.ObjectIDFromHex(o.UserID)
	if err != nil {
		return fmt.Errorf("create order: user id %q: %w", o.UserID, err)
	}
	items, err := lineItemDocs(o.Products)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return fmt.Errorf("create order: total: %w", err)
	}

	ts := now()
	doc := orderDoc{
		ID:              primitive.NewObjectID(),
		User:            user,
		Products:        items,
		TotalAmount:     total,
		Status:          int(o.Status),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if _, err := s.coll(store.Orders).InsertOne(ctx, doc); err != nil {
		return translate("create order", err)
	}

	o.ID = doc.ID.Hex()
	if o.Products == nil {
		o.Products = []models.LineItem{}
	}
	o.CreatedAt = ts
	o.UpdatedAt = ts
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	oid, err := objectID("get order", id)
	if err != nil {
		return nil, err
	}

	var doc orderDoc
	if err := s.coll(store.Orders).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translate("get order", err)
	}
	return doc.model(), nil
}

func (s *Store) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	filter := bson.M{}
	if userID != "" {
		uid, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return []models.Order{}, nil
		}
		filter["user"] = uid
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.coll(store.Orders).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	orders := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, *d.model())
	}
	return orders, nil
}

func (s *Store) updateOrder(ctx context.Context, op, id string, set bson.M) (*models.Order, error) {
	oid, err := objectID(op, id)
	if err != nil {
		return nil, err
	}
	set["updatedAt"] = now()

	var doc orderDoc
	err = s.coll(store.Orders).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, afterUpdate()).Decode(&doc)
	if err != nil {
		return nil, translate(op, err)
	}
	return doc.model(), nil
}

func (s *Store) UpdateOrder(ctx context.Context, id string, patch store.OrderPatch) (*models.Order, error) {
	set := bson.M{}
	if patch.UserID != nil {
		uid, err := primitive.ObjectIDFromHex(*patch.UserID)
		if err != nil {
			return nil, fmt.Errorf("update order: user id %q: %w", *patch.UserID, err)
		}
		set["user"] = uid
	}
	if patch.Products != nil {
		items, err := lineItemDocs(*patch.Products)
		if err != nil {
			return nil, fmt.Errorf("update order: %w", err)
		}
		set["products"] = items
	}
	if patch.TotalAmount != nil {
		total, err := toDecimal128(*patch.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("update order: total: %w", err)
		}
		set["totalAmount"] = total
	}
	if patch.ShippingAddress != nil {
		set["shippingAddress"] = *patch.ShippingAddress
	}
	return s.updateOrder(ctx, "update order", id, set)
}

func (s *Store) SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	return s.updateOrder(ctx, "set order status", id, bson.M{"status": int(status)})
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	oid, err := objectID("delete order", id)
	if err != nil {
		return err
	}

	res, err := s.coll(store.Orders).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete order: %w", store.ErrNotFound)
	}
	return nil
}

package mongostore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
)

type categoryDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Status      bool               `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d categoryDoc) model() *models.Category {
	return &models.Category{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type dimensionsDoc struct {
	Width  float64 `bson:"width"`
	Height float64 `bson:"height"`
}

type productDoc struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty"`
	Name             string               `bson:"name"`
	Price            primitive.Decimal128 `bson:"price"`
	ShortDescription string               `bson:"shortDescription,omitempty"`
	Description      string               `bson:"description,omitempty"`
	Category         primitive.ObjectID   `bson:"categories"`
	Images           []string             `bson:"images"`
	Keywords         []string             `bson:"keywords"`
	Stock            int                  `bson:"stock"`
	Dimensions       dimensionsDoc        `bson:"dimensions"`
	Type             int                  `bson:"type"`
	Status           bool                 `bson:"status"`
	CreatedAt        time.Time            `bson:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt"`
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func (d productDoc) model() *models.Product {
	return &models.Product{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Price:            fromDecimal128(d.Price),
		ShortDescription: d.ShortDescription,
		Description:      d.Description,
		CategoryID:       d.Category.Hex(),
		Images:           nonNil(d.Images),
		Keywords:         nonNil(d.Keywords),
		Stock:            d.Stock,
		Dimensions:       models.Dimensions{Width: d.Dimensions.Width, Height: d.Dimensions.Height},
		Type:             models.ProductType(d.Type),
		Status:           d.Status,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	ts := now()
	doc := categoryDoc{
		ID:          primitive.NewObjectID(),
		Name:        c.Name,
		Description: c.Description,
		Status:      c.Status,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if _, err := s.coll(store.Categories).InsertOne(ctx, doc); err != nil {
		return translate("create category", err)
	}

	c.ID = doc.ID.Hex()
	c.CreatedAt = ts
	c.UpdatedAt = ts
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	oid, err := objectID("get category", id)
	if err != nil {
		return nil, err
	}

	var doc categoryDoc
	if err := s.coll(store.Categories).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translate("get category", err)
	}
	return doc.model(), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	cur, err := s.coll(store.Categories).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer cur.Close(ctx)

	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	out := make([]models.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.model())
	}
	return out, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, patch store.CategoryPatch) (*models.Category, error) {
	oid, err := objectID("update category", id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}

	var doc categoryDoc
	err = s.coll(store.Categories).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, afterUpdate()).Decode(&doc)
	if err != nil {
		return nil, translate("update category", err)
	}
	return doc.model(), nil
}

func (s *Store) ToggleCategoryStatus(ctx context.Context, id string) (*models.Category, error) {
	oid, err := objectID("toggle category", id)
	if err != nil {
		return nil, err
	}

	var doc categoryDoc
	err = s.coll(store.Categories).FindOneAndUpdate(ctx, bson.M{"_id": oid}, togglePipeline(), afterUpdate()).Decode(&doc)
	if err != nil {
		return nil, translate("toggle category", err)
	}
	return doc.model(), nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return fmt.Errorf("create product: price: %w", err)
	}
	category, err := primitive.ObjectIDFromHex(p.CategoryID)
	if err != nil {
		return fmt.Errorf("create product: category id %q: %w", p.CategoryID, err)
	}

	ts := now()
	doc := productDoc{
		ID:               primitive.NewObjectID(),
		Name:             p.Name,
		Price:            price,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Category:         category,
		Images:           nonNil(p.Images),
		Keywords:         nonNil(p.Keywords),
		Stock:            p.Stock,
		Dimensions:       dimensionsDoc{Width: p.Dimensions.Width, Height: p.Dimensions.Height},
		Type:             int(p.Type),
		Status:           p.Status,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	if _, err := s.coll(store.Products).InsertOne(ctx, doc); err != nil {
		return translate("create product", err)
	}

	p.ID = doc.ID.Hex()
	p.Images = doc.Images
	p.Keywords = doc.Keywords
	p.CreatedAt = ts
	p.UpdatedAt = ts
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := objectID("get product", id)
	if err != nil {
		return nil, err
	}

	var doc productDoc
	if err := s.coll(store.Products).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translate("get product", err)
	}
	return doc.model(), nil
}

func productQuery(f store.ProductFilter) (bson.M, bool, error) {
	q := bson.M{}
	if f.Search != "" {
		q["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}},
			bson.M{"keywords": f.Search},
		}
	}

	price := bson.M{}
	if f.MinPrice != nil {
		d, err := toDecimal128(*f.MinPrice)
		if err != nil {
			return nil, false, err
		}
		price["$gte"] = d
	}
	if f.MaxPrice != nil {
		d, err := toDecimal128(*f.MaxPrice)
		if err != nil {
			return nil, false, err
		}
		price["$lte"] = d
	}
	if len(price) > 0 {
		q["price"] = price
	}

	if f.CategoryID != "" {
		oid, err := primitive.ObjectIDFromHex(f.CategoryID)
		if err != nil {
			return nil, false, nil
		}
		q["categories"] = oid
	}
	return q, true, nil
}

func (s *Store) ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	q, ok, err := productQuery(f)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if !ok {
		return []models.Product{}, 0, nil
	}

	total, err := s.coll(store.Products).CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	dir := 1
	if f.Sort == store.SortNewest {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: dir}, {Key: "_id", Value: dir}})
	if f.Page != nil {
		opts.SetSkip(int64(f.Page.Skip())).SetLimit(int64(f.Page.Limit))
	}

	cur, err := s.coll(store.Products).Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer cur.Close(ctx)

	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, *d.model())
	}
	return products, total, nil
}

func (s *Store) updateProduct(ctx context.Context, op, id string, update interface{}) (*models.Product, error) {
	oid, err := objectID(op, id)
	if err != nil {
		return nil, err
	}

	var doc productDoc
	err = s.coll(store.Products).FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, afterUpdate()).Decode(&doc)
	if err != nil {
		return nil, translate(op, err)
	}
	return doc.model(), nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch store.ProductPatch) (*models.Product, error) {
	set := bson.M{"updatedAt": now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Price != nil {
		d, err := toDecimal128(*patch.Price)
		if err != nil {
			return nil, fmt.Errorf("update product: price: %w", err)
		}
		set["price"] = d
	}
	if patch.ShortDescription != nil {
		set["shortDescription"] = *patch.ShortDescription
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.CategoryID != nil {
		oid, err := primitive.ObjectIDFromHex(*patch.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("update product: category id %q: %w", *patch.CategoryID, err)
		}
		set["categories"] = oid
	}
	if patch.Images != nil {
		set["images"] = nonNil(*patch.Images)
	}
	if patch.Keywords != nil {
		set["keywords"] = nonNil(*patch.Keywords)
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.Dimensions != nil {
		set["dimensions"] = dimensionsDoc{Width: patch.Dimensions.Width, Height: patch.Dimensions.Height}
	}
	if patch.Type != nil {
		set["type"] = int(*patch.Type)
	}
	return s.updateProduct(ctx, "update product", id, bson.M{"$set": set})
}

func (s *Store) ToggleProductStatus(ctx context.Context, id string) (*models.Product, error) {
	return s.updateProduct(ctx, "toggle product", id, togglePipeline())
}

func (s *Store) AddProductImage(ctx context.Context, id, url string) (*models.Product, error) {
	return s.updateProduct(ctx, "add product image", id, bson.M{
		"$push": bson.M{"images": url},
		"$set":  bson.M{"updatedAt": now()},
	})
}

func (s *Store) ProductPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	oids := objectIDs(store.Dedupe(ids))
	if len(oids) == 0 {
		return prices, nil
	}

	cur, err := s.coll(store.Products).Find(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"_id": 1, "price": 1}))
	if err != nil {
		return nil, fmt.Errorf("product prices: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID    primitive.ObjectID   `bson:"_id"`
			Price primitive.Decimal128 `bson:"price"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode price: %w", err)
		}
		prices[doc.ID.Hex()] = fromDecimal128(doc.Price)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return prices, nil
}

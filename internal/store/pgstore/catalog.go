package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
)

const categoryColumns = `id, name, description, status, created_at, updated_at`

func scanCategory(row scanner) (*models.Category, error) {
	c := &models.Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	id := uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, name, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`,
		id, c.Name, c.Description, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return translate("create category", err)
	}

	c.ID = id
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get category", err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return categories, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, patch store.CategoryPatch) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE categories SET
			name        = COALESCE($2::text, name),
			description = COALESCE($3::text, description),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+categoryColumns,
		id, patch.Name, patch.Description)
	c, err := scanCategory(row)
	if err != nil {
		return nil, translate("update category", err)
	}
	return c, nil
}

func (s *Store) ToggleCategoryStatus(ctx context.Context, id string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE categories SET status = NOT status, updated_at = NOW() WHERE id = $1 RETURNING `+categoryColumns,
		id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, translate("toggle category", err)
	}
	return c, nil
}

const productColumns = `id, name, price, short_description, description, category_id, images, keywords,
	stock, width, height, type, status, created_at, updated_at`

func scanProduct(row scanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.ShortDescription,
		&p.Description,
		&p.CategoryID,
		pq.Array(&p.Images),
		pq.Array(&p.Keywords),
		&p.Stock,
		&p.Dimensions.Width,
		&p.Dimensions.Height,
		&p.Type,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Images = nonNil(p.Images)
	p.Keywords = nonNil(p.Keywords)
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, name, price, short_description, description, category_id, images, keywords,
			stock, width, height, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING created_at, updated_at`

	id := uuid.NewString()
	p.Images = nonNil(p.Images)
	p.Keywords = nonNil(p.Keywords)
	err := s.db.QueryRowContext(ctx, query,
		id, p.Name, p.Price, p.ShortDescription, p.Description, p.CategoryID,
		pq.Array(p.Images), pq.Array(p.Keywords),
		p.Stock, p.Dimensions.Width, p.Dimensions.Height, p.Type, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return translate("create product", err)
	}

	p.ID = id
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get product", err)
	}
	return p, nil
}

func productWhere(f store.ProductFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR %s = ANY(keywords))",
			arg(containsPattern(f.Search)), arg(f.Search)))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if f.CategoryID != "" {
		conds = append(conds, "category_id = "+arg(f.CategoryID))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	where, args := productWhere(f)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order := " ORDER BY seq ASC"
	if f.Sort == store.SortNewest {
		order = " ORDER BY seq DESC"
	}
	query := `SELECT ` + productColumns + ` FROM products` + where + order
	if f.Page != nil {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Page.Limit, f.Page.Skip())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return products, total, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch store.ProductPatch) (*models.Product, error) {
	var width, height *float64
	if patch.Dimensions != nil {
		width, height = &patch.Dimensions.Width, &patch.Dimensions.Height
	}

	query := `
		UPDATE products SET
			name              = COALESCE($2::text, name),
			price             = COALESCE($3::numeric, price),
			short_description = COALESCE($4::text, short_description),
			description       = COALESCE($5::text, description),
			category_id       = COALESCE($6::text, category_id),
			images            = COALESCE($7::text[], images),
			keywords          = COALESCE($8::text[], keywords),
			stock             = COALESCE($9::integer, stock),
			width             = COALESCE($10::double precision, width),
			height            = COALESCE($11::double precision, height),
			type              = COALESCE($12::smallint, type),
			updated_at        = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	row := s.db.QueryRowContext(ctx, query, id,
		patch.Name, patch.Price, patch.ShortDescription, patch.Description, patch.CategoryID,
		optArray(patch.Images), optArray(patch.Keywords),
		patch.Stock, width, height, patch.Type)
	p, err := scanProduct(row)
	if err != nil {
		return nil, translate("update product", err)
	}
	return p, nil
}

func (s *Store) ToggleProductStatus(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE products SET status = NOT status, updated_at = NOW() WHERE id = $1 RETURNING `+productColumns,
		id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, translate("toggle product", err)
	}
	return p, nil
}

func (s *Store) AddProductImage(ctx context.Context, id, url string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE products SET images = array_append(images, $2), updated_at = NOW() WHERE id = $1 RETURNING `+productColumns,
		id, url)
	p, err := scanProduct(row)
	if err != nil {
		return nil, translate("add product image", err)
	}
	return p, nil
}

func (s *Store) ProductPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	ids = store.Dedupe(ids)
	if len(ids) == 0 {
		return prices, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, price FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("product prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var price decimal.Decimal
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return prices, nil
}

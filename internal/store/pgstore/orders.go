package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/safar/shop-api/internal/database"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
)

const orderColumns = `id, user_id, total_amount, status, shipping_address, created_at, updated_at`

func scanOrder(row scanner) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.TotalAmount,
		&o.Status,
		&o.ShippingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Products = []models.LineItem{}
	return o, nil
}

func insertItems(ctx context.Context, q querier, orderID string, items []models.LineItem) error {
	for i, item := range items {
		_, err := q.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, quantity, price)
			 VALUES ($1, $2, $3, $4, $5)`,
			orderID, i, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return nil
}

// loadItems attaches line items to orders, keyed by order id.
func loadItems(ctx context.Context, q querier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*models.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item models.LineItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Products = append(o.Products, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

func getOrder(ctx context.Context, q querier, id string) (*models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, q, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	id := uuid.NewString()

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (id, user_id, total_amount, status, shipping_address, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			 RETURNING created_at, updated_at`,
			id, o.UserID, o.TotalAmount, o.Status, o.ShippingAddress,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return insertItems(ctx, tx, id, o.Products)
	})
	if err != nil {
		return translate("create order", err)
	}

	o.ID = id
	if o.Products == nil {
		o.Products = []models.LineItem{}
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := getOrder(ctx, s.db, id)
	if err != nil {
		return nil, translate("get order", err)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE $1 = '' OR user_id = $1
		ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var ptrs []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	if err := loadItems(ctx, s.db, ptrs); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (s *Store) UpdateOrder(ctx context.Context, id string, patch store.OrderPatch) (*models.Order, error) {
	var updated *models.Order

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET
				user_id          = COALESCE($2::text, user_id),
				total_amount     = COALESCE($3::numeric, total_amount),
				shipping_address = COALESCE($4::text, shipping_address),
				updated_at       = NOW()
			WHERE id = $1`,
			id, patch.UserID, patch.TotalAmount, patch.ShippingAddress)
		if err != nil {
			return fmt.Errorf("update order row: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if n == 0 {
			return sql.ErrNoRows
		}

		if patch.Products != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
				return fmt.Errorf("clear order items: %w", err)
			}
			if err := insertItems(ctx, tx, id, *patch.Products); err != nil {
				return err
			}
		}

		updated, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, translate("update order", err)
	}
	return updated, nil
}

func (s *Store) SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	var updated *models.Order

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(ctx,
			`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+orderColumns,
			id, status))
		if err != nil {
			return err
		}
		if err := loadItems(ctx, tx, []*models.Order{o}); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, translate("set order status", err)
	}
	return updated, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete order: %w", store.ErrNotFound)
	}
	return nil
}

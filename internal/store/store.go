// Package store defines the persistence contract shared by the mongo,
// postgres and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/shop-api/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Collection string

const (
	Users      Collection = "users"
	Categories Collection = "categories"
	Products   Collection = "products"
	Orders     Collection = "orders"
)

type SortOrder string

const (
	SortDefault SortOrder = ""
	SortNewest  SortOrder = "newest"
	SortOldest  SortOrder = "oldest"
)

// Patch fields are applied only when non-nil.
type UserPatch struct {
	UserName    *string
	Email       *string
	Phone       *string
	Password    *string
	FullName    *string
	Address     *string
	Avatar      *string
	DateOfBirth *time.Time
	Role        *models.Role
}

type CategoryPatch struct {
	Name        *string
	Description *string
}

type ProductPatch struct {
	Name             *string
	Price            *decimal.Decimal
	ShortDescription *string
	Description      *string
	CategoryID       *string
	Images           *[]string
	Keywords         *[]string
	Stock            *int
	Dimensions       *models.Dimensions
	Type             *models.ProductType
}

// OrderPatch replaces line items and total together; Products and
// TotalAmount are either both set or both nil.
type OrderPatch struct {
	UserID          *string
	Products        *[]models.LineItem
	TotalAmount     *decimal.Decimal
	ShippingAddress *string
}

type ProductFilter struct {
	// Search matches a case-insensitive substring of the name or an exact keyword.
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID string
	Sort       SortOrder
	Page       *Page
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserExists reports whether any user holds one of the non-empty values.
	UserExists(ctx context.Context, userName, email, phone string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*models.User, error)
	SetUserStatus(ctx context.Context, id string, status bool) (*models.User, error)
	DeleteUser(ctx context.Context, id string) (*models.User, error)
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*models.Category, error)
	ToggleCategoryStatus(ctx context.Context, id string) (*models.Category, error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*models.Product, error)
	ToggleProductStatus(ctx context.Context, id string) (*models.Product, error)
	AddProductImage(ctx context.Context, id, url string) (*models.Product, error)
	// ProductPrices returns the catalog price of every id that exists.
	ProductPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// ListOrders returns orders newest first; an empty userID lists all.
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*models.Order, error)
	SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// ReferenceFinder returns the subset of ids present in a collection.
// Malformed ids are reported as absent, not as errors.
type ReferenceFinder interface {
	Existing(ctx context.Context, coll Collection, ids []string) (map[string]struct{}, error)
}

type Store interface {
	UserStore
	CategoryStore
	ProductStore
	OrderStore
	ReferenceFinder
	Close(ctx context.Context) error
}

func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

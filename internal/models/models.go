package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Role int

const (
	RoleAdmin  Role = 0
	RoleMember Role = 1
)

type User struct {
	ID          string     `json:"id"`
	UserName    string     `json:"userName"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Password    string     `json:"-"`
	Role        Role       `json:"role"`
	FullName    string     `json:"fullName,omitempty"`
	Address     string     `json:"address,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Status      bool       `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      bool      `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ProductType int

const (
	ProductTypeStandard ProductType = 0
	ProductTypeFeatured ProductType = 1
	ProductTypeLimited  ProductType = 2
)

func (t ProductType) Valid() bool {
	return t >= ProductTypeStandard && t <= ProductTypeLimited
}

type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	ShortDescription string          `json:"shortDescription,omitempty"`
	Description      string          `json:"description,omitempty"`
	CategoryID       string          `json:"categories"`
	Images           []string        `json:"images"`
	Keywords         []string        `json:"keywords"`
	Stock            int             `json:"stock"`
	Dimensions       Dimensions      `json:"dimensions"`
	Type             ProductType     `json:"type"`
	Status           bool            `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type OrderStatus int

const (
	OrderStatusPlaced     OrderStatus = 0
	OrderStatusInProgress OrderStatus = 1
	OrderStatusCompleted  OrderStatus = 2
)

func (s OrderStatus) Valid() bool {
	return s >= OrderStatusPlaced && s <= OrderStatusCompleted
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPlaced:
		return "placed"
	case OrderStatusInProgress:
		return "in_progress"
	case OrderStatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// LineItem is a product reference with the quantity and unit price it was
// ordered at.
type LineItem struct {
	ProductID string          `json:"product"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	User            *User           `json:"user,omitempty"`
	Products        []LineItem      `json:"products"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress string          `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type OrderEventType string

const (
	OrderCreated       OrderEventType = "order.created"
	OrderUpdated       OrderEventType = "order.updated"
	OrderStatusChanged OrderEventType = "order.status_changed"
	OrderDeleted       OrderEventType = "order.deleted"
)

type OrderEvent struct {
	Type  OrderEventType `json:"type"`
	Order *Order         `json:"order"`
	At    time.Time      `json:"at"`
}

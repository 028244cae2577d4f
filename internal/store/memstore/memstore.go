// Package memstore is a map-backed store.Store used in dev mode and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
)

type record[T any] struct {
	seq int64
	val T
}

type Store struct {
	mu         sync.RWMutex
	seq        int64
	users      map[string]record[models.User]
	categories map[string]record[models.Category]
	products   map[string]record[models.Product]
	orders     map[string]record[models.Order]

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:      make(map[string]record[models.User]),
		categories: make(map[string]record[models.Category]),
		products:   make(map[string]record[models.Product]),
		orders:     make(map[string]record[models.Order]),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// sorted returns values in insertion order.
func sorted[T any](m map[string]record[T]) []T {
	recs := make([]record[T], 0, len(m))
	for _, r := range m {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]T, len(recs))
	for i, r := range recs {
		out[i] = r.val
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}

func cloneProduct(p models.Product) models.Product {
	p.Images = cloneStrings(p.Images)
	p.Keywords = cloneStrings(p.Keywords)
	return p
}

func cloneOrder(o models.Order) models.Order {
	o.Products = append([]models.LineItem{}, o.Products...)
	o.User = nil
	return o
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.users {
		if r.val.UserName == u.UserName || r.val.Email == u.Email || (u.Phone != "" && r.val.Phone == u.Phone) {
			return fmt.Errorf("create user: %w", store.ErrDuplicate)
		}
	}

	u.ID = uuid.NewString()
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = record[models.User]{seq: s.next(), val: *u}
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", store.ErrNotFound)
	}
	u := r.val
	return &u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.users {
		if r.val.Email == email {
			u := r.val
			return &u, nil
		}
	}
	return nil, fmt.Errorf("find user: %w", store.ErrNotFound)
}

func (s *Store) UserExists(_ context.Context, userName, email, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.users {
		if (userName != "" && r.val.UserName == userName) ||
			(email != "" && r.val.Email == email) ||
			(phone != "" && r.val.Phone == phone) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.users), nil
}

func (s *Store) UpdateUser(_ context.Context, id string, patch store.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("update user: %w", store.ErrNotFound)
	}
	u := r.val
	for otherID, o := range s.users {
		if otherID == id {
			continue
		}
		if (patch.UserName != nil && o.val.UserName == *patch.UserName) ||
			(patch.Email != nil && o.val.Email == *patch.Email) ||
			(patch.Phone != nil && *patch.Phone != "" && o.val.Phone == *patch.Phone) {
			return nil, fmt.Errorf("update user: %w", store.ErrDuplicate)
		}
	}

	if patch.UserName != nil {
		u.UserName = *patch.UserName
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.Password != nil {
		u.Password = *patch.Password
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Address != nil {
		u.Address = *patch.Address
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.DateOfBirth != nil {
		dob := *patch.DateOfBirth
		u.DateOfBirth = &dob
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	u.UpdatedAt = s.now()
	r.val = u
	s.users[id] = r
	return &u, nil
}

func (s *Store) SetUserStatus(_ context.Context, id string, status bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("set user status: %w", store.ErrNotFound)
	}
	r.val.Status = status
	r.val.UpdatedAt = s.now()
	s.users[id] = r
	u := r.val
	return &u, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("delete user: %w", store.ErrNotFound)
	}
	delete(s.users, id)
	u := r.val
	return &u, nil
}

func (s *Store) CreateCategory(_ context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.categories {
		if r.val.Name == c.Name {
			return fmt.Errorf("create category: %w", store.ErrDuplicate)
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.categories[c.ID] = record[models.Category]{seq: s.next(), val: *c}
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("get category: %w", store.ErrNotFound)
	}
	c := r.val
	return &c, nil
}

func (s *Store) ListCategories(context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.categories), nil
}

func (s *Store) UpdateCategory(_ context.Context, id string, patch store.CategoryPatch) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("update category: %w", store.ErrNotFound)
	}
	if patch.Name != nil {
		for otherID, o := range s.categories {
			if otherID != id && o.val.Name == *patch.Name {
				return nil, fmt.Errorf("update category: %w", store.ErrDuplicate)
			}
		}
		r.val.Name = *patch.Name
	}
	if patch.Description != nil {
		r.val.Description = *patch.Description
	}
	r.val.UpdatedAt = s.now()
	s.categories[id] = r
	c := r.val
	return &c, nil
}

func (s *Store) ToggleCategoryStatus(_ context.Context, id string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("toggle category: %w", store.ErrNotFound)
	}
	r.val.Status = !r.val.Status
	r.val.UpdatedAt = s.now()
	s.categories[id] = r
	c := r.val
	return &c, nil
}

func (s *Store) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	p.Images = cloneStrings(p.Images)
	p.Keywords = cloneStrings(p.Keywords)
	s.products[p.ID] = record[models.Product]{seq: s.next(), val: cloneProduct(*p)}
	return nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("get product: %w", store.ErrNotFound)
	}
	p := cloneProduct(r.val)
	return &p, nil
}

func matchProduct(p models.Product, f store.ProductFilter) bool {
	if f.Search != "" {
		hit := strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search))
		for _, k := range p.Keywords {
			if k == f.Search {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	return true
}

func (s *Store) ListProducts(_ context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Product
	for _, p := range sorted(s.products) {
		if matchProduct(p, f) {
			matched = append(matched, cloneProduct(p))
		}
	}
	if f.Sort == store.SortNewest {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if matched == nil {
		matched = []models.Product{}
	}
	return store.Window(matched, f.Page), int64(len(matched)), nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, patch store.ProductPatch) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("update product: %w", store.ErrNotFound)
	}
	p := r.val
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ShortDescription != nil {
		p.ShortDescription = *patch.ShortDescription
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.Images != nil {
		p.Images = cloneStrings(*patch.Images)
	}
	if patch.Keywords != nil {
		p.Keywords = cloneStrings(*patch.Keywords)
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Dimensions != nil {
		p.Dimensions = *patch.Dimensions
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	p.UpdatedAt = s.now()
	r.val = p
	s.products[id] = r
	out := cloneProduct(p)
	return &out, nil
}

func (s *Store) ToggleProductStatus(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("toggle product: %w", store.ErrNotFound)
	}
	r.val.Status = !r.val.Status
	r.val.UpdatedAt = s.now()
	s.products[id] = r
	p := cloneProduct(r.val)
	return &p, nil
}

func (s *Store) AddProductImage(_ context.Context, id, url string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("add product image: %w", store.ErrNotFound)
	}
	r.val.Images = append(cloneStrings(r.val.Images), url)
	r.val.UpdatedAt = s.now()
	s.products[id] = r
	p := cloneProduct(r.val)
	return &p, nil
}

func (s *Store) ProductPrices(_ context.Context, ids []string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		if r, ok := s.products[id]; ok {
			prices[id] = r.val.Price
		}
	}
	return prices, nil
}

func (s *Store) CreateOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = uuid.NewString()
	o.CreatedAt = s.now()
	o.UpdatedAt = o.CreatedAt
	if o.Products == nil {
		o.Products = []models.LineItem{}
	}
	s.orders[o.ID] = record[models.Order]{seq: s.next(), val: cloneOrder(*o)}
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order: %w", store.ErrNotFound)
	}
	o := cloneOrder(r.val)
	return &o, nil
}

func (s *Store) ListOrders(_ context.Context, userID string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sorted(s.orders)
	out := make([]models.Order, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if userID != "" && all[i].UserID != userID {
			continue
		}
		out = append(out, cloneOrder(all[i]))
	}
	return out, nil
}

func (s *Store) UpdateOrder(_ context.Context, id string, patch store.OrderPatch) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("update order: %w", store.ErrNotFound)
	}
	o := cloneOrder(r.val)
	if patch.UserID != nil {
		o.UserID = *patch.UserID
	}
	if patch.Products != nil {
		o.Products = append([]models.LineItem{}, *patch.Products...)
	}
	if patch.TotalAmount != nil {
		o.TotalAmount = *patch.TotalAmount
	}
	if patch.ShippingAddress != nil {
		o.ShippingAddress = *patch.ShippingAddress
	}
	o.UpdatedAt = s.now()
	r.val = o
	s.orders[id] = r
	out := cloneOrder(o)
	return &out, nil
}

func (s *Store) SetOrderStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("set order status: %w", store.ErrNotFound)
	}
	r.val.Status = status
	r.val.UpdatedAt = s.now()
	s.orders[id] = r
	o := cloneOrder(r.val)
	return &o, nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return fmt.Errorf("delete order: %w", store.ErrNotFound)
	}
	delete(s.orders, id)
	return nil
}

func (s *Store) Existing(_ context.Context, coll store.Collection, ids []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var has func(string) bool
	switch coll {
	case store.Users:
		has = func(id string) bool { _, ok := s.users[id]; return ok }
	case store.Categories:
		has = func(id string) bool { _, ok := s.categories[id]; return ok }
	case store.Products:
		has = func(id string) bool { _, ok := s.products[id]; return ok }
	case store.Orders:
		has = func(id string) bool { _, ok := s.orders[id]; return ok }
	default:
		return nil, fmt.Errorf("existing: unknown collection %q", coll)
	}

	found := make(map[string]struct{})
	for _, id := range ids {
		if has(id) {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

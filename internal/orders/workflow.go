// Package orders holds the order placement workflow: reference checks,
// pricing and the writes that follow them.
package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/refs"
	"github.com/safar/shop-api/internal/store"
	"github.com/safar/shop-api/internal/validate"
)

const msgProductsMissing = "One or more products do not exist"

// Store is the subset of store.Store the workflow needs.
type Store interface {
	store.OrderStore
	store.ReferenceFinder
	GetUser(ctx context.Context, id string) (*models.User, error)
	ProductPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// Notifier receives an event after every successful order write.
type Notifier interface {
	Publish(models.OrderEvent)
}

type LineItemInput struct {
	Product  string           `json:"product" validate:"required"`
	Quantity int              `json:"quantity" validate:"gte=0"`
	Price    *decimal.Decimal `json:"price"`
}

type CreateOrderCommand struct {
	UserID          string          `json:"userId" validate:"required"`
	Products        []LineItemInput `json:"products" validate:"dive"`
	ShippingAddress string          `json:"shippingAddress" validate:"required"`
}

// UpdateOrderCommand leaves a field unchanged when it is nil.
type UpdateOrderCommand struct {
	ID              string           `json:"id" validate:"required"`
	UserID          *string          `json:"userId"`
	Products        *[]LineItemInput `json:"products"`
	ShippingAddress *string          `json:"shippingAddress"`
}

type Service struct {
	store    Store
	refs     *refs.Validator
	prices   PriceSource
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Service)

func WithPriceSource(src PriceSource) Option {
	return func(s *Service) { s.prices = src }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(st Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		refs:   refs.NewValidator(st),
		prices: PriceFromRequest,
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, cmd CreateOrderCommand) (*models.Order, error) {
	const op = "orders.Create"

	if err := validate.Struct(op, cmd); err != nil {
		return nil, err
	}
	items, unpriced, err := normalizeItems(op, cmd.Products)
	if err != nil {
		return nil, err
	}

	user, err := s.checkReferences(ctx, op, cmd.UserID, true, items, false)
	if err != nil {
		return nil, err
	}

	if err := s.applyPrices(ctx, op, items, unpriced); err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          cmd.UserID,
		Products:        items,
		TotalAmount:     Total(items),
		Status:          models.OrderStatusPlaced,
		ShippingAddress: cmd.ShippingAddress,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, apperr.Internal(op, err)
	}
	order.User = user

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"items":    len(order.Products),
		"total":    order.TotalAmount.String(),
	}).Info("order created")
	s.publish(models.OrderCreated, order)

	return order, nil
}

func (s *Service) Update(ctx context.Context, cmd UpdateOrderCommand) (*models.Order, error) {
	const op = "orders.Update"

	if err := validate.Struct(op, cmd); err != nil {
		return nil, err
	}

	existing, err := s.store.GetOrder(ctx, cmd.ID)
	if err != nil {
		return nil, s.orderLookupError(op, cmd.ID, err)
	}

	userID := existing.UserID
	newUser := cmd.UserID != nil && *cmd.UserID != ""
	if newUser {
		userID = *cmd.UserID
	}

	var (
		items    []models.LineItem
		unpriced []int
	)
	if cmd.Products != nil {
		items, unpriced, err = normalizeItems(op, *cmd.Products)
		if err != nil {
			return nil, err
		}
	}

	// Only a newly supplied user id has to resolve; the stored one may have
	// been deleted since the order was placed.
	user, err := s.checkReferences(ctx, op, userID, newUser, items, true)
	if err != nil {
		return nil, err
	}

	patch := store.OrderPatch{}
	if userID != existing.UserID {
		patch.UserID = &userID
	}
	if cmd.Products != nil {
		if err := s.applyPrices(ctx, op, items, unpriced); err != nil {
			return nil, err
		}
		total := Total(items)
		patch.Products = &items
		patch.TotalAmount = &total
	}
	if cmd.ShippingAddress != nil && *cmd.ShippingAddress != "" {
		patch.ShippingAddress = cmd.ShippingAddress
	}

	updated, err := s.store.UpdateOrder(ctx, cmd.ID, patch)
	if err != nil {
		return nil, s.orderLookupError(op, cmd.ID, err)
	}
	updated.User = user

	s.log.WithField("order_id", updated.ID).Info("order updated")
	s.publish(models.OrderUpdated, updated)

	return updated, nil
}

// Delete removes the order and returns its id.
func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	const op = "orders.Delete"

	existing, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return "", s.orderLookupError(op, id, err)
	}
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return "", s.orderLookupError(op, id, err)
	}

	s.log.WithField("order_id", id).Info("order deleted")
	s.publish(models.OrderDeleted, existing)

	return id, nil
}

// ChangeStatus writes any valid status regardless of the current one.
func (s *Service) ChangeStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	const op = "orders.ChangeStatus"

	if !status.Valid() {
		return nil, apperr.Validation(op, "status must be one of 0, 1, 2")
	}

	updated, err := s.store.SetOrderStatus(ctx, id, status)
	if err != nil {
		return nil, s.orderLookupError(op, id, err)
	}
	// Status is already written, so a failed owner lookup is only logged.
	if err := s.populate(ctx, op, updated); err != nil {
		s.log.WithError(err).WithField("order_id", id).Warn("load order owner")
	}

	s.log.WithFields(logrus.Fields{"order_id": id, "status": status.String()}).Info("order status changed")
	s.publish(models.OrderStatusChanged, updated)

	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	const op = "orders.Get"

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, s.orderLookupError(op, id, err)
	}
	if err := s.populate(ctx, op, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) List(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, "orders.List", "")
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	const op = "orders.ListByUser"

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(op, "User with ID %s not found", userID)
		}
		return nil, apperr.Internal(op, err)
	}
	return s.list(ctx, op, userID)
}

func (s *Service) list(ctx context.Context, op, userID string) ([]models.Order, error) {
	orders, err := s.store.ListOrders(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	users := make(map[string]*models.User)
	for i := range orders {
		uid := orders[i].UserID
		u, ok := users[uid]
		if !ok {
			var err error
			if u, err = s.owner(ctx, uid); err != nil {
				return nil, apperr.Internal(op, err)
			}
			users[uid] = u
		}
		orders[i].User = u
	}
	return orders, nil
}

// checkReferences resolves the user and the product ids concurrently.
// userFirst picks which failure wins when both are missing. A missing user
// is tolerated, and reported as nil, unless requireUser is set.
func (s *Service) checkReferences(ctx context.Context, op, userID string, requireUser bool, items []models.LineItem, userFirst bool) (*models.User, error) {
	var (
		wg          sync.WaitGroup
		user        *models.User
		userErr     error
		productsOK  = true
		productsErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		user, userErr = s.store.GetUser(ctx, userID)
	}()

	if len(items) > 0 {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			productsOK, productsErr = s.refs.AllExist(ctx, store.Products, ids)
		}()
	}

	wg.Wait()

	userCheck := func() error {
		if userErr == nil {
			return nil
		}
		if errors.Is(userErr, store.ErrNotFound) {
			if !requireUser {
				return nil
			}
			return apperr.NotFound(op, "User with ID %s not found", userID)
		}
		return apperr.Internal(op, userErr)
	}
	productCheck := func() error {
		if productsErr != nil {
			return apperr.Internal(op, productsErr)
		}
		if !productsOK {
			return apperr.InvalidReference(op, msgProductsMissing)
		}
		return nil
	}

	checks := []func() error{productCheck, userCheck}
	if userFirst {
		checks = []func() error{userCheck, productCheck}
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// applyPrices fills catalog prices into the items at the unpriced indexes,
// or into every item when the catalog is the price source.
func (s *Service) applyPrices(ctx context.Context, op string, items []models.LineItem, unpriced []int) error {
	if s.prices == PriceFromCatalog {
		unpriced = make([]int, len(items))
		for i := range items {
			unpriced[i] = i
		}
	}
	if len(unpriced) == 0 {
		return nil
	}

	ids := make([]string, 0, len(unpriced))
	for _, i := range unpriced {
		ids = append(ids, items[i].ProductID)
	}
	prices, err := s.store.ProductPrices(ctx, ids)
	if err != nil {
		return apperr.Internal(op, err)
	}

	for _, i := range unpriced {
		price, ok := prices[items[i].ProductID]
		if !ok {
			return apperr.InvalidReference(op, msgProductsMissing)
		}
		items[i].Price = price
	}
	return nil
}

// normalizeItems defaults quantity to 1 and returns the indexes of items
// sent without a price.
func normalizeItems(op string, in []LineItemInput) ([]models.LineItem, []int, error) {
	items := make([]models.LineItem, 0, len(in))
	var unpriced []int
	for i, it := range in {
		if it.Product == "" {
			return nil, nil, apperr.Validation(op, "products[%d].product is required", i)
		}
		qty := it.Quantity
		if qty < 0 {
			return nil, nil, apperr.Validation(op, "products[%d].quantity must be at least 1", i)
		}
		if qty == 0 {
			qty = 1
		}

		item := models.LineItem{ProductID: it.Product, Quantity: qty}
		switch {
		case it.Price == nil:
			unpriced = append(unpriced, i)
		case it.Price.IsNegative():
			return nil, nil, apperr.Validation(op, "products[%d].price must not be negative", i)
		default:
			item.Price = *it.Price
		}
		items = append(items, item)
	}
	return items, unpriced, nil
}

// owner returns the order's user, or nil when it no longer exists.
func (s *Service) owner(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (s *Service) populate(ctx context.Context, op string, order *models.Order) error {
	u, err := s.owner(ctx, order.UserID)
	if err != nil {
		return apperr.Internal(op, err)
	}
	order.User = u
	return nil
}

func (s *Service) orderLookupError(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(op, "Order with ID %s not found", id)
	}
	return apperr.Internal(op, err)
}

func (s *Service) publish(t models.OrderEventType, order *models.Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(models.OrderEvent{Type: t, Order: order, At: s.now().UTC()})
}

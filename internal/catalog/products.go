package catalog

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/export"
	"github.com/safar/shop-api/internal/media"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/refs"
	"github.com/safar/shop-api/internal/store"
	"github.com/safar/shop-api/internal/validate"
)

var ErrMediaDisabled = errors.New("image uploads are not configured")

// Store is the subset of store.Store the product service needs.
type Store interface {
	store.ProductStore
	store.ReferenceFinder
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type CreateProductCommand struct {
	Name             string             `json:"name" validate:"required"`
	Price            *decimal.Decimal   `json:"price" validate:"required"`
	ShortDescription string             `json:"shortDescription"`
	Description      string             `json:"description"`
	CategoryID       string             `json:"categories" validate:"required"`
	Images           []string           `json:"images"`
	Keywords         []string           `json:"keywords"`
	Stock            int                `json:"stock" validate:"gte=0"`
	Dimensions       *models.Dimensions `json:"dimensions"`
	Type             models.ProductType `json:"type"`
}

// UpdateProductCommand leaves a field unchanged when it is nil.
type UpdateProductCommand struct {
	Name             *string             `json:"name"`
	Price            *decimal.Decimal    `json:"price"`
	ShortDescription *string             `json:"shortDescription"`
	Description      *string             `json:"description"`
	CategoryID       *string             `json:"categories"`
	Images           *[]string           `json:"images"`
	Keywords         *[]string           `json:"keywords"`
	Stock            *int                `json:"stock"`
	Dimensions       *models.Dimensions  `json:"dimensions"`
	Type             *models.ProductType `json:"type"`
}

type FindProductsQuery struct {
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID string
	SortByDate string
	Page       store.Page
}

type ProductPage struct {
	Products   []models.Product
	Total      int64
	Pagination store.Pagination
}

type ProductService struct {
	store    Store
	refs     *refs.Validator
	uploader media.Uploader
	log      logrus.FieldLogger
}

// NewProductService accepts a nil uploader; AddImage then fails with
// ErrMediaDisabled.
func NewProductService(st Store, uploader media.Uploader, log logrus.FieldLogger) *ProductService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProductService{store: st, refs: refs.NewValidator(st), uploader: uploader, log: log}
}

func (s *ProductService) MediaEnabled() bool {
	return s.uploader != nil
}

func (s *ProductService) Create(ctx context.Context, cmd CreateProductCommand) (*models.Product, error) {
	const op = "catalog.CreateProduct"

	cmd.Name = strings.TrimSpace(cmd.Name)
	if err := validate.Struct(op, cmd); err != nil {
		return nil, err
	}
	if cmd.Price.IsNegative() {
		return nil, apperr.Validation(op, "price must be at least 0")
	}
	if !cmd.Type.Valid() {
		return nil, apperr.Validation(op, "type must be one of 0, 1, 2")
	}
	if err := s.checkCategory(ctx, op, cmd.CategoryID); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:             cmd.Name,
		Price:            *cmd.Price,
		ShortDescription: cmd.ShortDescription,
		Description:      cmd.Description,
		CategoryID:       cmd.CategoryID,
		Images:           nonNil(cmd.Images),
		Keywords:         nonNil(cmd.Keywords),
		Stock:            cmd.Stock,
		Type:             cmd.Type,
		Status:           true,
	}
	if cmd.Dimensions != nil {
		p.Dimensions = *cmd.Dimensions
	}

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, apperr.Internal(op, err)
	}

	s.log.WithFields(logrus.Fields{"product_id": p.ID, "category_id": p.CategoryID}).Info("product created")
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, productError("catalog.GetProduct", id, err)
	}
	return p, nil
}

// ListPage returns one page of products in insertion order.
func (s *ProductService) ListPage(ctx context.Context, page store.Page) (*ProductPage, error) {
	return s.list(ctx, "catalog.ListProducts", store.ProductFilter{Page: &page})
}

func (s *ProductService) All(ctx context.Context) ([]models.Product, error) {
	products, _, err := s.store.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, apperr.Internal("catalog.AllProducts", err)
	}
	return products, nil
}

// Search matches the term against product names, ignoring case, and
// against keywords exactly.
func (s *ProductService) Search(ctx context.Context, term string, page store.Page) (*ProductPage, error) {
	const op = "catalog.SearchProducts"

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperr.Validation(op, "search term is required")
	}
	return s.list(ctx, op, store.ProductFilter{Search: term, Page: &page})
}

func (s *ProductService) Find(ctx context.Context, q FindProductsQuery) (*ProductPage, error) {
	const op = "catalog.FindProducts"

	if q.MinPrice != nil && q.MinPrice.IsNegative() {
		return nil, apperr.Validation(op, "minPrice must be at least 0")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, apperr.Validation(op, "minPrice must not exceed maxPrice")
	}

	filter := store.ProductFilter{
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		CategoryID: q.CategoryID,
		Page:       &q.Page,
	}
	switch store.SortOrder(q.SortByDate) {
	case store.SortDefault, store.SortNewest, store.SortOldest:
		filter.Sort = store.SortOrder(q.SortByDate)
	default:
		return nil, apperr.Validation(op, "sortByDate must be one of [newest oldest]")
	}

	return s.list(ctx, op, filter)
}

func (s *ProductService) list(ctx context.Context, op string, filter store.ProductFilter) (*ProductPage, error) {
	page := store.NewPage(filter.Page.Page, filter.Page.Limit)
	filter.Page = &page
	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &ProductPage{Products: products, Total: total, Pagination: store.NewPagination(page, total)}, nil
}

func (s *ProductService) Update(ctx context.Context, id string, cmd UpdateProductCommand) (*models.Product, error) {
	const op = "catalog.UpdateProduct"

	patch := store.ProductPatch{
		Price:            cmd.Price,
		ShortDescription: cmd.ShortDescription,
		Description:      cmd.Description,
		Images:           cmd.Images,
		Keywords:         cmd.Keywords,
		Stock:            cmd.Stock,
		Dimensions:       cmd.Dimensions,
		Type:             cmd.Type,
	}
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return nil, apperr.Validation(op, "name must not be empty")
		}
		patch.Name = &name
	}
	if cmd.Price != nil && cmd.Price.IsNegative() {
		return nil, apperr.Validation(op, "price must be at least 0")
	}
	if cmd.Stock != nil && *cmd.Stock < 0 {
		return nil, apperr.Validation(op, "stock must be at least 0")
	}
	if cmd.Type != nil && !cmd.Type.Valid() {
		return nil, apperr.Validation(op, "type must be one of 0, 1, 2")
	}
	if cmd.CategoryID != nil {
		if err := s.checkCategory(ctx, op, *cmd.CategoryID); err != nil {
			return nil, err
		}
		patch.CategoryID = cmd.CategoryID
	}

	p, err := s.store.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, productError(op, id, err)
	}

	s.log.WithField("product_id", id).Info("product updated")
	return p, nil
}

func (s *ProductService) ToggleStatus(ctx context.Context, id string) (*models.Product, error) {
	const op = "catalog.ToggleProductStatus"

	p, err := s.store.ToggleProductStatus(ctx, id)
	if err != nil {
		return nil, productError(op, id, err)
	}

	s.log.WithFields(logrus.Fields{"product_id": id, "status": p.Status}).Info("product status changed")
	return p, nil
}

// AddImage uploads file and appends the resulting URL to the product images.
func (s *ProductService) AddImage(ctx context.Context, id string, file io.Reader, filename string) (*models.Product, error) {
	const op = "catalog.AddProductImage"

	if s.uploader == nil {
		return nil, ErrMediaDisabled
	}
	if _, err := s.store.GetProduct(ctx, id); err != nil {
		return nil, productError(op, id, err)
	}

	url, err := s.uploader.Upload(ctx, file, filename)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	p, err := s.store.AddProductImage(ctx, id, url)
	if err != nil {
		return nil, productError(op, id, err)
	}

	s.log.WithFields(logrus.Fields{"product_id": id, "url": url}).Info("product image added")
	return p, nil
}

// Export writes every product to w as an xlsx workbook.
func (s *ProductService) Export(ctx context.Context, w io.Writer) error {
	const op = "catalog.ExportProducts"

	products, _, err := s.store.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return apperr.Internal(op, err)
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return apperr.Internal(op, err)
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	if err := export.WriteProducts(w, products, names); err != nil {
		return apperr.Internal(op, err)
	}
	return nil
}

func (s *ProductService) checkCategory(ctx context.Context, op, id string) error {
	if id == "" {
		return apperr.Validation(op, "categories is required")
	}
	ok, err := s.refs.AllExist(ctx, store.Categories, []string{id})
	if err != nil {
		return apperr.Internal(op, err)
	}
	if !ok {
		return apperr.InvalidReference(op, "Category with ID %s does not exist", id)
	}
	return nil
}

func productError(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(op, "Product with ID %s not found", id)
	}
	return apperr.Internal(op, err)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

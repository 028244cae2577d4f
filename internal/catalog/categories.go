// Package catalog manages categories and products.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
	"github.com/safar/shop-api/internal/validate"
)

type CreateCategoryCommand struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type UpdateCategoryCommand struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CategoryService struct {
	store store.CategoryStore
	log   logrus.FieldLogger
}

func NewCategoryService(st store.CategoryStore, log logrus.FieldLogger) *CategoryService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CategoryService{store: st, log: log}
}

func (s *CategoryService) Create(ctx context.Context, cmd CreateCategoryCommand) (*models.Category, error) {
	const op = "catalog.CreateCategory"

	cmd.Name = strings.TrimSpace(cmd.Name)
	if err := validate.Struct(op, cmd); err != nil {
		return nil, err
	}

	c := &models.Category{Name: cmd.Name, Description: cmd.Description, Status: true}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict(op, "Category %s already exists", cmd.Name)
		}
		return nil, apperr.Internal(op, err)
	}

	s.log.WithFields(logrus.Fields{"category_id": c.ID, "name": c.Name}).Info("category created")
	return c, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, categoryError("catalog.GetCategory", id, err)
	}
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Internal("catalog.ListCategories", err)
	}
	return cats, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, cmd UpdateCategoryCommand) (*models.Category, error) {
	const op = "catalog.UpdateCategory"

	patch := store.CategoryPatch{Description: cmd.Description}
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return nil, apperr.Validation(op, "name must not be empty")
		}
		patch.Name = &name
	}

	c, err := s.store.UpdateCategory(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) && patch.Name != nil {
			return nil, apperr.Conflict(op, "Category %s already exists", *patch.Name)
		}
		return nil, categoryError(op, id, err)
	}

	s.log.WithField("category_id", id).Info("category updated")
	return c, nil
}

// ToggleStatus flips the status atomically in the store.
func (s *CategoryService) ToggleStatus(ctx context.Context, id string) (*models.Category, error) {
	const op = "catalog.ToggleCategoryStatus"

	c, err := s.store.ToggleCategoryStatus(ctx, id)
	if err != nil {
		return nil, categoryError(op, id, err)
	}

	s.log.WithFields(logrus.Fields{"category_id": id, "status": c.Status}).Info("category status changed")
	return c, nil
}

func categoryError(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(op, "Category with ID %s not found", id)
	}
	return apperr.Internal(op, err)
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/pkg/util"
)

// CategoryService manages the ticket category directory.
type CategoryService struct {
	categories repository.CategoryRepository
	titleCaser cases.Caser
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{
		categories: categories,
		titleCaser: cases.Title(language.English),
	}
}

// CreateCategory adds a category. Names are normalized to title case and
// must be unique among live categories.
func (s *CategoryService) CreateCategory(ctx context.Context, name string) (*domain.TicketCategory, error) {
	name = s.titleCaser.String(strings.TrimSpace(name))
	if name == "" {
		return nil, util.NewValidationError("category name is required", nil)
	}

	exists, err := s.categories.ExistsByName(ctx, name)
	if err != nil {
		return nil, util.NewUnexpected(err)
	}
	if exists {
		return nil, util.NewConflict("a category with this name already exists", map[string]any{"name": name})
	}

	category := &domain.TicketCategory{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, util.NewUnexpected(err)
	}
	return category, nil
}

// GetCategory returns one live category.
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*domain.TicketCategory, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("category", map[string]any{"categoryId": id})
		}
		return nil, util.NewUnexpected(err)
	}
	return category, nil
}

// ListCategories returns live categories ordered by name.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.TicketCategory, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, util.NewUnexpected(err)
	}
	return categories, nil
}

// DeleteCategory soft-deletes a category. Existing tickets keep their
// reference; the category just stops being offered for new tickets.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("category", map[string]any{"categoryId": id})
		}
		return util.NewUnexpected(err)
	}

	category.IsDeleted = true
	if err := s.categories.Update(ctx, category); err != nil {
		return util.MapError(err)
	}
	return nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
	"github.com/angelmondragon/fashionplace-backend/pkg/pagination"
)

const featuredShelfSize = 8

// Service defines the behavior needed by the catalog controllers.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*CategoryDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Featured(ctx context.Context) (*FeaturedShelves, error)
}

type catalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, query productListQuery) (*productListPage, error)
	ListFlagged(ctx context.Context, column string, limit int) ([]models.Product, error)
}

type service struct {
	repo catalogRepository
}

// NewService constructs a catalog service with the provided repository.
func NewService(repo catalogRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryFromModel(row))
	}
	return out, nil
}

func (s *service) GetCategoryBySlug(ctx context.Context, slug string) (*CategoryDTO, error) {
	category, err := s.repo.FindCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup category")
	}
	dto := categoryFromModel(*category)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	sort := input.Sort
	switch sort {
	case "", SortNewest, SortPriceAsc, SortPriceDesc:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort order").
			WithDetails(map[string]string{"sort": input.Sort})
	}
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	page, err := s.repo.ListProducts(ctx, productListQuery{
		Pagination:   input.Pagination,
		CategorySlug: input.CategorySlug,
		Query:        input.Query,
		Sort:         sort,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	result := &ProductListResult{
		Products:   make([]ProductDTO, 0, len(page.Products)),
		NextCursor: page.NextCursor,
	}
	for _, product := range page.Products {
		result.Products = append(result.Products, productFromModel(product))
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}
	dto := productFromModel(*product)
	return &dto, nil
}

func (s *service) Featured(ctx context.Context) (*FeaturedShelves, error) {
	shelves := &FeaturedShelves{}
	for _, shelf := range []struct {
		column string
		target *[]ProductDTO
	}{
		{"new_arrival", &shelves.NewArrivals},
		{"top_rated", &shelves.TopRated},
		{"trending", &shelves.Trending},
	} {
		rows, err := s.repo.ListFlagged(ctx, shelf.column, featuredShelfSize)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list featured products")
		}
		out := make([]ProductDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, productFromModel(row))
		}
		*shelf.target = out
	}
	return shelves, nil
}

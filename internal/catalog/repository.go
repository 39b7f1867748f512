package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/pagination"
)

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindCategoryBySlug loads one category by its slug.
func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindProductByID loads a product with its categories.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Categories").
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

type productListQuery struct {
	Pagination   pagination.Params
	CategorySlug string
	Query        string
	Sort         string
}

type productListPage struct {
	Products   []models.Product
	NextCursor string
}

// ListProducts returns a filtered page of products. Cursor pagination keys
// on (created_at, id) and only applies to the newest-first ordering; price
// sorts return a single bounded page.
func (r *Repository) ListProducts(ctx context.Context, query productListQuery) (*productListPage, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Categories")

	if slug := strings.TrimSpace(query.CategorySlug); slug != "" {
		qb = qb.Where(
			"id IN (SELECT pc.product_id FROM product_categories pc JOIN categories c ON c.id = pc.category_id WHERE c.slug = ?)",
			slug,
		)
	}
	if search := strings.TrimSpace(query.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("LOWER(name) LIKE ?", pattern)
	}

	switch query.Sort {
	case SortPriceAsc:
		var rows []models.Product
		if err := qb.Order("price ASC").Order("id ASC").Limit(pageSize).Find(&rows).Error; err != nil {
			return nil, err
		}
		return &productListPage{Products: rows}, nil
	case SortPriceDesc:
		var rows []models.Product
		if err := qb.Order("price DESC").Order("id ASC").Limit(pageSize).Find(&rows).Error; err != nil {
			return nil, err
		}
		return &productListPage{Products: rows}, nil
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &productListPage{Products: rows, NextCursor: nextCursor}, nil
}

// ListFlagged returns products carrying the named boolean flag, newest first.
func (r *Repository) ListFlagged(ctx context.Context, column string, limit int) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Categories").
		Where(column+" = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

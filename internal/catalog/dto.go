package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/money"
	"github.com/angelmondragon/fashionplace-backend/pkg/pagination"
)

// Sort orders supported by the browse endpoint.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// CategoryDTO is the transport shape for a category.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ProductDTO is the transport shape for a product listing.
type ProductDTO struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	Price      string        `json:"price"`
	ImageURL   *string       `json:"image_url,omitempty"`
	NewArrival bool          `json:"new_arrival"`
	TopRated   bool          `json:"top_rated"`
	Trending   bool          `json:"trending"`
	Categories []CategoryDTO `json:"categories,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ListProductsInput captures the filter and pagination knobs for browsing.
type ListProductsInput struct {
	CategorySlug string
	Query        string
	Sort         string
	Pagination   pagination.Params
}

// ProductListResult carries one page of products plus the next cursor.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// FeaturedShelves groups the home page product sections.
type FeaturedShelves struct {
	NewArrivals []ProductDTO `json:"new_arrivals"`
	TopRated    []ProductDTO `json:"top_rated"`
	Trending    []ProductDTO `json:"trending"`
}

func categoryFromModel(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:   c.ID,
		Name: c.Name,
		Slug: c.Slug,
	}
}

func productFromModel(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:         p.ID,
		Name:       p.Name,
		Price:      money.Format(p.Price),
		ImageURL:   p.ImageURL,
		NewArrival: p.NewArrival,
		TopRated:   p.TopRated,
		Trending:   p.Trending,
		CreatedAt:  p.CreatedAt,
	}
	for _, category := range p.Categories {
		dto.Categories = append(dto.Categories, categoryFromModel(category))
	}
	return dto
}

package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/money"
)

// Identity names the owner of a cart. Exactly one side is set: CustomerID
// for authenticated customers, SessionToken for anonymous browsers. It is
// always passed explicitly, never pulled from ambient request state.
type Identity struct {
	CustomerID   *uuid.UUID
	SessionToken string
}

// IsCustomer reports whether the identity is an authenticated customer.
func (i Identity) IsCustomer() bool {
	return i.CustomerID != nil
}

// IsAnonymous reports whether the identity is a guest session.
func (i Identity) IsAnonymous() bool {
	return i.CustomerID == nil && i.SessionToken != ""
}

// ItemDTO is the transport shape for one cart line.
type ItemDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	SubTotal  string    `json:"sub_total"`
}

// CartDTO is the transport shape for a cart with its derived totals.
type CartDTO struct {
	ID         uuid.UUID `json:"id"`
	Items      []ItemDTO `json:"items"`
	ItemCount  int       `json:"item_count"`
	GrandTotal string    `json:"grand_total"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
}

// TotalsDTO carries the derived aggregates of a cart.
type TotalsDTO struct {
	ItemCount  int    `json:"item_count"`
	GrandTotal string `json:"grand_total"`
}

// MutationResult is returned from item writes: the touched line plus the
// cart aggregates after the write.
type MutationResult struct {
	Item       *ItemDTO `json:"item,omitempty"`
	ItemCount  int      `json:"item_count"`
	GrandTotal string   `json:"grand_total"`
}

func itemFromModel(item models.CartItem) ItemDTO {
	dto := ItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
	if item.Product != nil {
		dto.Name = item.Product.Name
		dto.UnitPrice = money.Format(item.Product.Price)
		dto.SubTotal = money.Format(money.Line(item.Product.Price, item.Quantity))
	}
	return dto
}

func cartFromModel(cart *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:        cart.ID,
		Items:     make([]ItemDTO, 0, len(cart.Items)),
		Completed: cart.Completed,
		CreatedAt: cart.CreatedAt,
	}
	total := decimal.Zero
	for _, item := range cart.Items {
		dto.Items = append(dto.Items, itemFromModel(item))
		dto.ItemCount += item.Quantity
		if item.Product != nil {
			total = total.Add(money.Line(item.Product.Price, item.Quantity))
		}
	}
	dto.GrandTotal = money.Format(total)
	return dto
}

func totalsFromItems(items []models.CartItem) TotalsDTO {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		count += item.Quantity
		if item.Product != nil {
			total = total.Add(money.Line(item.Product.Price, item.Quantity))
		}
	}
	return TotalsDTO{ItemCount: count, GrandTotal: money.Format(total)}
}

// GrandTotalDecimal recomputes the exact decimal total for a set of items.
func GrandTotalDecimal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Product != nil {
			total = total.Add(money.Line(item.Product.Price, item.Quantity))
		}
	}
	return total
}

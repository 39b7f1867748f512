package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
	"github.com/angelmondragon/fashionplace-backend/pkg/money"
)

// Actor names who is performing an order operation and with which role.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// ItemDTO is the transport shape for one order line.
type ItemDTO struct {
	ID        int64     `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	SubTotal  string    `json:"sub_total"`
}

// OrderDTO is the transport shape for an order with derived totals.
type OrderDTO struct {
	ID            int64             `json:"id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	PendingStatus enums.OrderStatus `json:"pending_status"`
	PlacedAt      time.Time         `json:"placed_at"`
	Items         []ItemDTO         `json:"items"`
	ItemCount     int               `json:"item_count"`
	GrandTotal    string            `json:"grand_total"`
}

func itemFromModel(item models.OrderItem) ItemDTO {
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

func orderFromModel(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:            order.ID,
		OwnerID:       order.OwnerID,
		PendingStatus: order.PendingStatus,
		PlacedAt:      order.PlacedAt,
		Items:         make([]ItemDTO, 0, len(order.Items)),
	}
	total := decimal.Zero
	for _, item := range order.Items {
		dto.Items = append(dto.Items, itemFromModel(item))
		dto.ItemCount += item.Quantity
		if item.Product != nil {
			total = total.Add(money.Line(item.Product.Price, item.Quantity))
		}
	}
	dto.GrandTotal = money.Format(total)
	return dto
}

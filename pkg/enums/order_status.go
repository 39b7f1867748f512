package enums

import "fmt"

// OrderStatus tracks payment settlement of an order.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "Pending"
	OrderStatusComplete OrderStatus = "Complete"
	OrderStatusFailed   OrderStatus = "Failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusComplete,
	OrderStatusFailed,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from the status.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusComplete || o == OrderStatusFailed
}

// CanTransitionTo reports whether the status may move to target.
// Pending may move to Complete or Failed; both are terminal.
func (o OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if !target.IsValid() {
		return false
	}
	return o == OrderStatusPending && target != OrderStatusPending
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

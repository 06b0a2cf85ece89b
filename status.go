package rxkart

// OrderStatus is the fixed order fulfillment status enum. Transitions
// move forward through the delivery chain; cancellation is only
// possible before shipping.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusAccepted       OrderStatus = "accepted"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// IsValid checks if the status is a valid OrderStatus.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusShipped,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target
// status.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusAccepted || target == OrderStatusCancelled
	case OrderStatusAccepted:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusOutForDelivery
	case OrderStatusOutForDelivery:
		return target == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// SellerStatus is the seller approval status. The intermediate
// "approving" and "rejecting" values exist only client-side, while an
// optimistic approval or rejection is awaiting server confirmation;
// they are never sent to or returned by the backend.
type SellerStatus string

const (
	SellerStatusPending   SellerStatus = "pending"
	SellerStatusApproving SellerStatus = "approving"
	SellerStatusRejecting SellerStatus = "rejecting"
	SellerStatusApproved  SellerStatus = "approved"
	SellerStatusRejected  SellerStatus = "rejected"
)

func (s SellerStatus) String() string {
	return string(s)
}

// IsIntermediate reports whether the status is a client-side
// in-flight marker rather than server state.
func (s SellerStatus) IsIntermediate() bool {
	return s == SellerStatusApproving || s == SellerStatusRejecting
}

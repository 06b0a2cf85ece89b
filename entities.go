package rxkart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role of an authenticated user.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleSeller        Role = "seller"
	RoleRegionalAdmin Role = "regional-admin"
	RoleSuperAdmin    Role = "super-admin"
)

// PaymentMode is passed through to the backend as a flag; no payment
// processing happens in this client.
type PaymentMode string

const (
	PaymentUPI PaymentMode = "UPI"
	PaymentCOD PaymentMode = "COD"
)

// Address is a shipping address.
type Address struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	PIN   string `json:"pin"`
	Phone string `json:"phone"`
}

// Product is a medicine listed by a seller.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	SellerID    string          `json:"sellerId,omitempty"`
}

// OrderItem is one product line inside an order.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is a customer purchase moving through the fulfillment chain.
type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	SellerID          string          `json:"sellerId,omitempty"`
	Items             []OrderItem     `json:"items"`
	Total             decimal.Decimal `json:"total"`
	PaymentMode       PaymentMode     `json:"paymentMode"`
	ShippingAddress   Address         `json:"shippingAddress"`
	Region            string          `json:"region,omitempty"`
	Status            OrderStatus     `json:"status"`
	StatusDescription string          `json:"statusDescription,omitempty"`
	ClientRef         string          `json:"clientRef,omitempty"`
	PlacedAt          time.Time       `json:"placedAt,omitempty"`
}

// User is any account known to the platform.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Region string `json:"region,omitempty"`
}

// Seller is a seller account together with its approval status.
type Seller struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	StoreName string       `json:"storeName,omitempty"`
	Region    string       `json:"region,omitempty"`
	Status    SellerStatus `json:"status"`
}

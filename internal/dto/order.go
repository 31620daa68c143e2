package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemRequest is one requested line.
type OrderItemRequest struct {
	Food      string          `json:"food"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	OrderType string          `json:"orderType"`
}

// GuestDetails carries guest checkout contact fields.
type GuestDetails struct {
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	TableNumber string `json:"tableNumber,omitempty"`
}

// OrderRequest is the body of create and update calls.
type OrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
	PaymentMethod   string             `json:"paymentMethod"`
	DeliveryAddress string             `json:"deliveryAddress"`
	TableNumber     string             `json:"tableNumber"`
	GuestDetails    *GuestDetails      `json:"guestDetails"`
}

// StatusRequest is the body of a status change.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=delivered cancelled"`
}

// FoodResponse is the expanded catalog entry on an order line.
type FoodResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
}

// OrderItemResponse is one order line.
type OrderItemResponse struct {
	Food      any     `json:"food"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	OrderType string  `json:"orderType"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID              string              `json:"id"`
	User            string              `json:"user"`
	Items           []OrderItemResponse `json:"items"`
	TotalAmount     float64             `json:"totalAmount"`
	DeliveryAddress string              `json:"deliveryAddress"`
	TableNumber     string              `json:"tableNumber,omitempty"`
	Status          string              `json:"status"`
	GuestDetails    *GuestDetails       `json:"guestDetails,omitempty"`
	PaymentMethod   string              `json:"paymentMethod"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Product represents a catalog product. Stock is mutated only through the
// store's conditional decrement/increment operations.
type Product struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Price       int64     `db:"price" json:"price"`
	Stock       int       `db:"stock" json:"stock"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	CategoryID  string    `db:"category_id" json:"category_id,omitempty"`
	Rating      float64   `db:"rating" json:"rating"`
	NumReviews  int       `db:"num_reviews" json:"num_reviews"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProductUpdate is the allow-listed set of fields a partial product update
// may touch. Stock, rating and review counts are deliberately absent: stock
// changes go through restock and the order flows, rating fields are owned
// by the review flow.
type ProductUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *int64  `json:"price,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Category groups products for browsing.
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Review is a buyer's rating of a product. Saving one triggers an explicit
// rating recompute on the product.
type Review struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"product_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Address is the shipping destination captured on an order. It is stored
// as a JSON column and never changes after the order is created.
type Address struct {
	FullName   string `json:"full_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Value implements driver.Valuer for JSONB storage.
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into Address", src)
	}
}

// LineItem is an immutable snapshot of a purchased product, captured at
// order-creation time. It is never re-derived from the live product.
type LineItem struct {
	ID        string `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	ProductID string `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	ImageURL  string `db:"image_url" json:"image_url,omitempty"`
}

// Order is a customer order with its line-item snapshots.
type Order struct {
	ID                 string        `db:"id" json:"id"`
	UserID             string        `db:"user_id" json:"user_id"`
	Items              []LineItem    `db:"-" json:"items"`
	TotalAmount        int64         `db:"total_amount" json:"total_amount"`
	Status             OrderStatus   `db:"status" json:"status"`
	PaymentStatus      PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentMethod      string        `db:"payment_method" json:"payment_method"`
	ShippingAddress    Address       `db:"shipping_address" json:"shipping_address"`
	Notes              string        `db:"notes" json:"notes,omitempty"`
	Carrier            *string       `db:"carrier" json:"carrier,omitempty"`
	TrackingNumber     *string       `db:"tracking_number" json:"tracking_number,omitempty"`
	ShippedAt          *time.Time    `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time    `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt        *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy        *string       `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason *string       `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	IdempotencyKey     string        `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// TrackingUpdate is the allow-listed set of tracking fields an admin may
// change on an order. Status, totals and identifiers are not reachable
// through it.
type TrackingUpdate struct {
	Carrier        *string `json:"carrier,omitempty"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
}

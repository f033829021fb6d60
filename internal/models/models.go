package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// OrderStatuses lists every status an order may carry. A status update
// overwrites the field with any of these values; no transition ordering
// is enforced.
var OrderStatuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

func ValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ValidRole(r string) bool {
	return r == RoleCustomer || r == RoleStaff || r == RoleAdmin
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"      json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	Role         string    `gorm:"not null;default:customer" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Plant struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string    `gorm:"not null;index"           json:"name"`
	Description       string    `json:"description"`
	Price             float64   `gorm:"not null"                 json:"price"`
	StockQuantity     uint      `gorm:"not null;default:0"       json:"stock_quantity"`
	LowStockThreshold uint      `gorm:"not null;default:5"       json:"low_stock_threshold"`
	Category          string    `json:"category"`
	CareLevel         string    `json:"care_level"`
	LightRequirement  string    `json:"light_requirement"`
	ImageURL          string    `json:"image_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CartItem is a per-user quantity counter for a plant. One row per
// (user, plant) pair; repeated adds bump Quantity.
type CartItem struct {
	ID       uint `gorm:"primaryKey"                               json:"id"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_cart_user_plant" json:"user_id"`
	PlantID  uint `gorm:"not null;uniqueIndex:idx_cart_user_plant" json:"plant_id"`
	Quantity uint `gorm:"not null;check:quantity > 0"              json:"quantity"`
}

type Order struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"index;not null"           json:"user_id"`
	Status      string    `gorm:"not null;default:pending" json:"status"`
	TotalAmount float64   `gorm:"not null"                 json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderItem snapshots the catalog price at purchase time. Price never
// changes after the row is written, so historical orders keep their
// value when the catalog moves.
type OrderItem struct {
	ID       uint    `gorm:"primaryKey"     json:"id"`
	OrderID  uint    `gorm:"index;not null" json:"order_id"`
	PlantID  uint    `gorm:"not null"       json:"plant_id"`
	Quantity uint    `gorm:"not null"       json:"quantity"`
	Price    float64 `gorm:"not null"       json:"price"`
}

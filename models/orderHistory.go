package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderHistory is the denormalized per-order row used for customer timeline
// reads. It is rewritten unconditionally on every import of the order, even
// when the order itself was skipped as unchanged.
type OrderHistory struct {
	OrderID       string          `gorm:"primaryKey;size:191" json:"order_id"`
	CustomerID    string          `gorm:"size:191;index;not null" json:"customer_id"`
	CustomerName  string          `gorm:"size:255" json:"customer_name"`
	SONumber      string          `gorm:"size:64;index" json:"so_number"`
	Status        string          `gorm:"size:40" json:"status"`
	DateIssued    time.Time       `gorm:"index" json:"date_issued"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	Salesman      string          `gorm:"size:100" json:"salesman"`
	LineItemCount int             `gorm:"default:0" json:"line_item_count"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

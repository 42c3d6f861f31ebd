package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"github.com/shopspring/decimal"
)

// SalesOrder is one ERP sales order. The primary key is the sanitized
// ERP-assigned order id; the customer-facing SONumber is carried but never
// used as a key, since Fishbowl reuses SO numbers.
type SalesOrder struct {
	ID         string `gorm:"primaryKey;size:191" json:"id"`
	SONumber   string `gorm:"size:64;index;not null" json:"so_number"`
	CustomerID string `gorm:"size:191;index;not null" json:"customer_id"`
	Status     string `gorm:"size:40" json:"status"`

	TotalPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	TotalTax         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_tax"`
	TotalIncludesTax bool            `gorm:"default:false" json:"total_includes_tax"`

	// Revenue and OrderValue sum non-excluded line items only; shipping and
	// processing-fee lines never reach these totals.
	Revenue       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"revenue"`
	OrderValue    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"order_value"`
	LineItemCount int             `gorm:"default:0" json:"line_item_count"`

	// AccountType is the customer's segment snapshotted at import time.
	AccountType     string `gorm:"size:20" json:"account_type"`
	CommissionMonth string `gorm:"size:7;index" json:"commission_month"` // YYYY-MM
	CommissionYear  int    `gorm:"index" json:"commission_year"`

	DateIssued time.Time `gorm:"index" json:"date_issued"`
	Salesman   string    `gorm:"size:100;index" json:"salesman"`
	Carrier    string    `gorm:"size:100" json:"carrier"`

	BillToName    string `gorm:"size:255" json:"bill_to_name"`
	BillToAddress string `gorm:"size:255" json:"bill_to_address"`
	BillToCity    string `gorm:"size:100" json:"bill_to_city"`
	BillToState   string `gorm:"size:10" json:"bill_to_state"`
	BillToZip     string `gorm:"size:16" json:"bill_to_zip"`
	ShipToName    string `gorm:"size:255" json:"ship_to_name"`

	// Set by CRM reconciliation when a Copper opportunity is matched.
	CrmOpportunityId int64 `gorm:"index" json:"crm_opportunity_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Line items carrying these markers are pass-through charges, not product
// revenue; they never contribute to order or customer revenue rollups.
var excludedLineMarkers = []string{
	"shipping",
	"cc processing",
	"credit card processing",
	"handling",
}

// IsExcludedLineItem reports whether a product number or description marks
// a non-revenue charge line.
func IsExcludedLineItem(productNumber, description string) bool {
	product := strings.ToLower(productNumber)
	desc := strings.ToLower(description)
	for _, marker := range excludedLineMarkers {
		if strings.Contains(product, marker) || strings.Contains(desc, marker) {
			return true
		}
	}
	return false
}

// OrderLineItem is one line of a sales order; the id is the sanitized
// ERP line identifier, so re-imports overwrite in place.
type OrderLineItem struct {
	ID          string `gorm:"primaryKey;size:191" json:"id"`
	OrderID     string `gorm:"size:191;index;not null" json:"order_id"`
	LineIndex   int    `gorm:"not null" json:"line_index"`
	ProductNumber string `gorm:"size:100;index" json:"product_number"`
	Description string `gorm:"size:255" json:"description"`

	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`

	Taxable       bool       `gorm:"default:false" json:"taxable"`
	ItemType      string     `gorm:"size:40" json:"item_type"`
	UOM           string     `gorm:"size:20" json:"uom"`
	DateScheduled *time.Time `json:"date_scheduled"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LineTotal is quantity * unit price.
func (li *OrderLineItem) LineTotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// IsExcluded reports whether this line is a non-revenue charge.
func (li *OrderLineItem) IsExcluded() bool {
	return IsExcludedLineItem(li.ProductNumber, li.Description)
}

// MapSalesOrdersById loads all orders into a snapshot map keyed by id.
func MapSalesOrdersById(ctx context.Context) (map[string]*SalesOrder, error) {
	db := config.GetDB()
	var orders []*SalesOrder
	if err := db.WithContext(ctx).Find(&orders).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*SalesOrder, len(orders))
	for _, o := range orders {
		result[o.ID] = o
	}
	return result, nil
}

// MapLineItemsByOrder loads all line items grouped by order id.
func MapLineItemsByOrder(ctx context.Context) (map[string][]*OrderLineItem, error) {
	db := config.GetDB()
	var items []*OrderLineItem
	if err := db.WithContext(ctx).Order("order_id, line_index").Find(&items).Error; err != nil {
		return nil, err
	}
	result := make(map[string][]*OrderLineItem)
	for _, li := range items {
		result[li.OrderID] = append(result[li.OrderID], li)
	}
	return result, nil
}

// ListOrdersInPeriod returns orders issued within [from, to).
func ListOrdersInPeriod(ctx context.Context, from, to time.Time) ([]*SalesOrder, error) {
	db := config.GetDB()
	var orders []*SalesOrder
	err := db.WithContext(ctx).
		Where("date_issued >= ? AND date_issued < ?", from, to).
		Order("date_issued").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	"github.com/shopspring/decimal"
)

// Customer is the ERP-side customer record. The primary key is the
// sanitized external-ERP customer identifier, so repeated imports of the
// same customer land on the same row.
type Customer struct {
	ID            string `gorm:"primaryKey;size:191" json:"id"`
	Name          string `gorm:"size:255;not null" json:"name"`
	AccountNumber string `gorm:"size:64;index" json:"account_number"`
	Email         string `gorm:"size:100" json:"email"`
	Phone         string `gorm:"size:32" json:"phone"`
	Contact       string `gorm:"size:255" json:"contact"`

	Street     string `gorm:"size:255" json:"street"`
	City       string `gorm:"size:100" json:"city"`
	State      string `gorm:"size:10" json:"state"`
	PostalCode string `gorm:"size:16" json:"postal_code"`
	Region     string `gorm:"size:100" json:"region"`

	// CompositeKey is normalized(name)|street|city|state|zip5, used to match
	// CRM companies that carry no account number.
	CompositeKey string `gorm:"size:512;index" json:"composite_key"`

	AccountType string `gorm:"size:20" json:"account_type"`
	// AccountTypeSource records which system last set the account type.
	AccountTypeSource string `gorm:"size:30" json:"account_type_source"`
	// NeedsReview marks customers created with a defaulted classification.
	NeedsReview  bool   `gorm:"default:false" json:"needs_review"`
	Salesman     string `gorm:"size:100;index" json:"salesman"`
	CrmCompanyId int64  `gorm:"index" json:"crm_company_id"`

	// Rolling stats refreshed on every import.
	LifetimeRevenue decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"lifetime_revenue"`
	OrderCount      int             `gorm:"default:0" json:"order_count"`
	FirstOrderDate  *time.Time      `json:"first_order_date"`
	LastOrderDate   *time.Time      `json:"last_order_date"`

	// Manual commission overrides; never touched by imports or recomputes.
	TransferStatus string `gorm:"size:20" json:"transfer_status"`
	OriginalOwner  string `gorm:"size:100" json:"original_owner"`

	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetCustomerById(ctx context.Context, id string) (*Customer, error) {
	db := config.GetDB()
	var customer Customer
	err := db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// MapCustomersById loads all customers into a snapshot map keyed by canonical id.
// The map is a per-run value; callers must not cache it across runs.
func MapCustomersById(ctx context.Context) (map[string]*Customer, error) {
	db := config.GetDB()
	var customers []*Customer
	if err := db.WithContext(ctx).Find(&customers).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*Customer, len(customers))
	for _, c := range customers {
		result[c.ID] = c
	}
	return result, nil
}

// MapCustomersByAccountNumber builds a snapshot keyed by ERP account number.
// Customers without one are skipped.
func MapCustomersByAccountNumber(ctx context.Context) (map[string]*Customer, error) {
	db := config.GetDB()
	var customers []*Customer
	if err := db.WithContext(ctx).Where("account_number <> ''").Find(&customers).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*Customer, len(customers))
	for _, c := range customers {
		result[c.AccountNumber] = c
	}
	return result, nil
}

// NormalizeContactFields formats the phone field and drops unparseable
// emails before persisting.
func (c *Customer) NormalizeContactFields() {
	c.Phone = utils.FormatPhoneNumber(c.Phone)
	if c.Email != "" && !utils.IsValidEmail(c.Email) {
		c.Email = ""
	}
}

package coppersync

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Custom field definition ids in the production Copper workspace. Each is
// env-overridable for sandbox workspaces.
var (
	fieldActive         = fieldIDFromEnv("COPPER_FIELD_ACTIVE", 712751)
	fieldAccountType    = fieldIDFromEnv("COPPER_FIELD_ACCOUNT_TYPE", 675914)
	fieldAccountOrderID = fieldIDFromEnv("COPPER_FIELD_ACCOUNT_ORDER_ID", 698467)
	fieldAccountID      = fieldIDFromEnv("COPPER_FIELD_ACCOUNT_ID", 713477)
	fieldRegion         = fieldIDFromEnv("COPPER_FIELD_REGION", 680701)
	fieldStreet         = fieldIDFromEnv("COPPER_FIELD_STREET", 698457)
	fieldCity           = fieldIDFromEnv("COPPER_FIELD_CITY", 698461)
	fieldState          = fieldIDFromEnv("COPPER_FIELD_STATE", 698465)
	fieldPostalCode     = fieldIDFromEnv("COPPER_FIELD_POSTAL_CODE", 698469)
)

// Account type dropdown option ids.
const (
	optionDistributor int64 = 1981470
	optionWholesale   int64 = 2063862
	optionRetail      int64 = 2066840
)

func fieldIDFromEnv(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

type CustomField struct {
	CustomFieldDefinitionID int64 `json:"custom_field_definition_id"`
	Value                   any   `json:"value"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type PhoneNumber struct {
	Number   string `json:"number"`
	Category string `json:"category"`
}

type Company struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	AssigneeID   *int64        `json:"assignee_id"`
	Address      *Address      `json:"address"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
	CustomFields []CustomField `json:"custom_fields"`
}

type Opportunity struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	CompanyID     *int64        `json:"company_id"`
	CompanyName   string        `json:"company_name"`
	Status        string        `json:"status"`
	CloseDate     string        `json:"close_date"` // MM/DD/YYYY per Copper
	MonetaryValue float64       `json:"monetary_value"`
	CustomFields  []CustomField `json:"custom_fields"`
}

// customFieldString reads a custom field value as a trimmed string.
func customFieldString(fields []CustomField, definitionID int64) string {
	for _, f := range fields {
		if f.CustomFieldDefinitionID != definitionID {
			continue
		}
		switch v := f.Value.(type) {
		case string:
			return strings.TrimSpace(v)
		case float64:
			// Copper returns numeric fields as float64; render integers bare.
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case nil:
			return ""
		default:
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}
	return ""
}

func customFieldInt(fields []CustomField, definitionID int64) int64 {
	for _, f := range fields {
		if f.CustomFieldDefinitionID != definitionID {
			continue
		}
		switch v := f.Value.(type) {
		case float64:
			return int64(v)
		case string:
			n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			return n
		}
	}
	return 0
}

func customFieldBool(fields []CustomField, definitionID int64) bool {
	for _, f := range fields {
		if f.CustomFieldDefinitionID == definitionID {
			b, ok := f.Value.(bool)
			return ok && b
		}
	}
	return false
}

// AccountNumber reads the Account Order ID custom field off a company. This
// is the field that carries the ERP account number; the separate Account ID
// field holds Copper's own account identifier.
func (c Company) AccountNumber() string {
	return customFieldString(c.CustomFields, fieldAccountOrderID)
}

// AccountID reads the Account ID custom field off a company.
func (c Company) AccountID() string {
	return customFieldString(c.CustomFields, fieldAccountID)
}

// AccountType maps the dropdown option to the segment name.
func (c Company) AccountType() string {
	switch customFieldInt(c.CustomFields, fieldAccountType) {
	case optionDistributor:
		return "distributor"
	case optionWholesale:
		return "wholesale"
	case optionRetail:
		return "retail"
	}
	return ""
}

func (c Company) Region() string {
	return customFieldString(c.CustomFields, fieldRegion)
}

func (c Company) IsActive() bool {
	return customFieldBool(c.CustomFields, fieldActive)
}

// StreetAddress prefers the dedicated custom fields and falls back to the
// native address block.
func (c Company) StreetAddress() (street, city, state, zip string) {
	street = customFieldString(c.CustomFields, fieldStreet)
	city = customFieldString(c.CustomFields, fieldCity)
	state = customFieldString(c.CustomFields, fieldState)
	zip = customFieldString(c.CustomFields, fieldPostalCode)
	if c.Address != nil {
		if street == "" {
			street = c.Address.Street
		}
		if city == "" {
			city = c.Address.City
		}
		if state == "" {
			state = c.Address.State
		}
		if zip == "" {
			zip = c.Address.PostalCode
		}
	}
	return street, city, state, zip
}

// AccountOrderID reads the order-linking custom field off an opportunity.
func (o Opportunity) AccountOrderID() string {
	return customFieldString(o.CustomFields, fieldAccountOrderID)
}

// AccountID reads the account identifier custom field off an opportunity.
func (o Opportunity) AccountID() string {
	return customFieldString(o.CustomFields, fieldAccountID)
}

// ChangeDetail is one field-level change a reconciliation run wants to make.
// Dry-run responses return these; live runs apply them.
type ChangeDetail struct {
	EntityID string `json:"entityId"`
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// Reconciliation decision actions.
const (
	DecisionUpdate   = "update"
	DecisionNoChange = "no_change"
)

// SyncDecision is one entity's reconciliation outcome: the action, the
// field-level changes it carries and any review concerns raised along the
// way. Concerns are additive, never fatal; a record can report several while
// the run still counts it a success.
type SyncDecision struct {
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Action     string         `json:"action"`
	Changes    []ChangeDetail `json:"changes,omitempty"`
	Concerns   []string       `json:"concerns,omitempty"`
}

type TriggerResponse struct {
	RunID  uint   `json:"runId"`
	Status string `json:"status"`
	DryRun bool   `json:"dryRun"`
}

type RunResponse struct {
	ID            uint   `json:"id"`
	Direction     string `json:"direction"`
	Status        string `json:"status"`
	DryRun        bool   `json:"dryRun"`
	TriggeredBy   string `json:"triggeredBy"`
	StartedAt     *string `json:"startedAt"`
	FinishedAt    *string `json:"finishedAt"`
	DurationMs    int64  `json:"durationMs"`
	RecordsSynced int    `json:"recordsSynced"`
	ErrorCount    int    `json:"errorCount"`
}

type RunDetailResponse struct {
	RunResponse
	Stats  any                 `json:"stats"`
	Errors []RunErrorResponse  `json:"errors"`
}

type RunErrorResponse struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	EntityId   string `json:"entityId"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

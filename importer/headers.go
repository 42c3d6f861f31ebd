package importer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingColumns is the sentinel behind MissingColumnsError, for callers
// that only care whether preflight rejected the file.
var ErrMissingColumns = errors.New("required columns missing")

// Canonical field names of an ERP sales-order export row.
const (
	FieldCustomerID       = "customerId"
	FieldSalesOrderID     = "salesOrderId"
	FieldLineItemID       = "lineItemId"
	FieldSONumber         = "soNumber"
	FieldStatus           = "status"
	FieldCustomerName     = "customerName"
	FieldCustomerContact  = "customerContact"
	FieldBillToName       = "billToName"
	FieldBillToAddress    = "billToAddress"
	FieldBillToCity       = "billToCity"
	FieldBillToState      = "billToState"
	FieldBillToZip        = "billToZip"
	FieldShipToName       = "shipToName"
	FieldCarrier          = "carrier"
	FieldTotalPrice       = "totalPrice"
	FieldTotalTax         = "totalTax"
	FieldTotalIncludesTax = "totalIncludesTax"
	FieldDateIssued       = "dateIssued"
	FieldSalesman         = "salesman"
	FieldProductNumber    = "productNumber"
	FieldProductDesc      = "productDescription"
	FieldProductQuantity  = "productQuantity"
	FieldUnitPrice        = "unitPrice"
	FieldTaxableFlag      = "totalTaxableFlag"
	FieldItemType         = "itemType"
	FieldUOM              = "uom"
	FieldDateScheduled    = "dateScheduledFulfillment"
)

// headerAliases maps folded header spellings to canonical fields. Export
// templates vary between ERP versions, so each field carries every spelling
// seen in the wild.
var headerAliases = map[string]string{
	"customerid": FieldCustomerID,
	"custid":     FieldCustomerID,
	"accountid":  FieldCustomerID,

	"salesorderid": FieldSalesOrderID,
	"soid":         FieldSalesOrderID,
	"bol":          FieldSalesOrderID,

	"soitemid":   FieldLineItemID,
	"lineitemid": FieldLineItemID,
	"solineid":   FieldLineItemID,

	"sonumber":       FieldSONumber,
	"sonum":          FieldSONumber,
	"so":             FieldSONumber,
	"ordernumber":    FieldSONumber,
	"salesordernumber": FieldSONumber,
	"num":            FieldSONumber,

	"status":       FieldStatus,
	"sostatus":     FieldStatus,
	"orderstatus":  FieldStatus,

	"customername": FieldCustomerName,
	"customer":     FieldCustomerName,
	"custname":     FieldCustomerName,

	"customercontact": FieldCustomerContact,
	"contact":         FieldCustomerContact,

	"billtoname":    FieldBillToName,
	"billto":        FieldBillToName,
	"billtoaddress": FieldBillToAddress,
	"billtostreet":  FieldBillToAddress,
	"billtocity":    FieldBillToCity,
	"billtostate":   FieldBillToState,
	"billtozip":     FieldBillToZip,
	"billtopostalcode": FieldBillToZip,

	"shiptoname": FieldShipToName,
	"shipto":     FieldShipToName,

	"carrier":       FieldCarrier,
	"carriername":   FieldCarrier,
	"shippingcarrier": FieldCarrier,

	"totalprice":     FieldTotalPrice,
	"total":          FieldTotalPrice,
	"ordertotal":     FieldTotalPrice,
	"totaltax":       FieldTotalTax,
	"tax":            FieldTotalTax,
	"totalincludestax": FieldTotalIncludesTax,
	"taxincluded":      FieldTotalIncludesTax,

	"dateissued":  FieldDateIssued,
	"issueddate":  FieldDateIssued,
	"issued":      FieldDateIssued,
	"orderdate":   FieldDateIssued,
	"datecreated": FieldDateIssued,

	"salesman":    FieldSalesman,
	"salesperson": FieldSalesman,
	"salesrep":    FieldSalesman,
	"rep":         FieldSalesman,

	"productnumber": FieldProductNumber,
	"product":       FieldProductNumber,
	"partnumber":    FieldProductNumber,
	"item":          FieldProductNumber,
	"itemnumber":    FieldProductNumber,

	"productdescription": FieldProductDesc,
	"description":        FieldProductDesc,
	"itemdescription":    FieldProductDesc,

	"productquantity": FieldProductQuantity,
	"quantity":        FieldProductQuantity,
	"qty":             FieldProductQuantity,
	"qtyordered":      FieldProductQuantity,

	"unitprice":    FieldUnitPrice,
	"price":        FieldUnitPrice,
	"productprice": FieldUnitPrice,

	"totaltaxableflag": FieldTaxableFlag,
	"taxable":          FieldTaxableFlag,
	"taxableflag":      FieldTaxableFlag,

	"itemtype":  FieldItemType,
	"linetype":  FieldItemType,

	"uom": FieldUOM,
	"unitofmeasure": FieldUOM,

	"datescheduledfulfillment": FieldDateScheduled,
	"datescheduled":            FieldDateScheduled,
	"scheduleddate":            FieldDateScheduled,
	"fulfillmentdate":          FieldDateScheduled,
}

// requiredFields must all resolve before any row is processed. The three
// ERP identifier columns are required: canonical ids are derived from them,
// never from display names or the reusable SO number.
var requiredFields = []string{
	FieldCustomerID,
	FieldSalesOrderID,
	FieldLineItemID,
	FieldSONumber,
	FieldCustomerName,
	FieldProductNumber,
	FieldProductQuantity,
	FieldUnitPrice,
	FieldDateIssued,
	FieldStatus,
}

// foldHeader strips everything but letters and digits and lowercases,
// so "SO Number", "so_number" and "SoNumber" all fold to "sonumber".
func foldHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HeaderMap maps a column index to its canonical field.
type HeaderMap struct {
	Columns    map[int]string
	Unresolved []string
}

// ResolveHeaders matches the raw header row against the alias table.
// Unresolvable headers are collected, not fatal.
func ResolveHeaders(raw []string) HeaderMap {
	hm := HeaderMap{Columns: make(map[int]string)}
	seen := make(map[string]bool)
	for i, h := range raw {
		folded := foldHeader(h)
		if folded == "" {
			continue
		}
		field, ok := headerAliases[folded]
		if !ok {
			hm.Unresolved = append(hm.Unresolved, h)
			continue
		}
		// First column wins when a field appears twice.
		if seen[field] {
			continue
		}
		seen[field] = true
		hm.Columns[i] = field
	}
	return hm
}

// MissingColumnsError reports the required canonical fields a file lacks.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingColumns
}

// Preflight rejects the file before row processing when required fields
// are unresolvable. The full missing list is reported at once.
func (hm HeaderMap) Preflight() error {
	resolved := make(map[string]bool, len(hm.Columns))
	for _, field := range hm.Columns {
		resolved[field] = true
	}
	var missing []string
	for _, field := range requiredFields {
		if !resolved[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// Apply converts a raw row into a canonical-field map.
func (hm HeaderMap) Apply(row []string) map[string]string {
	record := make(map[string]string, len(hm.Columns))
	for i, field := range hm.Columns {
		if i < len(row) {
			record[field] = strings.TrimSpace(row[i])
		}
	}
	return record
}

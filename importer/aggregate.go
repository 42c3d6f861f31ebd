package importer

import (
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"github.com/shopspring/decimal"
)

// ParsedLine is one normalized line-item row.
type ParsedLine struct {
	LineID        string
	ProductNumber string
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Taxable       bool
	ItemType      string
	UOM           string
	DateScheduled *time.Time
}

// Revenue is the line's extended price.
func (pl ParsedLine) Revenue() decimal.Decimal {
	return pl.Quantity.Mul(pl.UnitPrice)
}

// Excluded reports whether the line is a pass-through charge (shipping,
// card processing) that never contributes to revenue rollups.
func (pl ParsedLine) Excluded() bool {
	return models.IsExcludedLineItem(pl.ProductNumber, pl.Description)
}

// ParsedOrder is one sales order reassembled from its rows, keyed by the
// ERP-assigned order id. Order-level fields come from the first row seen
// for that id. Revenue, OrderValue and LineItemCount are filled by the
// first-pass aggregation over non-excluded lines.
type ParsedOrder struct {
	OrderID          string
	SONumber         string
	CustomerID       string
	CustomerName     string
	CustomerContact  string
	Status           string
	TotalPrice       decimal.Decimal
	TotalTax         decimal.Decimal
	TotalIncludesTax bool
	Revenue          decimal.Decimal
	OrderValue       decimal.Decimal
	LineItemCount    int
	DateIssued       time.Time
	Salesman         string
	Carrier          string
	BillToName       string
	BillToAddress    string
	BillToCity       string
	BillToState      string
	BillToZip        string
	ShipToName       string
	Lines            []ParsedLine
	RowNumbers       []int
}

// CustomerRollup accumulates the first-pass revenue aggregation per customer.
// LifetimeRevenue carries only non-excluded line revenue.
type CustomerRollup struct {
	CustomerID      string
	Name            string
	Contact         string
	Street          string
	City            string
	State           string
	Zip             string
	Salesman        string
	LifetimeRevenue decimal.Decimal
	OrderCount      int
	FirstOrderDate  time.Time
	LastOrderDate   time.Time
}

// ParseResult is everything the upserter needs: grouped orders, per-customer
// rollups, and the non-fatal warnings collected along the way.
type ParseResult struct {
	Orders      []*ParsedOrder
	Customers   map[string]*CustomerRollup
	Warnings    []string
	SkippedRows int
	TotalRows   int
}

// GroupRows folds raw data rows into orders and customer rollups. A row
// missing any required identifier (customer id, order number, order id, or
// line id) is skipped and counted; the run continues. Row numbers in
// warnings are 1-based and include the header.
func GroupRows(hm HeaderMap, rows [][]string) *ParseResult {
	result := &ParseResult{
		Customers: make(map[string]*CustomerRollup),
		TotalRows: len(rows) - 1,
	}
	orderIndex := make(map[string]*ParsedOrder)

	for i, raw := range rows[1:] {
		rowNum := i + 2
		record := hm.Apply(raw)

		customerID := CustomerID(record[FieldCustomerID])
		orderID := OrderID(record[FieldSalesOrderID])
		lineID := LineItemID(record[FieldLineItemID])
		soNumber := record[FieldSONumber]
		if customerID == "" || orderID == "" || lineID == "" || soNumber == "" {
			result.SkippedRows++
			result.Warnings = append(result.Warnings,
				warnf(rowNum, "missing required identifier; row skipped"))
			continue
		}

		order, exists := orderIndex[orderID]
		if !exists {
			order = parseOrderLevel(record, rowNum, result)
			orderIndex[orderID] = order
			result.Orders = append(result.Orders, order)
		}
		order.RowNumbers = append(order.RowNumbers, rowNum)

		line, ok := parseLine(record)
		if !ok {
			result.SkippedRows++
			result.Warnings = append(result.Warnings,
				warnf(rowNum, "unparseable quantity or unit price; line skipped"))
		} else if line.ProductNumber != "" {
			order.Lines = append(order.Lines, line)
		}
	}

	// First-pass revenue aggregation: pre-sum each order's non-excluded
	// line revenue, then fold orders into per-customer rollups.
	for _, order := range result.Orders {
		for _, line := range order.Lines {
			order.OrderValue = order.OrderValue.Add(line.Revenue())
			if line.Excluded() {
				continue
			}
			order.Revenue = order.Revenue.Add(line.Revenue())
		}
		order.LineItemCount = len(order.Lines)

		rollup, exists := result.Customers[order.CustomerID]
		if !exists {
			rollup = &CustomerRollup{
				CustomerID: order.CustomerID,
				Name:       order.CustomerName,
				Contact:    order.CustomerContact,
				Street:     order.BillToAddress,
				City:       order.BillToCity,
				State:      NormalizeState(order.BillToState),
				Zip:        Zip5(order.BillToZip),
				Salesman:   order.Salesman,
			}
			result.Customers[order.CustomerID] = rollup
		}
		rollup.LifetimeRevenue = rollup.LifetimeRevenue.Add(order.Revenue)
		rollup.OrderCount++
		if !order.DateIssued.IsZero() {
			if rollup.FirstOrderDate.IsZero() || order.DateIssued.Before(rollup.FirstOrderDate) {
				rollup.FirstOrderDate = order.DateIssued
			}
			if order.DateIssued.After(rollup.LastOrderDate) {
				rollup.LastOrderDate = order.DateIssued
			}
		}
	}

	return result
}

func parseOrderLevel(record map[string]string, rowNum int, result *ParseResult) *ParsedOrder {
	order := &ParsedOrder{
		OrderID:         OrderID(record[FieldSalesOrderID]),
		SONumber:        record[FieldSONumber],
		CustomerID:      CustomerID(record[FieldCustomerID]),
		CustomerName:    record[FieldCustomerName],
		CustomerContact: record[FieldCustomerContact],
		Status:          record[FieldStatus],
		Salesman:        record[FieldSalesman],
		Carrier:         record[FieldCarrier],
		BillToName:      record[FieldBillToName],
		BillToAddress:   record[FieldBillToAddress],
		BillToCity:      record[FieldBillToCity],
		BillToState:     record[FieldBillToState],
		BillToZip:       record[FieldBillToZip],
		ShipToName:      record[FieldShipToName],
	}

	if total, ok := ParseAmount(record[FieldTotalPrice]); ok {
		order.TotalPrice = total
	} else {
		result.Warnings = append(result.Warnings, warnf(rowNum, "unparseable totalPrice; defaulted to 0"))
	}
	if tax, ok := ParseAmount(record[FieldTotalTax]); ok {
		order.TotalTax = tax
	}
	order.TotalIncludesTax = ParseBool(record[FieldTotalIncludesTax])

	if issued, ok := ParseDate(record[FieldDateIssued]); ok {
		order.DateIssued = issued
	} else {
		result.Warnings = append(result.Warnings, warnf(rowNum, "unparseable dateIssued; defaulted to zero time"))
	}

	return order
}

func parseLine(record map[string]string) (ParsedLine, bool) {
	qty, qtyOK := ParseAmount(record[FieldProductQuantity])
	price, priceOK := ParseAmount(record[FieldUnitPrice])
	if !qtyOK || !priceOK {
		return ParsedLine{}, false
	}
	line := ParsedLine{
		LineID:        LineItemID(record[FieldLineItemID]),
		ProductNumber: record[FieldProductNumber],
		Description:   record[FieldProductDesc],
		Quantity:      qty,
		UnitPrice:     price,
		Taxable:       ParseBool(record[FieldTaxableFlag]),
		ItemType:      record[FieldItemType],
		UOM:           record[FieldUOM],
	}
	if scheduled, ok := ParseDate(record[FieldDateScheduled]); ok && !scheduled.IsZero() {
		line.DateScheduled = &scheduled
	}
	return line, true
}

func warnf(rowNum int, msg string) string {
	return fmt.Sprintf("row %d: %s", rowNum, msg)
}

package importer

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const progressUpdateEvery = 50

// snapshot holds the bulk-preloaded state of the DB for one import run.
// It is built per run and discarded; nothing here is cached globally.
type snapshot struct {
	customers map[string]*models.Customer
	orders    map[string]*models.SalesOrder
	lines     map[string][]*models.OrderLineItem
}

func loadSnapshot(ctx context.Context) (*snapshot, error) {
	customers, err := models.MapCustomersById(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := models.MapSalesOrdersById(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := models.MapLineItemsByOrder(ctx)
	if err != nil {
		return nil, err
	}
	return &snapshot{customers: customers, orders: orders, lines: lines}, nil
}

// customerFromRollup builds the row an import run wants to store. Fields the
// import never owns (CRM linkage, manual overrides) are left zero and are
// preserved by applyRollup on update.
func customerFromRollup(rollup *CustomerRollup) *models.Customer {
	first := rollup.FirstOrderDate
	last := rollup.LastOrderDate
	c := &models.Customer{
		ID:              rollup.CustomerID,
		Name:            rollup.Name,
		Contact:         rollup.Contact,
		Street:          rollup.Street,
		City:            rollup.City,
		State:           NormalizeState(rollup.State),
		PostalCode:      rollup.Zip,
		Salesman:        rollup.Salesman,
		LifetimeRevenue: rollup.LifetimeRevenue,
		OrderCount:      rollup.OrderCount,
	}
	if !first.IsZero() {
		c.FirstOrderDate = &first
	}
	if !last.IsZero() {
		c.LastOrderDate = &last
	}
	c.CompositeKey = CompositeCustomerKey(c.Name, c.Street, c.City, c.State, c.PostalCode)
	return c
}

// customerChanged reports whether any import-owned field differs. Salesman
// is not import-owned on existing customers: CRM-managed rep assignments
// survive re-imports.
func customerChanged(existing, incoming *models.Customer) bool {
	switch {
	case !TextEqual(existing.Name, incoming.Name),
		!TextEqual(existing.Contact, incoming.Contact),
		!TextEqual(existing.Street, incoming.Street),
		!TextEqual(existing.City, incoming.City),
		existing.State != incoming.State,
		existing.PostalCode != incoming.PostalCode,
		!AmountsEqual(existing.LifetimeRevenue, incoming.LifetimeRevenue),
		existing.OrderCount != incoming.OrderCount:
		return true
	}
	if !timePtrEqual(existing.FirstOrderDate, incoming.FirstOrderDate) {
		return true
	}
	if !timePtrEqual(existing.LastOrderDate, incoming.LastOrderDate) {
		return true
	}
	return false
}

// applyRollup copies the import-owned fields onto the stored row, leaving
// CRM linkage, rep assignment, account classification and manual commission
// overrides untouched.
func applyRollup(existing, incoming *models.Customer) {
	existing.Name = incoming.Name
	existing.Contact = incoming.Contact
	existing.Street = incoming.Street
	existing.City = incoming.City
	existing.State = incoming.State
	existing.PostalCode = incoming.PostalCode
	existing.LifetimeRevenue = incoming.LifetimeRevenue
	existing.OrderCount = incoming.OrderCount
	existing.FirstOrderDate = incoming.FirstOrderDate
	existing.LastOrderDate = incoming.LastOrderDate
	existing.CompositeKey = incoming.CompositeKey
}

func orderFromParsed(po *ParsedOrder, accountType string) *models.SalesOrder {
	order := &models.SalesOrder{
		ID:               po.OrderID,
		SONumber:         po.SONumber,
		CustomerID:       po.CustomerID,
		Status:           po.Status,
		TotalPrice:       po.TotalPrice,
		TotalTax:         po.TotalTax,
		TotalIncludesTax: po.TotalIncludesTax,
		Revenue:          po.Revenue,
		OrderValue:       po.OrderValue,
		LineItemCount:    po.LineItemCount,
		AccountType:      accountType,
		DateIssued:       po.DateIssued,
		Salesman:         po.Salesman,
		Carrier:          po.Carrier,
		BillToName:       po.BillToName,
		BillToAddress:    po.BillToAddress,
		BillToCity:       po.BillToCity,
		BillToState:      NormalizeState(po.BillToState),
		BillToZip:        po.BillToZip,
		ShipToName:       po.ShipToName,
	}
	if !po.DateIssued.IsZero() {
		order.CommissionMonth = po.DateIssued.Format("2006-01")
		order.CommissionYear = po.DateIssued.Year()
	}
	return order
}

func orderChanged(existing, incoming *models.SalesOrder) bool {
	switch {
	case !TextEqual(existing.Status, incoming.Status),
		!AmountsEqual(existing.TotalPrice, incoming.TotalPrice),
		!AmountsEqual(existing.TotalTax, incoming.TotalTax),
		existing.TotalIncludesTax != incoming.TotalIncludesTax,
		!AmountsEqual(existing.Revenue, incoming.Revenue),
		!AmountsEqual(existing.OrderValue, incoming.OrderValue),
		existing.LineItemCount != incoming.LineItemCount,
		existing.AccountType != incoming.AccountType,
		existing.CommissionMonth != incoming.CommissionMonth,
		!existing.DateIssued.Equal(incoming.DateIssued),
		!TextEqual(existing.Salesman, incoming.Salesman),
		!TextEqual(existing.Carrier, incoming.Carrier),
		!TextEqual(existing.BillToName, incoming.BillToName),
		!TextEqual(existing.BillToAddress, incoming.BillToAddress),
		!TextEqual(existing.BillToCity, incoming.BillToCity),
		existing.BillToState != incoming.BillToState,
		existing.BillToZip != incoming.BillToZip,
		!TextEqual(existing.ShipToName, incoming.ShipToName),
		existing.CustomerID != incoming.CustomerID:
		return true
	}
	return false
}

func applyOrder(existing, incoming *models.SalesOrder) {
	existing.SONumber = incoming.SONumber
	existing.CustomerID = incoming.CustomerID
	existing.Status = incoming.Status
	existing.TotalPrice = incoming.TotalPrice
	existing.TotalTax = incoming.TotalTax
	existing.TotalIncludesTax = incoming.TotalIncludesTax
	existing.Revenue = incoming.Revenue
	existing.OrderValue = incoming.OrderValue
	existing.LineItemCount = incoming.LineItemCount
	existing.AccountType = incoming.AccountType
	existing.CommissionMonth = incoming.CommissionMonth
	existing.CommissionYear = incoming.CommissionYear
	existing.DateIssued = incoming.DateIssued
	existing.Salesman = incoming.Salesman
	existing.Carrier = incoming.Carrier
	existing.BillToName = incoming.BillToName
	existing.BillToAddress = incoming.BillToAddress
	existing.BillToCity = incoming.BillToCity
	existing.BillToState = incoming.BillToState
	existing.BillToZip = incoming.BillToZip
	existing.ShipToName = incoming.ShipToName
}

func lineFromParsed(orderID string, index int, pl ParsedLine) *models.OrderLineItem {
	return &models.OrderLineItem{
		ID:            pl.LineID,
		OrderID:       orderID,
		LineIndex:     index,
		ProductNumber: pl.ProductNumber,
		Description:   pl.Description,
		Quantity:      pl.Quantity,
		UnitPrice:     pl.UnitPrice,
		Taxable:       pl.Taxable,
		ItemType:      pl.ItemType,
		UOM:           pl.UOM,
		DateScheduled: pl.DateScheduled,
	}
}

func lineChanged(existing, incoming *models.OrderLineItem) bool {
	switch {
	case !TextEqual(existing.ProductNumber, incoming.ProductNumber),
		!TextEqual(existing.Description, incoming.Description),
		!AmountsEqual(existing.Quantity, incoming.Quantity),
		!AmountsEqual(existing.UnitPrice, incoming.UnitPrice),
		existing.Taxable != incoming.Taxable,
		!TextEqual(existing.ItemType, incoming.ItemType),
		!TextEqual(existing.UOM, incoming.UOM):
		return true
	}
	return false
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// upsertParsed writes the grouped orders and customer rollups through the
// batch writer, honoring the merge policy, and tracks progress as it goes.
func upsertParsed(ctx context.Context, fileID string, result *ParseResult, snap *snapshot, progress *models.ImportProgress) (models.ImportStats, error) {
	db := config.GetDB()
	logger := config.GetLogger()
	mergePolicy := config.ImportMergePolicy()
	alwaysWrite := mergePolicy == config.MergePolicyAlwaysWrite

	stats := models.ImportStats{
		Warnings:    len(result.Warnings),
		SkippedRows: result.SkippedRows,
	}
	batch := models.NewBatchWriter(ctx, db, models.ImportBatchCap)

	// Customers first so order rows never reference a missing customer.
	for _, rollup := range result.Customers {
		incoming := customerFromRollup(rollup)
		incoming.NormalizeContactFields()
		if existing, ok := snap.customers[incoming.ID]; ok {
			if !alwaysWrite && !customerChanged(existing, incoming) {
				stats.SkippedNoChange++
				continue
			}
			applyRollup(existing, incoming)
			row := *existing
			if err := batch.Add(func(tx *gorm.DB) error {
				return tx.Save(&row).Error
			}); err != nil {
				return stats, err
			}
			stats.CustomersUpdated++
		} else {
			// New customers default to the retail segment pending review;
			// only the ERP import path creates customers.
			incoming.AccountType = models.AccountTypeRetail
			incoming.AccountTypeSource = models.AccountTypeSourceErpImport
			incoming.NeedsReview = true
			row := *incoming
			if err := batch.Add(func(tx *gorm.DB) error {
				return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
			}); err != nil {
				return stats, err
			}
			stats.CustomersCreated++
		}
	}

	processed := 0
	for _, po := range result.Orders {
		// Snapshot the customer's segment onto the order at import time.
		accountType := models.AccountTypeRetail
		if customer, ok := snap.customers[po.CustomerID]; ok && customer.AccountType != "" {
			accountType = customer.AccountType
		}
		incoming := orderFromParsed(po, accountType)
		var orderWritten bool
		if existing, ok := snap.orders[incoming.ID]; ok {
			if alwaysWrite || orderChanged(existing, incoming) {
				applyOrder(existing, incoming)
				row := *existing
				if err := batch.Add(func(tx *gorm.DB) error {
					return tx.Save(&row).Error
				}); err != nil {
					return stats, err
				}
				stats.OrdersUpdated++
				orderWritten = true
			}
		} else {
			row := *incoming
			if err := batch.Add(func(tx *gorm.DB) error {
				return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
			}); err != nil {
				return stats, err
			}
			stats.OrdersCreated++
			orderWritten = true
		}

		existingLines := make(map[string]*models.OrderLineItem)
		for _, li := range snap.lines[incoming.ID] {
			existingLines[li.ID] = li
		}
		incomingLineIDs := make(map[string]bool, len(po.Lines))
		for idx, pl := range po.Lines {
			line := lineFromParsed(incoming.ID, idx, pl)
			incomingLineIDs[line.ID] = true
			if existing, ok := existingLines[line.ID]; ok {
				if !alwaysWrite && !lineChanged(existing, line) {
					continue
				}
				stats.LineItemsUpdated++
			} else {
				stats.LineItemsCreated++
			}
			row := *line
			if err := batch.Add(func(tx *gorm.DB) error {
				return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
			}); err != nil {
				return stats, err
			}
		}
		// When an order shrinks between imports, lines the export no longer
		// carries are removed; the stored set always mirrors the export.
		for _, li := range snap.lines[incoming.ID] {
			if incomingLineIDs[li.ID] {
				continue
			}
			lineID := li.ID
			if err := batch.Add(func(tx *gorm.DB) error {
				return tx.Where("id = ?", lineID).Delete(&models.OrderLineItem{}).Error
			}); err != nil {
				return stats, err
			}
			stats.LineItemsDeleted++
		}

		if !orderWritten {
			stats.SkippedNoChange++
		}

		// The denormalized history row is rewritten even when the order was
		// skipped as unchanged, so timeline reads never serve a stale shape.
		history := models.OrderHistory{
			OrderID:       incoming.ID,
			CustomerID:    incoming.CustomerID,
			CustomerName:  po.CustomerName,
			SONumber:      incoming.SONumber,
			Status:        incoming.Status,
			DateIssued:    incoming.DateIssued,
			TotalPrice:    incoming.TotalPrice,
			Salesman:      incoming.Salesman,
			LineItemCount: len(po.Lines),
		}
		if err := batch.Add(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&history).Error
		}); err != nil {
			return stats, err
		}

		processed += len(po.RowNumbers)
		if processed%progressUpdateEvery < len(po.RowNumbers) {
			progress.CurrentRow = processed
			progress.Percentage = percent(processed, result.TotalRows)
			progress.SetStats(stats)
			if err := models.SaveImportProgress(ctx, progress); err != nil {
				config.LogError(logger, "upsert.go", "upsertParsed", "saving progress", fileID, err)
			}
		}
	}

	if err := batch.Flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := done * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}

package commission

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportPeriodWorkbook renders the period's entries and summaries into an
// xlsx workbook, uploads it, and returns a short-lived signed download URL.
func ExportPeriodWorkbook(ctx context.Context, period string) (string, error) {
	entries, err := models.ListCommissionEntries(ctx, period)
	if err != nil {
		return "", err
	}
	summaries, err := models.ListCommissionSummaries(ctx, period)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 && len(summaries) == 0 {
		return "", fmt.Errorf("no commission data for period %s: %w", period, utils.ErrorRecordNotFound)
	}

	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Summary"
	f.SetSheetName(f.GetSheetName(0), summarySheet)

	summaryHeaders := []string{"Rep", "Orders", "Revenue", "Attainment", "Commission", "Spiffs"}
	for col, header := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(summarySheet, cell, header)
	}
	for i, summary := range summaries {
		rowNum := i + 2
		values := []any{
			summary.RepName,
			summary.OrderCount,
			summary.TotalRevenue.InexactFloat64(),
			summary.Attainment.InexactFloat64(),
			summary.TotalCommission.InexactFloat64(),
			summary.TotalSpiffs.InexactFloat64(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			f.SetCellValue(summarySheet, cell, value)
		}
	}

	entriesSheet := "Entries"
	if _, err := f.NewSheet(entriesSheet); err != nil {
		return "", err
	}
	entryHeaders := []string{
		"Rep", "SO Number", "Customer", "Channel", "Status",
		"Revenue", "Excluded", "Attainment", "Spiffs", "Commission",
	}
	for col, header := range entryHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(entriesSheet, cell, header)
	}
	for i, entry := range entries {
		rowNum := i + 2
		values := []any{
			entry.RepName,
			entry.SONumber,
			entry.CustomerID,
			entry.Channel,
			entry.Status,
			entry.Revenue.InexactFloat64(),
			entry.ExcludedRevenue.InexactFloat64(),
			entry.Attainment.InexactFloat64(),
			entry.SpiffAmount.InexactFloat64(),
			entry.Amount.InexactFloat64(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			f.SetCellValue(entriesSheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("commissions/exports/commissions_%s_%d.xlsx", period, time.Now().Unix())
	if err := utils.UploadObjectToGCS(ctx, objectKey, xlsxContentType, buf.Bytes()); err != nil {
		return "", err
	}
	return utils.SignedDownloadURL(objectKey, time.Hour)
}

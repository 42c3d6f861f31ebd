package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyFile = errors.New("file contains no data rows")

// ReadRows materializes the raw grid of a .csv or .xlsx upload.
// The first row is assumed to be the header row.
func ReadRows(filename string, data []byte) ([][]string, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return readExcelRows(data)
	case strings.HasSuffix(lower, ".csv"):
		return readCSVRows(data)
	default:
		// No extension to go on; sniff the xlsx zip magic.
		if len(data) > 4 && bytes.HasPrefix(data, []byte("PK\x03\x04")) {
			return readExcelRows(data)
		}
		return readCSVRows(data)
	}
}

func readCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv parse error: %w", err)
		}
		rows = append(rows, record)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

func readExcelRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx open error: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx read error: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

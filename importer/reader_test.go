package importer

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadRows_CSV(t *testing.T) {
	data := []byte("SO Number,Customer\n1001,\"Acme, Corp\"\n")
	rows, err := ReadRows("export.csv", data)
	if err != nil {
		t.Fatalf("ReadRows error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Acme, Corp" {
		t.Fatalf("quoted cell mangled: %q", rows[1][1])
	}
}

func TestReadRows_RaggedCSV(t *testing.T) {
	data := []byte("a,b,c\n1,2\n1,2,3,4\n")
	rows, err := ReadRows("export.csv", data)
	if err != nil {
		t.Fatalf("ragged rows should parse, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

func TestReadRows_HeaderOnlyIsEmpty(t *testing.T) {
	_, err := ReadRows("export.csv", []byte("SO Number,Customer\n"))
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestReadRows_SniffsXlsxWithoutExtension(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]any{"SO Number", "Customer"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]any{"1001", "Acme Corp"})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("workbook build failed: %v", err)
	}

	rows, err := ReadRows("upload", buf.Bytes())
	if err != nil {
		t.Fatalf("ReadRows error: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "1001" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

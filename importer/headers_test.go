package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveHeaders_AliasSpellings(t *testing.T) {
	raw := []string{"SO Number", "Customer", "Part Number", "Qty Ordered", "Unit Price", "Order Date", "SO Status", "Customer id", "Sales Order ID", "SO Item ID"}
	hm := ResolveHeaders(raw)

	expected := map[int]string{
		0: FieldSONumber,
		1: FieldCustomerName,
		2: FieldProductNumber,
		3: FieldProductQuantity,
		4: FieldUnitPrice,
		5: FieldDateIssued,
		6: FieldStatus,
		7: FieldCustomerID,
		8: FieldSalesOrderID,
		9: FieldLineItemID,
	}
	for idx, field := range expected {
		if hm.Columns[idx] != field {
			t.Fatalf("column %d expected %s, got %s", idx, field, hm.Columns[idx])
		}
	}
	if len(hm.Unresolved) != 0 {
		t.Fatalf("expected no unresolved headers, got %v", hm.Unresolved)
	}
}

func TestResolveHeaders_FirstColumnWinsOnDuplicate(t *testing.T) {
	hm := ResolveHeaders([]string{"SO Number", "Order Number"})
	if hm.Columns[0] != FieldSONumber {
		t.Fatalf("expected column 0 to resolve to soNumber, got %s", hm.Columns[0])
	}
	if _, ok := hm.Columns[1]; ok {
		t.Fatalf("duplicate column should not resolve, got %s", hm.Columns[1])
	}
}

func TestResolveHeaders_CollectsUnresolved(t *testing.T) {
	hm := ResolveHeaders([]string{"SO Number", "Warehouse Zone"})
	if len(hm.Unresolved) != 1 || hm.Unresolved[0] != "Warehouse Zone" {
		t.Fatalf("expected [Warehouse Zone] unresolved, got %v", hm.Unresolved)
	}
}

func TestPreflight_ReportsAllMissingAtOnce(t *testing.T) {
	// Only soNumber and status resolve; the other eight required fields are
	// absent and must all be named in one error.
	hm := ResolveHeaders([]string{"SO Number", "Status", "Carrier"})
	err := hm.Preflight()
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("error should wrap ErrMissingColumns, got %v", err)
	}
	mc, ok := err.(*MissingColumnsError)
	if !ok {
		t.Fatalf("expected *MissingColumnsError, got %T", err)
	}
	if len(mc.Missing) != 8 {
		t.Fatalf("expected 8 missing fields, got %d: %v", len(mc.Missing), mc.Missing)
	}
	for _, field := range []string{FieldCustomerID, FieldSalesOrderID, FieldLineItemID, FieldCustomerName, FieldDateIssued, FieldProductNumber, FieldProductQuantity, FieldUnitPrice} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q should name %s", err.Error(), field)
		}
	}
}

func TestPreflight_RequiresIdentifierColumns(t *testing.T) {
	// Every non-identifier column resolves, but the three ERP id columns are
	// absent; the file must still be rejected.
	hm := ResolveHeaders([]string{"SO Number", "Customer Name", "Product Number", "Quantity", "Price", "Date Issued", "Status"})
	err := hm.Preflight()
	if err == nil {
		t.Fatal("expected preflight failure without identifier columns")
	}
	mc, ok := err.(*MissingColumnsError)
	if !ok {
		t.Fatalf("expected *MissingColumnsError, got %T", err)
	}
	want := []string{FieldCustomerID, FieldLineItemID, FieldSalesOrderID}
	if len(mc.Missing) != len(want) {
		t.Fatalf("expected %v missing, got %v", want, mc.Missing)
	}
	for i, field := range want {
		if mc.Missing[i] != field {
			t.Fatalf("expected %v missing, got %v", want, mc.Missing)
		}
	}
}

func TestPreflight_PassesWithAllRequired(t *testing.T) {
	hm := ResolveHeaders([]string{"SO Number", "Customer Name", "Product Number", "Quantity", "Price", "Date Issued", "Status", "Customer ID", "Sales Order ID", "SO Item ID"})
	if err := hm.Preflight(); err != nil {
		t.Fatalf("unexpected preflight error: %v", err)
	}
}

func TestApply_TrimsAndIgnoresShortRows(t *testing.T) {
	hm := ResolveHeaders([]string{"SO Number", "Customer"})
	record := hm.Apply([]string{"  1001  "})
	if record[FieldSONumber] != "1001" {
		t.Fatalf("expected trimmed soNumber, got %q", record[FieldSONumber])
	}
	if _, ok := record[FieldCustomerName]; ok {
		t.Fatal("missing cell should not produce a record entry")
	}
}

package commission

import (
	"testing"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"github.com/shopspring/decimal"
)

func TestClassifyOrderNumber(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		// "sh" prefix wins regardless of length.
		{"SH12345", models.ChannelRetail},
		{"sh1", models.ChannelRetail},
		{"sh123456789012", models.ChannelRetail},
		// "#" only fires at length >= 10.
		{"#123456789", models.ChannelThirdParty},
		{"#12345678", models.ChannelUnknown},
		// 4-6 pure digits are ERP direct entry.
		{"1001", models.ChannelErpDirect},
		{"123456", models.ChannelErpDirect},
		{"123", models.ChannelUnknown},
		// 7-9 digits: too long for direct, too short for third party.
		{"1234567", models.ChannelUnknown},
		// 10+ alphanumerics after stripping are third party.
		{"AMZ-1234-5678-90", models.ChannelThirdParty},
		{"1234567890", models.ChannelThirdParty},
		{"", models.ChannelUnknown},
		{"ORD-1", models.ChannelUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyOrderNumber(tc.in); got != tc.expected {
			t.Fatalf("ClassifyOrderNumber(%q) expected %s, got %s", tc.in, tc.expected, got)
		}
	}
}

func TestIsExcludedLine(t *testing.T) {
	cases := []struct {
		product  string
		desc     string
		excluded bool
	}{
		{"SHIPPING", "", true},
		{"", "Ground Shipping", true},
		{"CC PROCESSING", "", true},
		{"FEE-1", "Credit Card Processing Fee", true},
		{"HANDLING-01", "", true},
		{"WIDGET-1", "Standard widget", false},
		{"", "", false},
	}
	for _, tc := range cases {
		if got := IsExcludedLine(tc.product, tc.desc); got != tc.excluded {
			t.Fatalf("IsExcludedLine(%q, %q) expected %v, got %v", tc.product, tc.desc, tc.excluded, got)
		}
	}
}

func TestSplitRevenue(t *testing.T) {
	lines := []*models.OrderLineItem{
		{ProductNumber: "WIDGET-1", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
		{ProductNumber: "SHIPPING", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25)},
		{ProductNumber: "WIDGET-2", Description: "handling included", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
	}
	commissionable, excluded := SplitRevenue(lines)
	if !commissionable.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected commissionable 1000, got %s", commissionable)
	}
	if !excluded.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected excluded 75, got %s", excluded)
	}
}

package commission

import (
	"testing"
	"time"
)

func activity(id, name, city, rep string, first, last time.Time) *ChannelActivity {
	return &ChannelActivity{CustomerID: id, Name: name, City: city, Rep: rep, FirstOrder: first, LastOrder: last}
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestDetectSwitchers_FlagsOnlyWhenDirectEndsFirst(t *testing.T) {
	direct := map[string]*ChannelActivity{
		"10201": activity("10201", "Acme Industrial", "Tulsa", "pat", day(1), day(3)),
		"10202": activity("10202", "Globex", "Reno", "sam", day(12), day(25)),
	}
	channel := map[string]*ChannelActivity{
		"20201": activity("20201", "Acme Industrial LLC", "Tulsa", "", day(20), day(22)),
		"20202": activity("20202", "Globex", "Reno", "", day(10), day(10)),
	}

	got := DetectSwitchers(direct, channel)
	if len(got) != 1 {
		t.Fatalf("expected 1 switcher, got %d", len(got))
	}
	s := got[0]
	if s.DirectCustomerID != "10201" || s.ChannelCustomerID != "20201" {
		t.Fatalf("unexpected pair %s -> %s", s.DirectCustomerID, s.ChannelCustomerID)
	}
	if s.DirectRep != "pat" {
		t.Fatalf("expected direct rep pat, got %q", s.DirectRep)
	}
	if s.DaysBetweenSwitch != 17 {
		t.Fatalf("expected 17 days, got %d", s.DaysBetweenSwitch)
	}
}

func TestDetectSwitchers_DirectAfterChannelNeverFlags(t *testing.T) {
	// Exact name and city match, but the direct relationship is still
	// ordering after the first third-party order.
	direct := map[string]*ChannelActivity{
		"c1": activity("c1", "Initech", "Austin", "pat", day(5), day(15)),
	}
	channel := map[string]*ChannelActivity{
		"c2": activity("c2", "Initech", "Austin", "", day(10), day(28)),
	}
	if got := DetectSwitchers(direct, channel); len(got) != 0 {
		t.Fatalf("expected no switchers, got %d", len(got))
	}
}

func TestDetectSwitchers_SameDayIsNotASwitch(t *testing.T) {
	direct := map[string]*ChannelActivity{
		"c1": activity("c1", "Initech", "Austin", "pat", day(5), day(10)),
	}
	channel := map[string]*ChannelActivity{
		"c2": activity("c2", "Initech", "Austin", "", day(10), day(28)),
	}
	if got := DetectSwitchers(direct, channel); len(got) != 0 {
		t.Fatalf("last direct on the first channel date is not a switch, got %d", len(got))
	}
}

func TestDetectSwitchers_WeakMatchesIgnored(t *testing.T) {
	// City alone scores 1, below the threshold.
	direct := map[string]*ChannelActivity{
		"c1": activity("c1", "Acme Industrial", "Tulsa", "pat", day(1), day(3)),
	}
	channel := map[string]*ChannelActivity{
		"c2": activity("c2", "Hooli", "Tulsa", "", day(20), day(22)),
	}
	if got := DetectSwitchers(direct, channel); len(got) != 0 {
		t.Fatalf("city-only match must not flag, got %d", len(got))
	}
}

func TestSwitcherMatchScore(t *testing.T) {
	base := activity("d", "Acme Industrial", "Tulsa", "", day(1), day(1))
	cases := []struct {
		name string
		city string
		want int
	}{
		{"Acme Industrial", "Tulsa", 6},     // exact name + city
		{"ACME  industrial", "Tulsa", 6},    // normalization folds case and spacing
		{"Acme Industrial LLC", "Reno", 3},  // substring only
		{"Hooli", "Tulsa", 1},               // city only
		{"", "Tulsa", 1},                    // blank names never match
	}
	for _, c := range cases {
		other := activity("c", c.name, c.city, "", day(2), day(2))
		if got := switcherMatchScore(base, other); got != c.want {
			t.Fatalf("score(%q, %q) = %d, want %d", c.name, c.city, got, c.want)
		}
	}
}

package scan

import "testing"

func TestNormalizeOUI(t *testing.T) {
	tests := []struct {
		mac  string
		want string
	}{
		{"b8:27:eb:12:34:56", "B8:27:EB"},
		{"B8-27-EB-12-34-56", "B8:27:EB"},
		{"00:50:56", "00:50:56"},
		{"aa:bb", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeOUI(tt.mac); got != tt.want {
			t.Errorf("NormalizeOUI(%q) = %q, want %q", tt.mac, got, tt.want)
		}
	}
}

func TestOUILookup(t *testing.T) {
	table := NewOUITable()

	if got := table.Lookup("b8:27:eb:12:34:56"); got != "Raspberry Pi Foundation" {
		t.Errorf("Lookup raspberry pi = %q", got)
	}
	if got := table.Lookup("00:50:56:aa:bb:cc"); got != "VMware" {
		t.Errorf("Lookup vmware = %q", got)
	}
	if got := table.Lookup("de:ad:be:ef:00:00"); got != "" {
		t.Errorf("Lookup unknown = %q, want empty", got)
	}
}

func TestSameVendorPrefix(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"same vendor", "B8:27:EB:11:11:11", "b8:27:eb:22:22:22", true},
		{"different vendor", "B8:27:EB:11:11:11", "00:50:56:22:22:22", false},
		{"empty left", "", "00:50:56:22:22:22", false},
		{"both empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameVendorPrefix(tt.a, tt.b); got != tt.want {
				t.Errorf("SameVendorPrefix(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

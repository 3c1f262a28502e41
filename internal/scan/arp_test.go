package scan

import "testing"

func TestParseLinuxARPOutput(t *testing.T) {
	output := `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
192.168.1.50     0x1         0x0         00:00:00:00:00:00     *        eth0
192.168.1.23     0x1         0x2         b8:27:eb:12:34:56     *        wlan0
`
	table := parseLinuxARPOutput(output)

	if len(table) != 2 {
		t.Fatalf("got %d entries, want 2", len(table))
	}
	if table["192.168.1.1"] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("192.168.1.1 = %q", table["192.168.1.1"])
	}
	if table["192.168.1.23"] != "B8:27:EB:12:34:56" {
		t.Errorf("192.168.1.23 = %q", table["192.168.1.23"])
	}
	if _, ok := table["192.168.1.50"]; ok {
		t.Error("incomplete entry was not skipped")
	}
}

func TestParseWindowsARPOutput(t *testing.T) {
	output := `
Interface: 192.168.1.100 --- 0x4
  Internet Address      Physical Address      Type
  192.168.1.1           aa-bb-cc-dd-ee-ff     dynamic
  192.168.1.255         ff-ff-ff-ff-ff-ff     static
  224.0.0.22            01-00-5e-00-00-16     static
`
	table := parseWindowsARPOutput(output)

	if table["192.168.1.1"] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("192.168.1.1 = %q", table["192.168.1.1"])
	}
	if _, ok := table["192.168.1.255"]; ok {
		t.Error("broadcast entry was not skipped")
	}
}

func TestParseDarwinARPOutput(t *testing.T) {
	output := `router.local (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
? (192.168.1.42) at b8:27:eb:12:34:56 on en0 ifscope [ethernet]
? (192.168.1.99) at (incomplete) on en0 ifscope [ethernet]
`
	table := parseDarwinARPOutput(output)

	if len(table) != 2 {
		t.Fatalf("got %d entries, want 2", len(table))
	}
	if table["192.168.1.1"] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("192.168.1.1 = %q", table["192.168.1.1"])
	}
	if table["192.168.1.42"] != "B8:27:EB:12:34:56" {
		t.Errorf("192.168.1.42 = %q", table["192.168.1.42"])
	}
	if _, ok := table["192.168.1.99"]; ok {
		t.Error("incomplete entry was not skipped")
	}
}

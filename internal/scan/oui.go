package scan

import "strings"

// OUIResolver resolves MAC address prefixes to manufacturer names.
type OUIResolver interface {
	Lookup(mac string) string
}

// OUITable maps 24-bit OUI prefixes to manufacturer names. The table covers
// vendors common on home and office subnets; unknown prefixes resolve to "".
type OUITable struct {
	prefixes map[string]string
}

// NewOUITable creates the embedded OUI lookup table.
func NewOUITable() *OUITable {
	return &OUITable{prefixes: ouiPrefixes}
}

// Lookup returns the manufacturer for a MAC address, or "" if unknown.
func (t *OUITable) Lookup(mac string) string {
	return t.prefixes[NormalizeOUI(mac)]
}

// NormalizeOUI returns the canonical "AA:BB:CC" vendor prefix of a MAC
// address, or "" if the input is too short to contain one.
func NormalizeOUI(mac string) string {
	m := strings.ToUpper(strings.ReplaceAll(mac, "-", ":"))
	parts := strings.Split(m, ":")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:3], ":")
}

// SameVendorPrefix reports whether two MAC addresses share a vendor prefix.
// Used to distinguish a NIC swap (same vendor) from a suspicious identity
// change (different vendor).
func SameVendorPrefix(a, b string) bool {
	pa, pb := NormalizeOUI(a), NormalizeOUI(b)
	return pa != "" && pa == pb
}

var ouiPrefixes = map[string]string{
	// Network infrastructure.
	"00:1A:2B": "Cisco Systems",
	"00:40:96": "Cisco Systems",
	"58:97:1E": "Cisco Systems",
	"24:A4:3C": "Ubiquiti Networks",
	"74:AC:B9": "Ubiquiti Networks",
	"F0:9F:C2": "Ubiquiti Networks",
	"4C:5E:0C": "MikroTik",
	"64:D1:54": "MikroTik",
	"A0:21:B7": "Netgear",
	"C0:3F:0E": "Netgear",
	"50:C7:BF": "TP-Link",
	"D8:0D:17": "TP-Link",
	"14:CC:20": "TP-Link",
	"00:18:E7": "D-Link",
	"1C:7E:E5": "D-Link",
	"48:F8:B3": "Linksys",
	"20:4E:7F": "Aruba Networks",
	"94:B4:0F": "Aruba Networks",
	"28:C6:8E": "Juniper Networks",

	// Computers.
	"3C:22:FB": "Apple",
	"A4:83:E7": "Apple",
	"F0:18:98": "Apple",
	"BC:D0:74": "Apple",
	"18:03:73": "Dell",
	"F8:BC:12": "Dell",
	"54:BF:64": "Dell",
	"00:21:CC": "Lenovo",
	"54:EE:75": "Lenovo",
	"3C:52:82": "Hewlett Packard",
	"94:57:A5": "Hewlett Packard",
	"7C:1E:52": "Microsoft",
	"98:5F:D3": "Microsoft",

	// Mobile.
	"8C:F5:A3": "Samsung Electronics",
	"E8:50:8B": "Samsung Electronics",
	"64:A2:F9": "OnePlus Technology",
	"F4:F5:DB": "Xiaomi Communications",
	"28:6C:07": "Xiaomi Communications",

	// Single-board / IoT.
	"B8:27:EB": "Raspberry Pi Foundation",
	"DC:A6:32": "Raspberry Pi Trading",
	"E4:5F:01": "Raspberry Pi Trading",
	"24:0A:C4": "Espressif",
	"30:AE:A4": "Espressif",
	"84:CC:A8": "Espressif",
	"EC:FA:BC": "Espressif",
	"5C:CF:7F": "Espressif",
	"B0:4E:26": "Sonos",
	"00:0E:58": "Sonos",
	"D8:31:34": "Roku",
	"AC:3A:7A": "Roku",
	"44:65:0D": "Amazon Technologies",
	"FC:A1:83": "Amazon Technologies",
	"18:B4:30": "Nest Labs",
	"64:16:66": "Nest Labs",
	"00:17:88": "Philips Lighting",
	"EC:B5:FA": "Philips Lighting",

	// Printers and NAS.
	"00:80:77": "Brother Industries",
	"30:05:5C": "Brother Industries",
	"00:26:73": "Ricoh",
	"00:11:32": "Synology",
	"90:09:D0": "Synology",
	"24:5E:BE": "QNAP Systems",
	"00:08:9B": "QNAP Systems",

	// Virtualization.
	"00:50:56": "VMware",
	"00:0C:29": "VMware",
	"52:54:00": "QEMU/KVM",
	"08:00:27": "Oracle VirtualBox",
	"00:15:5D": "Microsoft Hyper-V",
	"BC:24:11": "Proxmox Server Solutions",
}

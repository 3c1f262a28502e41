package scan

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// ARPTableReader reads the system ARP table.
type ARPTableReader interface {
	ReadTable(ctx context.Context) map[string]string
}

// ARPReader reads the system ARP cache to get IP-to-MAC mappings.
type ARPReader struct {
	logger *zap.Logger
}

// NewARPReader creates a new ARP table reader.
func NewARPReader(logger *zap.Logger) *ARPReader {
	return &ARPReader{logger: logger}
}

// ReadTable returns a map of IP address to MAC address from the system ARP cache.
// Returns an empty map (not an error) if ARP reading is unavailable.
func (r *ARPReader) ReadTable(ctx context.Context) map[string]string {
	switch runtime.GOOS {
	case "linux":
		return r.readLinuxARP()
	case "windows", "darwin":
		return r.readARPCommand(ctx, runtime.GOOS)
	default:
		r.logger.Warn("ARP table reading not supported on this platform",
			zap.String("os", runtime.GOOS))
		return map[string]string{}
	}
}

// readLinuxARP parses /proc/net/arp.
func (r *ARPReader) readLinuxARP() map[string]string {
	data, err := os.ReadFile("/proc/net/arp")
	if err != nil {
		r.logger.Debug("failed to read /proc/net/arp", zap.Error(err))
		return map[string]string{}
	}
	return parseARPOutput(string(data), "linux")
}

// readARPCommand runs `arp -a` and parses its platform-specific output.
func (r *ARPReader) readARPCommand(ctx context.Context, platform string) map[string]string {
	out, err := exec.CommandContext(ctx, "arp", "-a").Output()
	if err != nil {
		r.logger.Debug("failed to run arp -a", zap.Error(err))
		return map[string]string{}
	}
	return parseARPOutput(string(out), platform)
}

// parseARPOutput parses platform-specific ARP output.
func parseARPOutput(output, platform string) map[string]string {
	switch platform {
	case "linux":
		return parseLinuxARPOutput(output)
	case "windows":
		return parseWindowsARPOutput(output)
	case "darwin":
		return parseDarwinARPOutput(output)
	default:
		return map[string]string{}
	}
}

// parseLinuxARPOutput parses /proc/net/arp content.
// Format: IP address HW type Flags HW address Mask Device
func parseLinuxARPOutput(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Scan() // Skip header.
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		mac := strings.ToUpper(fields[3])
		// Skip incomplete entries.
		if mac == "00:00:00:00:00:00" {
			continue
		}
		table[fields[0]] = mac
	}
	return table
}

// parseWindowsARPOutput parses `arp -a` output on Windows.
// Lines look like: 192.168.1.1 aa-bb-cc-dd-ee-ff dynamic
func parseWindowsARPOutput(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) < 3 {
			continue
		}
		ip := fields[0]
		if ip == "" || ip[0] < '0' || ip[0] > '9' {
			continue
		}
		mac := strings.ToUpper(strings.ReplaceAll(fields[1], "-", ":"))
		if mac == "FF:FF:FF:FF:FF:FF" || mac == "00:00:00:00:00:00" {
			continue
		}
		table[ip] = mac
	}
	return table
}

// parseDarwinARPOutput parses `arp -a` output on macOS.
// Format: hostname (ip) at mac on iface [...]
func parseDarwinARPOutput(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		parenStart := strings.Index(line, "(")
		parenEnd := strings.Index(line, ")")
		if parenStart < 0 || parenEnd < 0 || parenEnd <= parenStart {
			continue
		}
		ip := line[parenStart+1 : parenEnd]

		atIdx := strings.Index(line[parenEnd:], " at ")
		if atIdx < 0 {
			continue
		}
		fields := strings.Fields(line[parenEnd+atIdx+4:])
		if len(fields) == 0 {
			continue
		}
		mac := strings.ToUpper(fields[0])
		if mac == "(INCOMPLETE)" || mac == "FF:FF:FF:FF:FF:FF" {
			continue
		}
		table[ip] = mac
	}
	return table
}

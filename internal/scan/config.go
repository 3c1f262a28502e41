package scan

import "time"

// Config holds the scanner configuration.
type Config struct {
	Subnet         string        `mapstructure:"subnet"`
	Concurrency    int           `mapstructure:"concurrency"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	PingCount      int           `mapstructure:"ping_count"`
	ScanBudget     time.Duration `mapstructure:"scan_budget"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	ProbeRate      float64       `mapstructure:"probe_rate"`  // probe launches per second, 0 = unlimited
	PortProbe      bool          `mapstructure:"port_probe"`
	Ports          []int         `mapstructure:"ports"`
	PortTimeout    time.Duration `mapstructure:"port_timeout"`
	ARPEnabled     bool          `mapstructure:"arp_enabled"`
	ReverseDNS     bool          `mapstructure:"reverse_dns"`
	Interval       time.Duration `mapstructure:"interval"`
	QuietStart     string        `mapstructure:"quiet_start"` // "HH:MM", empty disables
	QuietEnd       string        `mapstructure:"quiet_end"`
}

// DefaultPorts are the TCP ports probed on reachable hosts when port
// probing is enabled: common management, file, web, and database services.
var DefaultPorts = []int{22, 23, 80, 135, 139, 443, 445, 3306, 3389, 5432, 8080, 8443, 9100}

// DefaultConfig returns the default scanner configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:  64,
		ProbeTimeout: 2 * time.Second,
		PingCount:    3,
		ScanBudget:   5 * time.Minute,
		CacheTTL:     30 * time.Second,
		ProbeRate:    0,
		PortProbe:    true,
		Ports:        DefaultPorts,
		PortTimeout:  2 * time.Second,
		ARPEnabled:   true,
		ReverseDNS:   true,
		Interval:     5 * time.Minute,
	}
}

package scan

import (
	"context"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// dnsTimeout is the maximum time to wait for a reverse DNS lookup.
const dnsTimeout = 500 * time.Millisecond

// Prober executes one reachability/metadata probe against one address.
// A failed or timed-out probe is returned as data (Reachable=false),
// never as an error.
type Prober interface {
	Probe(ctx context.Context, address string) models.ProbeResult
}

// ICMPProber probes a host with ICMP echo, then optionally enriches
// reachable hosts with a TCP port probe, reverse DNS, and a TTL OS hint.
type ICMPProber struct {
	pingTimeout time.Duration
	pingCount   int
	reverseDNS  bool
	ports       *PortProber // nil disables port probing
	logger      *zap.Logger
}

// NewICMPProber creates a prober from the scanner configuration.
func NewICMPProber(cfg Config, logger *zap.Logger) *ICMPProber {
	p := &ICMPProber{
		pingTimeout: cfg.ProbeTimeout,
		pingCount:   cfg.PingCount,
		reverseDNS:  cfg.ReverseDNS,
		logger:      logger,
	}
	if cfg.PortProbe {
		p.ports = NewPortProber(cfg.Ports, cfg.PortTimeout, logger.Named("ports"))
	}
	return p
}

// Probe pings the address and, if it answers, gathers port and identity metadata.
func (p *ICMPProber) Probe(ctx context.Context, address string) models.ProbeResult {
	result := models.ProbeResult{
		Address:    address,
		CapturedAt: time.Now().UTC(),
	}

	alive, rtt, loss, ttl := p.ping(ctx, address)
	result.Reachable = alive
	result.PacketLoss = loss
	if !alive {
		return result
	}

	result.ResponseTimeMs = float64(rtt) / float64(time.Millisecond)
	result.OSGuess = InferOSFromTTL(ttl)

	if p.ports != nil {
		result.Ports = p.ports.Probe(ctx, address)
	}
	if p.reverseDNS {
		result.Hostname = resolveHostname(address)
	}

	return result
}

// ping runs an ICMP echo sequence against one host.
func (p *ICMPProber) ping(ctx context.Context, address string) (alive bool, rtt time.Duration, loss float64, ttl int) {
	pinger, err := probing.NewPinger(address)
	if err != nil {
		p.logger.Debug("failed to create pinger", zap.String("address", address), zap.Error(err))
		return false, 0, 100, 0
	}

	pinger.Count = p.pingCount
	pinger.Timeout = p.pingTimeout
	// Raw sockets are required on Windows; unprivileged UDP ping elsewhere.
	pinger.SetPrivileged(runtime.GOOS == "windows")

	// Capture TTL from first received packet.
	var receivedTTL int
	pinger.OnRecv = func(pkt *probing.Packet) {
		if receivedTTL == 0 {
			receivedTTL = pkt.TTL
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			p.logger.Debug("ping failed", zap.String("address", address), zap.Error(runErr))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return false, 0, 100, 0
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt, stats.PacketLoss, receivedTTL
	}
	return false, 0, 100, 0
}

// resolveHostname performs a reverse DNS lookup for the given IP address.
// Returns an empty string if the lookup fails or times out.
func resolveHostname(ip string) string {
	ctx, cancel := context.WithTimeout(context.Background(), dnsTimeout)
	defer cancel()

	names, err := net.DefaultResolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}

// InferOSFromTTL returns an OS hint based on the ICMP TTL value.
// TTL values are decremented at each hop, so we check ranges.
func InferOSFromTTL(ttl int) string {
	switch {
	case ttl == 0:
		return ""
	case ttl >= 225: // 255 minus up to 30 hops
		return "network_equipment" // Cisco IOS, Juniper JUNOS, most switches/routers
	case ttl >= 110 && ttl <= 128:
		return "windows"
	case ttl >= 35 && ttl <= 64:
		return "linux" // Also macOS, FreeBSD, Linux-based switches
	default:
		return ""
	}
}

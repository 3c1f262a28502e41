package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/HerbHall/netsentry/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrInvalidRange is returned when the target range cannot be enumerated.
// It is the only hard failure a scan can produce; individual probe
// failures are recorded in the snapshot instead.
var ErrInvalidRange = errors.New("invalid scan range")

// maxHostBits caps enumeration at /16 (65534 hosts) to prevent accidental
// huge scans.
const maxHostBits = 16

// Scanner sweeps a target range with bounded concurrency and assembles a
// sealed point-in-time Snapshot. One Scanner owns one per-host result
// cache; independent Scanner instances do not share probe state.
type Scanner struct {
	cfg     Config
	prober  Prober
	arp     ARPTableReader // nil disables ARP enrichment
	oui     OUIResolver
	cache   *resultCache
	limiter *rate.Limiter // nil = no probe rate limit
	bus     plugin.EventBus
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewScanner creates a scanner. arp and bus may be nil.
func NewScanner(cfg Config, prober Prober, arp ARPTableReader, oui OUIResolver, bus plugin.EventBus, logger *zap.Logger) *Scanner {
	s := &Scanner{
		cfg:     cfg,
		prober:  prober,
		arp:     arp,
		oui:     oui,
		cache:   newResultCache(cfg.CacheTTL),
		bus:     bus,
		logger:  logger,
		nowFunc: time.Now,
	}
	if cfg.ProbeRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ProbeRate), 1)
	}
	return s
}

// Scan probes every usable address in the CIDR range and returns the sealed
// snapshot. Exactly one ProbeResult exists per enumerable address: hosts
// the scan budget cut off are sealed with Unresolved=true rather than
// dropped. The only error condition is a range that cannot be enumerated.
func (s *Scanner) Scan(ctx context.Context, cidr string) (*models.Snapshot, error) {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRange, cidr, err)
	}
	hosts := enumerateHosts(ipNet)
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: %q has no usable hosts or exceeds /%d host bits", ErrInvalidRange, cidr, maxHostBits)
	}

	scanID := uuid.New().String()
	startedAt := s.nowFunc().UTC()

	s.logger.Info("scan started",
		zap.String("scan_id", scanID),
		zap.String("range", cidr),
		zap.Int("hosts", len(hosts)),
		zap.Int("concurrency", s.cfg.Concurrency),
	)
	s.publish(ctx, TopicScanStarted, ScanStartedEvent{
		ScanID:      scanID,
		TargetRange: cidr,
		Hosts:       len(hosts),
		StartedAt:   startedAt,
	})

	// Wall-clock scan budget. In-flight probes are cancelled when it
	// expires; unstarted hosts are sealed unresolved below.
	budgetCtx := ctx
	cancel := func() {}
	if s.cfg.ScanBudget > 0 {
		budgetCtx, cancel = context.WithTimeout(ctx, s.cfg.ScanBudget)
	}
	defer cancel()

	// ARP table is read once per scan so every result sees the same view.
	arpTable := map[string]string{}
	if s.arp != nil {
		arpTable = s.arp.ReadTable(budgetCtx)
	}

	// Each goroutine writes a distinct index; wg.Wait orders the reads.
	results := make([]models.ProbeResult, len(hosts))
	filled := make([]bool, len(hosts))
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

launch:
	for i, addr := range hosts {
		if cached, ok := s.cache.get(addr); ok {
			results[i] = cached
			filled[i] = true
			continue
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(budgetCtx); err != nil {
				break launch
			}
		}

		select {
		case sem <- struct{}{}:
		case <-budgetCtx.Done():
			break launch
		}

		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.probeOne(budgetCtx, addr, arpTable)
			filled[i] = true
		}(i, addr)
	}
	wg.Wait()

	completedAt := s.nowFunc().UTC()

	// Seal: hosts never launched get an explicit unresolved result.
	for i := range hosts {
		if !filled[i] {
			results[i] = models.ProbeResult{
				Address:    hosts[i],
				Reachable:  false,
				PacketLoss: 100,
				Unresolved: true,
				CapturedAt: completedAt,
			}
		}
	}

	snapshot := &models.Snapshot{
		ScanID:      scanID,
		TargetRange: cidr,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Results:     results,
		Summary:     summarize(results),
	}

	s.logger.Info("scan completed",
		zap.String("scan_id", scanID),
		zap.Int("total", snapshot.Summary.Total),
		zap.Int("online", snapshot.Summary.Online),
		zap.Int("unresolved", snapshot.Summary.Unresolved),
		zap.Duration("elapsed", completedAt.Sub(startedAt)),
	)
	s.publish(ctx, TopicScanCompleted, ScanCompletedEvent{
		ScanID:      scanID,
		TargetRange: cidr,
		Summary:     snapshot.Summary,
		CompletedAt: completedAt,
	})

	return snapshot, nil
}

// CacheSize returns the number of per-host cache entries.
func (s *Scanner) CacheSize() int {
	return s.cache.len()
}

// probeOne runs a single probe and enriches the result with ARP/OUI
// identity data.
func (s *Scanner) probeOne(ctx context.Context, addr string, arpTable map[string]string) models.ProbeResult {
	r := s.prober.Probe(ctx, addr)

	// A probe cut short by the budget says nothing about the host.
	if ctx.Err() != nil && !r.Reachable {
		r.Unresolved = true
		return r
	}

	if mac := arpTable[addr]; mac != "" {
		r.MAC = mac
		if s.oui != nil {
			r.Vendor = s.oui.Lookup(mac)
		}
	}

	s.cache.put(r)
	return r
}

// summarize computes the snapshot's aggregate counts.
func summarize(results []models.ProbeResult) models.SnapshotSummary {
	sum := models.SnapshotSummary{Total: len(results)}

	var rttCount int
	var rttTotal float64
	for i := range results {
		r := &results[i]
		switch {
		case r.Unresolved:
			sum.Unresolved++
		case r.Reachable:
			sum.Online++
		default:
			sum.Offline++
		}
		if r.FromCache {
			sum.FromCache++
		}
		if r.Reachable && r.ResponseTimeMs > 0 {
			rttCount++
			rttTotal += r.ResponseTimeMs
			if sum.MinResponseTimeMs == 0 || r.ResponseTimeMs < sum.MinResponseTimeMs {
				sum.MinResponseTimeMs = r.ResponseTimeMs
			}
			if r.ResponseTimeMs > sum.MaxResponseTimeMs {
				sum.MaxResponseTimeMs = r.ResponseTimeMs
			}
		}
	}
	if rttCount > 0 {
		sum.AvgResponseTimeMs = rttTotal / float64(rttCount)
	}
	return sum
}

func (s *Scanner) publish(ctx context.Context, topic string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.PublishAsync(ctx, plugin.Event{
		Topic:     topic,
		Source:    "scan",
		Timestamp: s.nowFunc(),
		Payload:   payload,
	})
}

// enumerateHosts returns all usable host IPs in a subnet, excluding the
// network and broadcast addresses. Returns nil for ranges wider than /16.
func enumerateHosts(subnet *net.IPNet) []string {
	ones, bits := subnet.Mask.Size()
	if ones == 0 && bits == 0 {
		return nil
	}
	if subnet.IP.To4() == nil {
		return nil
	}

	hostBits := bits - ones
	if hostBits > maxHostBits {
		return nil
	}

	totalHosts := 1 << hostBits
	if totalHosts <= 2 {
		// /31 and /32 have no usable host addresses under the
		// network/broadcast exclusion rule.
		return nil
	}

	hosts := make([]string, 0, totalHosts-2)
	for i := 1; i < totalHosts-1; i++ {
		next := offsetIP(subnet.IP, i)
		if next != nil && subnet.Contains(next) {
			hosts = append(hosts, next.String())
		}
	}
	return hosts
}

// offsetIP adds offset to a base IPv4 address.
func offsetIP(base net.IP, offset int) net.IP {
	ip := make(net.IP, len(base))
	copy(ip, base)
	ip = ip.To4()
	if ip == nil {
		return nil
	}

	carry := offset
	for i := 3; i >= 0; i-- {
		val := int(ip[i]) + carry
		ip[i] = byte(val % 256)
		carry = val / 256
		if carry == 0 {
			break
		}
	}
	return ip
}

package scan

import (
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
	"go.uber.org/zap"
)

// portProbeConcurrency bounds parallel connection attempts per host.
const portProbeConcurrency = 10

// PortProber performs TCP connect probes against a fixed port list.
type PortProber struct {
	ports   []int
	timeout time.Duration
	logger  *zap.Logger
}

// NewPortProber creates a port prober for the given port list.
func NewPortProber(ports []int, timeout time.Duration, logger *zap.Logger) *PortProber {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PortProber{
		ports:   ports,
		timeout: timeout,
		logger:  logger,
	}
}

// Probe checks every configured port on the target and returns their states,
// sorted by port number. A refused connection is "closed"; a timeout or
// other network error is "filtered".
func (p *PortProber) Probe(ctx context.Context, ip string) []models.Port {
	results := make([]models.Port, 0, len(p.ports))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, portProbeConcurrency)

	for _, port := range p.ports {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(port int) {
			defer wg.Done()
			defer func() { <-sem }()

			state := p.probePort(ctx, ip, port)
			mu.Lock()
			results = append(results, models.Port{Number: port, State: state})
			mu.Unlock()
		}(port)
	}
	wg.Wait()

	// Sort for deterministic output.
	sort.Slice(results, func(i, j int) bool { return results[i].Number < results[j].Number })

	p.logger.Debug("port probe complete",
		zap.String("ip", ip),
		zap.Int("ports", len(results)),
	)

	return results
}

func (p *PortProber) probePort(ctx context.Context, ip string, port int) models.PortState {
	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err == nil {
		conn.Close()
		return models.PortOpen
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && !opErr.Timeout() {
		return models.PortClosed
	}
	return models.PortFiltered
}

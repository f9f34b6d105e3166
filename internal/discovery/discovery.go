package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"cryptosocket/internal/domain"
)

const (
	ServiceType = "_cryptosocket._tcp"
	Domain      = "local."

	DefaultBrowseTimeout = 3 * time.Second

	txtFingerprint = "fp"
	txtVersion     = "version"
)

// Advertisement is a running mDNS registration.
type Advertisement struct {
	server *zeroconf.Server
	once   sync.Once
}

// Advertise registers a server instance on port. The fingerprint is
// published in the TXT record.
func Advertise(instance string, port int, fp domain.Fingerprint, version string) (*Advertisement, error) {
	if instance == "" {
		return nil, errors.New("instance name required")
	}
	txt := []string{txtFingerprint + "=" + fp.String()}
	if version != "" {
		txt = append(txt, txtVersion+"="+version)
	}
	server, err := zeroconf.Register(instance, ServiceType, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register service: %w", err)
	}
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the registration. It is safe to call more than once.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.once.Do(a.server.Shutdown)
}

// Browser finds advertised servers.
type Browser struct {
	// Timeout applies when the Browse context has no deadline of its own.
	Timeout time.Duration
}

// NewBrowser returns a Browser that waits timeout for answers.
func NewBrowser(timeout time.Duration) *Browser {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	return &Browser{Timeout: timeout}
}

// Browse collects servers until ctx is done or the browse timeout elapses.
// Each instance is reported once, in the order answers arrive.
func (b *Browser) Browse(ctx context.Context) ([]domain.DiscoveredServer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		timeout := b.Timeout
		if timeout <= 0 {
			timeout = DefaultBrowseTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("browse: %w", err)
	}

	seen := make(map[string]bool)
	var found []domain.DiscoveredServer
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return found, nil
			}
			srv, ok := buildServer(entry)
			if !ok || seen[srv.Instance] {
				continue
			}
			seen[srv.Instance] = true
			found = append(found, srv)
		case <-ctx.Done():
			if err := ctx.Err(); !errors.Is(err, context.DeadlineExceeded) {
				return found, err
			}
			return found, nil
		}
	}
}

// buildServer converts a zeroconf entry. Entries without an address are dropped.
func buildServer(entry *zeroconf.ServiceEntry) (domain.DiscoveredServer, bool) {
	if entry == nil {
		return domain.DiscoveredServer{}, false
	}

	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	default:
		return domain.DiscoveredServer{}, false
	}

	txt := parseTXT(entry.Text)
	return domain.DiscoveredServer{
		Instance:    entry.Instance,
		Address:     domain.Address(net.JoinHostPort(host, strconv.Itoa(entry.Port))),
		Fingerprint: domain.Fingerprint(txt[txtFingerprint]),
		Version:     txt[txtVersion],
	}, true
}

// parseTXT converts TXT records into a key/value map.
func parseTXT(records []string) map[string]string {
	values := make(map[string]string, len(records))
	for _, record := range records {
		if record == "" {
			continue
		}
		if eq := strings.IndexByte(record, '='); eq >= 0 {
			key := strings.TrimSpace(record[:eq])
			if key != "" {
				values[key] = strings.TrimSpace(record[eq+1:])
			}
			continue
		}
		values[strings.TrimSpace(record)] = ""
	}
	return values
}

// Compile-time assertion that Browser implements domain.DiscoveryService.
var _ domain.DiscoveryService = (*Browser)(nil)

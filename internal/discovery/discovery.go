// Package discovery locates remote analyzers announced over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// Service is the DNS-SD service type remote analyzers announce.
const Service = "_sigstream._tcp"

// Server represents a discovered analyzer endpoint.
type Server struct {
	Instance  string // advertised name, e.g. "analyzer on bench-sdr"
	Hostname  string // DNS hostname, e.g. "bench-sdr.local."
	Addresses []net.IP
	Port      int
	TXT       []string
}

// Addr returns a dialable host:port for the server, preferring IPv4.
func (s Server) Addr() string {
	for _, ip := range s.Addresses {
		if ip.To4() != nil {
			return net.JoinHostPort(ip.String(), fmt.Sprint(s.Port))
		}
	}
	if len(s.Addresses) > 0 {
		return net.JoinHostPort(s.Addresses[0].String(), fmt.Sprint(s.Port))
	}
	return net.JoinHostPort(strings.TrimSuffix(s.Hostname, "."), fmt.Sprint(s.Port))
}

// Browse performs a blocking mDNS browse for analyzer services. It returns
// cleaned and deduplicated entries, sorted by instance name.
func Browse(ctx context.Context, timeout time.Duration) ([]Server, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(map[string]Server)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if e == nil {
					continue
				}

				addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
				addrs = append(addrs, e.AddrIPv4...)
				addrs = append(addrs, e.AddrIPv6...)

				key := fmt.Sprintf("%s|%d", e.HostName, e.Port)
				found[key] = Server{
					Instance:  cleanInstance(e.Instance),
					Hostname:  e.HostName,
					Addresses: addrs,
					Port:      e.Port,
					TXT:       append([]string{}, e.Text...),
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, Service, "local.", entries); err != nil {
		return nil, fmt.Errorf("discovery: browse: %w", err)
	}

	<-done

	out := make([]Server, 0, len(found))
	for _, s := range found {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out, nil
}

// cleanInstance removes zeroconf escape sequences: "\ " => " "
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}

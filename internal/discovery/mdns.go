// Package discovery advertises the HTTP API over mDNS.
package discovery

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v2"
)

// Service parameters.
const (
	ServiceType = "_http._tcp"
	Domain      = "local."
	APIPath     = "/api/v1"
)

// Config configures an Advertiser.
type Config struct {
	Instance  string
	Interface string // empty means all interfaces
	Port      int
	Version   string
	TTL       time.Duration
}

// Advertiser registers the daemon as an HTTP service.
type Advertiser struct {
	cfg Config

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an Advertiser. Nothing is announced until Start.
func NewAdvertiser(cfg Config) *Advertiser {
	return &Advertiser{cfg: cfg}
}

// TXTRecords returns the TXT strings announced with the service.
func TXTRecords(version string) []string {
	txt := []string{"path=" + APIPath}
	if version != "" {
		txt = append(txt, "version="+version)
	}
	return txt
}

// PortFromAddr extracts the port from a listen address such as ":80".
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in %q", addr)
	}
	return port, nil
}

func (a *Advertiser) interfaces() ([]net.Interface, error) {
	if a.cfg.Interface == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(a.cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("mdns interface %q: %w", a.cfg.Interface, err)
	}
	return []net.Interface{*iface}, nil
}

// Start registers the service, replacing any earlier registration.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	ifaces, err := a.interfaces()
	if err != nil {
		return err
	}

	var opts []zeroconf.ServerOption
	if a.cfg.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.cfg.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		a.cfg.Instance,
		ServiceType,
		Domain,
		a.cfg.Port,
		TXTRecords(a.cfg.Version),
		ifaces,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register %s.%s: %w", a.cfg.Instance, ServiceType, err)
	}
	a.server = server
	return nil
}

// Stop withdraws the service. It is safe to call when not started.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}

// Package discovery advertises the relay broker over mDNS so a
// publisher or consumer on the same LAN can find it without a
// hardcoded address, grounded on the teacher's internal/app/mdns.go.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType = "_relay._tcp"
	domain      = "local."
)

// Advertiser wraps the zeroconf server handle for a running broker.
type Advertiser struct {
	server *zeroconf.Server
	logger *slog.Logger
}

// Start registers an mDNS advertisement for the broker listening on
// port. Callers must call Stop to withdraw it.
func Start(port int, logger *slog.Logger) (*Advertiser, error) {
	if port <= 0 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "relay"
	}

	instance := sanitizeInstance(fmt.Sprintf("Relay Broker (%s)", hostname))
	hostLabel := sanitizeHost(hostname)
	hostFQDN := hostLabel
	if !strings.Contains(hostFQDN, ".") {
		hostFQDN = hostLabel + ".local"
	}

	txt := []string{
		fmt.Sprintf("relay_port=%d", port),
		"proto=v1",
		fmt.Sprintf("host=%s", hostFQDN),
	}

	server, err := zeroconf.Register(instance, serviceType, domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	logger.Info("mDNS advertisement started", "instance", instance, "port", port)
	return &Advertiser{server: server, logger: logger}, nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.logger.Info("mDNS advertisement stopped")
}

func sanitizeInstance(name string) string {
	cleaned := strings.TrimSpace(name)
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, ".", " ")
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	if cleaned == "" {
		cleaned = "Relay Broker"
	}
	runes := []rune(cleaned)
	const maxLen = 63
	if len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}

func sanitizeHost(name string) string {
	cleaned := strings.TrimSpace(strings.ToLower(name))
	replacer := strings.NewReplacer(" ", "-", "_", "-", "\n", "", "\r", "")
	cleaned = replacer.Replace(cleaned)
	if cleaned == "" {
		cleaned = "relay"
	}
	runes := []rune(cleaned)
	const maxLen = 63
	if len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}

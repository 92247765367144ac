package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DNS outcome classes. Only NXDOMAIN means the name truly failed to resolve;
// SERVFAIL_or_TIMEOUT is a resolver problem and is reported separately so the
// failure analysis can tell "DNS broken" from "DNS server unreachable".
const (
	DNSResolves    = "RESOLVES"
	DNSNxdomain    = "NXDOMAIN"
	DNSServfail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

var dnsTimeout = 3 * time.Second

// DNSChecker resolves a canonical hostname with the OS resolver.
type DNSChecker struct{}

func NewDNSChecker() *DNSChecker {
	return &DNSChecker{}
}

func (d *DNSChecker) Check(ctx context.Context, host string) CheckResult {
	host = strings.TrimSpace(host)
	if host == "" || strings.Contains(host, "://") {
		return CheckResult{Success: false, Message: DNSInvalidName}
	}

	cctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()
	r := &net.Resolver{} // OS resolver

	start := time.Now()
	ips, err := r.LookupIP(cctx, "ip", host)
	latency := time.Since(start).Seconds() * 1000

	if err == nil && len(ips) > 0 {
		return CheckResult{Success: true, LatencyMS: latency, Message: DNSResolves}
	}

	class := DNSNxdomain
	var de *net.DNSError
	if errors.As(err, &de) && (de.IsTemporary || de.Timeout()) {
		class = DNSServfail
	}
	return CheckResult{Success: false, LatencyMS: latency, Message: class}
}

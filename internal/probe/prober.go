package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/schwarzekatzer/netwatchdog/internal/config"
)

// Report is one full battery of connectivity checks. It is derived state,
// recomputed every cycle and never persisted.
type Report struct {
	Timestamp time.Time       `json:"timestamp"`
	Ping      map[string]bool `json:"ping_results"`
	DNSOK     bool            `json:"dns_ok"`
	DNSClass  string          `json:"dns_class,omitempty"`
	HTTPOK    *bool           `json:"http_ok,omitempty"` // nil when the policy skips the HTTP probe
	OK        bool            `json:"overall_ok"`
}

// Prober runs the check battery sequentially and reduces it to one verdict.
// Probe timeouts are each strictly shorter than the monitor interval, so a
// battery can never stall a cycle past its cadence.
type Prober struct {
	Hosts   []string
	DNSHost string
	HTTPURL string
	Policy  string

	Ping Checker
	DNS  Checker
	HTTP Checker

	now func() time.Time
}

func NewProber(cfg config.Config) *Prober {
	return &Prober{
		Hosts:   cfg.TestHosts,
		DNSHost: cfg.DNSTestHost,
		HTTPURL: cfg.HTTPTestURL,
		Policy:  cfg.ProbePolicy,
		Ping:    NewPingChecker(cfg.PingTimeout()),
		DNS:     NewDNSChecker(),
		HTTP:    NewHTTPChecker(cfg.PingTimeout()),
		now:     time.Now,
	}
}

// Aggregation thresholds. The full policy demands half the hosts plus a
// working name path; the simple policy accepts either signal alone.
const (
	fullPingThreshold   = 0.5
	simplePingThreshold = 0.3
)

func (p *Prober) Probe(ctx context.Context) Report {
	rep := Report{
		Timestamp: p.now().UTC(),
		Ping:      make(map[string]bool, len(p.Hosts)),
	}

	ok := 0
	for _, host := range p.Hosts {
		res := p.Ping.Check(ctx, host)
		rep.Ping[host] = res.Success
		if res.Success {
			ok++
		}
	}
	rate := 0.0
	if len(p.Hosts) > 0 {
		rate = float64(ok) / float64(len(p.Hosts))
	}

	dns := p.DNS.Check(ctx, p.DNSHost)
	rep.DNSOK = dns.Success
	rep.DNSClass = dns.Message

	if p.Policy == config.PolicySimple {
		rep.OK = rate >= simplePingThreshold || rep.DNSOK
		return rep
	}

	httpRes := p.HTTP.Check(ctx, p.HTTPURL)
	rep.HTTPOK = &httpRes.Success
	rep.OK = rate >= fullPingThreshold && (rep.DNSOK || httpRes.Success)
	return rep
}

// hook for tests
var listInterfaces = func() ([]psnet.InterfaceStat, error) { return psnet.Interfaces() }

// Explain turns a failed report into the operator-facing diagnosis. The
// wording is deterministic given the report contents.
func (r Report) Explain() string {
	var parts []string

	ok := 0
	for _, up := range r.Ping {
		if up {
			ok++
		}
	}
	switch {
	case len(r.Ping) > 0 && ok == 0:
		parts = append(parts, "all ping tests failed: local connectivity problem suspected")
	case ok < len(r.Ping):
		parts = append(parts, fmt.Sprintf("partial ping failures (%d/%d ok): network instability suspected", ok, len(r.Ping)))
	}

	if !r.DNSOK {
		if r.DNSClass == DNSServfail {
			parts = append(parts, "DNS resolver unreachable or timing out")
		} else {
			parts = append(parts, "DNS resolution failed: DNS server problem suspected")
		}
	}

	if r.HTTPOK != nil && !*r.HTTPOK {
		parts = append(parts, "HTTP test failed: firewall or proxy suspected")
	}

	if down := downedInterfaces(); len(down) > 0 {
		parts = append(parts, "network interface down: "+strings.Join(down, ", "))
	}

	if len(parts) == 0 {
		return "cause unknown"
	}
	return strings.Join(parts, "; ")
}

// downedInterfaces lists non-loopback interfaces that are not up. Errors are
// swallowed: this is diagnostic color, not a decision input.
func downedInterfaces() []string {
	ifs, err := listInterfaces()
	if err != nil {
		return nil
	}
	var down []string
	for _, ifc := range ifs {
		if strings.Contains(strings.ToLower(ifc.Name), "lo") && len(ifc.Name) <= 3 {
			continue
		}
		up := false
		for _, f := range ifc.Flags {
			if strings.EqualFold(f, "up") {
				up = true
				break
			}
		}
		if !up {
			down = append(down, ifc.Name)
		}
	}
	return down
}

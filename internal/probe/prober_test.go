package probe

import (
	"context"
	"strings"
	"testing"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/schwarzekatzer/netwatchdog/internal/config"
)

// fake checker keyed by target
type fakeChecker struct {
	results map[string]CheckResult
}

func (f *fakeChecker) Check(ctx context.Context, target string) CheckResult {
	if r, ok := f.results[target]; ok {
		return r
	}
	return CheckResult{Success: false, Message: "unknown target"}
}

func newTestProber(policy string, ping, dns, httpc Checker) *Prober {
	return &Prober{
		Hosts:   []string{"8.8.8.8", "1.1.1.1", "google.com"},
		DNSHost: "google.com",
		HTTPURL: "http://www.google.com",
		Policy:  policy,
		Ping:    ping,
		DNS:     dns,
		HTTP:    httpc,
		now:     time.Now,
	}
}

func pingFake(a, b, c bool) *fakeChecker {
	return &fakeChecker{results: map[string]CheckResult{
		"8.8.8.8":    {Success: a},
		"1.1.1.1":    {Success: b},
		"google.com": {Success: c},
	}}
}

func dnsFake(ok bool) *fakeChecker {
	msg := DNSResolves
	if !ok {
		msg = DNSNxdomain
	}
	return &fakeChecker{results: map[string]CheckResult{"google.com": {Success: ok, Message: msg}}}
}

func httpFake(ok bool) *fakeChecker {
	return &fakeChecker{results: map[string]CheckResult{"http://www.google.com": {Success: ok}}}
}

func TestProbe_FullPolicy_OneOfThreePingsFails(t *testing.T) {
	// 1/3 < 0.5, so even a healthy DNS cannot save the verdict
	p := newTestProber(config.PolicyFull, pingFake(true, false, false), dnsFake(true), httpFake(true))
	rep := p.Probe(context.Background())

	if rep.OK {
		t.Fatalf("want overall_ok=false with 1/3 pings, got %+v", rep)
	}
	if !rep.DNSOK {
		t.Fatalf("dns should be ok")
	}
	if rep.HTTPOK == nil || !*rep.HTTPOK {
		t.Fatalf("http should be probed and ok under full policy")
	}
}

func TestProbe_FullPolicy_PingsOKButNamePathDead(t *testing.T) {
	p := newTestProber(config.PolicyFull, pingFake(true, true, true), dnsFake(false), httpFake(false))
	rep := p.Probe(context.Background())
	if rep.OK {
		t.Fatalf("full policy requires DNS or HTTP, got ok")
	}
}

func TestProbe_FullPolicy_HalfPingsWithHTTP(t *testing.T) {
	// 2/3 >= 0.5 and HTTP alive: up, even with DNS broken
	p := newTestProber(config.PolicyFull, pingFake(true, true, false), dnsFake(false), httpFake(true))
	rep := p.Probe(context.Background())
	if !rep.OK {
		t.Fatalf("want ok, got %+v", rep)
	}
}

func TestProbe_SimplePolicy_DNSAloneSuffices(t *testing.T) {
	// 1/3 >= 0.3 OR dns: both paths independently satisfy the simple policy
	p := newTestProber(config.PolicySimple, pingFake(true, false, false), dnsFake(true), httpFake(false))
	rep := p.Probe(context.Background())

	if !rep.OK {
		t.Fatalf("want ok under simple policy, got %+v", rep)
	}
	if rep.HTTPOK != nil {
		t.Fatalf("simple policy must not issue an HTTP probe")
	}
}

func TestProbe_SimplePolicy_AllDead(t *testing.T) {
	p := newTestProber(config.PolicySimple, pingFake(false, false, false), dnsFake(false), httpFake(false))
	rep := p.Probe(context.Background())
	if rep.OK {
		t.Fatalf("want failure, got %+v", rep)
	}
}

func TestExplain_Wording(t *testing.T) {
	// keep the interface scan out of the assertion
	old := listInterfaces
	listInterfaces = func() ([]psnet.InterfaceStat, error) { return nil, nil }
	defer func() { listInterfaces = old }()

	f := false
	rep := Report{
		Ping:     map[string]bool{"8.8.8.8": false, "1.1.1.1": false, "google.com": false},
		DNSOK:    false,
		DNSClass: DNSNxdomain,
		HTTPOK:   &f,
	}
	got := rep.Explain()
	for _, want := range []string{"local connectivity problem", "DNS", "firewall or proxy"} {
		if !strings.Contains(got, want) {
			t.Fatalf("explanation missing %q: %s", want, got)
		}
	}

	rep.Ping["8.8.8.8"] = true
	got = rep.Explain()
	if !strings.Contains(got, "1/3") || !strings.Contains(got, "instability") {
		t.Fatalf("partial failure should name counts: %s", got)
	}
}

func TestExplain_HealthyReportHasNoDiagnosis(t *testing.T) {
	old := listInterfaces
	listInterfaces = func() ([]psnet.InterfaceStat, error) { return nil, nil }
	defer func() { listInterfaces = old }()

	rep := Report{
		Ping:  map[string]bool{"8.8.8.8": true},
		DNSOK: true,
	}
	if got := rep.Explain(); got != "cause unknown" {
		t.Fatalf("nothing to diagnose, got %q", got)
	}
}

func TestExplain_NamesDownedInterfaces(t *testing.T) {
	old := listInterfaces
	listInterfaces = func() ([]psnet.InterfaceStat, error) {
		return []psnet.InterfaceStat{
			{Name: "lo", Flags: []string{"up", "loopback"}},
			{Name: "eth0", Flags: []string{"broadcast"}},
		}, nil
	}
	defer func() { listInterfaces = old }()

	rep := Report{Ping: map[string]bool{"8.8.8.8": false}, DNSOK: true}
	if got := rep.Explain(); !strings.Contains(got, "eth0") {
		t.Fatalf("want eth0 named as down: %s", got)
	}
}

// checknow runs one probe battery and process scan against the daemon's
// config and prints the verdict. Exit code 1 means the network looked down.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/schwarzekatzer/netwatchdog/internal/config"
	"github.com/schwarzekatzer/netwatchdog/internal/probe"
	"github.com/schwarzekatzer/netwatchdog/internal/procscan"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.CheckIntervalSec)*time.Second)
	defer cancel()

	active, matched, err := procscan.New().Scan(ctx, cfg.RemoteProcesses)
	if err != nil {
		fmt.Fprintln(os.Stderr, "process scan:", err)
	}
	if active {
		fmt.Printf("remote software running: %s\n", strings.Join(matched, ", "))
	} else {
		fmt.Println("remote software running: none")
	}

	rep := probe.NewProber(cfg).Probe(ctx)

	hosts := make([]string, 0, len(rep.Ping))
	for h := range rep.Ping {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	for _, h := range hosts {
		fmt.Printf("ping %-20s %s\n", h, upDown(rep.Ping[h]))
	}
	fmt.Printf("dns  %-20s %s (%s)\n", cfg.DNSTestHost, upDown(rep.DNSOK), rep.DNSClass)
	if rep.HTTPOK != nil {
		fmt.Printf("http %-20s %s\n", cfg.HTTPTestURL, upDown(*rep.HTTPOK))
	}

	if rep.OK {
		fmt.Println("overall: OK")
		return
	}
	fmt.Println("overall: FAILED:", rep.Explain())
	os.Exit(1)
}

func upDown(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

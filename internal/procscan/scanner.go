package procscan

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Scanner reports whether any known remote-access executable is running.
// Implementations must return the matched known names, not raw process names.
type Scanner interface {
	Scan(ctx context.Context, knownNames []string) (bool, []string, error)
}

// PSScanner walks the OS process table via gopsutil.
type PSScanner struct{}

func New() *PSScanner {
	return &PSScanner{}
}

// Scan matches each known name case-insensitively as a substring of each
// process display name. Processes that vanish mid-scan or refuse inspection
// are skipped; one unreadable entry never fails the whole scan.
func (s *PSScanner) Scan(ctx context.Context, knownNames []string) (bool, []string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, nil, err
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}

	matched := matchNames(names, knownNames)
	return len(matched) > 0, matched, nil
}

// matchNames returns the known names found in procNames, preserving the order
// of knownNames and without duplicates.
func matchNames(procNames, knownNames []string) []string {
	seen := make(map[string]bool, len(knownNames))
	for _, name := range procNames {
		lower := strings.ToLower(name)
		for _, known := range knownNames {
			if !seen[known] && strings.Contains(lower, strings.ToLower(known)) {
				seen[known] = true
			}
		}
	}

	matched := make([]string, 0, len(seen))
	for _, known := range knownNames {
		if seen[known] {
			matched = append(matched, known)
		}
	}
	return matched
}

package headers

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goatd/goatforge/src/common/paths"
)

// DefaultBrandMarker is the naming marker of the goatd kernel distribution.
const DefaultBrandMarker = "goatd"

// Strategy names the locator step that produced a candidate. It appears in
// diagnostics only; every strategy applies the same acceptance rule.
type Strategy string

const (
	// StrategyExact probes <srcRoot>/linux-<full>.
	StrategyExact Strategy = "exact"

	// StrategyBase probes <srcRoot>/linux-<base>. The base-named directory
	// existing is not sufficient; it must still pass the metadata check.
	StrategyBase Strategy = "base-version"

	// StrategyScan enumerates every <srcRoot>/linux-* directory, lexically
	// sorted, with branded names pushed to the end of the scan order.
	StrategyScan Strategy = "strict-scan"

	// StrategyBrandFallback re-examines the branded subset after the strict
	// scan exhausts. It applies no relaxed rule; its only contribution over
	// StrategyScan is a distinct diagnostic when it too comes up empty.
	StrategyBrandFallback Strategy = "branding-fallback"
)

// Candidate is a header directory considered during discovery.
type Candidate struct {
	// Path is the candidate directory.
	Path string

	// ClaimedVersion is the version the directory name claims (the part
	// after "linux-"). Advisory only; never trusted for acceptance.
	ClaimedVersion string

	// Branded marks names following the custom-distribution convention.
	// Branding is an ordering hint, never a validation criterion.
	Branded bool
}

// StrategyCandidates groups the candidates one locator strategy yields.
type StrategyCandidates struct {
	Strategy   Strategy
	Candidates []Candidate
}

// Locator enumerates candidate header trees under SrcRoot in strict
// priority order. It holds no state between calls; candidates are
// recomputed from the filesystem on every invocation.
type Locator struct {
	// SrcRoot is the directory holding header trees (normally /usr/src).
	SrcRoot string

	// BrandMarkers are the naming markers treated as branded. Empty means
	// the goatd default.
	BrandMarkers []string
}

func (l *Locator) brandMarkers() []string {
	if len(l.BrandMarkers) == 0 {
		return []string{DefaultBrandMarker}
	}
	return l.BrandMarkers
}

// IsBranded reports whether the directory name (not path) follows the
// custom-distribution naming convention: "linux-" followed by a name
// containing a brand marker.
func (l *Locator) IsBranded(name string) bool {
	rest, ok := strings.CutPrefix(name, "linux-")
	if !ok {
		return false
	}
	for _, marker := range l.brandMarkers() {
		if strings.Contains(rest, marker) {
			return true
		}
	}
	return false
}

// Strategies returns the full, ordered candidate plan for target. Callers
// walk the groups in order and accept the first candidate that passes the
// metadata check; candidates are never scored against each other.
func (l *Locator) Strategies(target Version) []StrategyCandidates {
	plan := []StrategyCandidates{
		{Strategy: StrategyExact, Candidates: l.named(target.Full)},
		{Strategy: StrategyBase, Candidates: l.named(target.Base)},
	}

	scanned := l.scan()
	plan = append(plan, StrategyCandidates{Strategy: StrategyScan, Candidates: scanned})

	var branded []Candidate
	for _, c := range scanned {
		if c.Branded {
			branded = append(branded, c)
		}
	}
	plan = append(plan, StrategyCandidates{Strategy: StrategyBrandFallback, Candidates: branded})

	return plan
}

// named returns the single candidate <srcRoot>/linux-<version>, or nothing
// if no such directory exists.
func (l *Locator) named(version string) []Candidate {
	name := "linux-" + version
	dir := filepath.Join(l.SrcRoot, name)
	if !paths.IsDir(dir) {
		return nil
	}
	return []Candidate{{
		Path:           dir,
		ClaimedVersion: version,
		Branded:        l.IsBranded(name),
	}}
}

// scan enumerates every linux-* directory under SrcRoot, lexically sorted,
// then stably partitioned so branded names come last. Directory-listing
// order is never relied upon.
func (l *Locator) scan() []Candidate {
	entries, err := os.ReadDir(l.SrcRoot)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "linux-") {
			continue
		}
		if !paths.IsDir(filepath.Join(l.SrcRoot, entry.Name())) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var plain, branded []Candidate
	for _, name := range names {
		c := Candidate{
			Path:           filepath.Join(l.SrcRoot, name),
			ClaimedVersion: strings.TrimPrefix(name, "linux-"),
			Branded:        l.IsBranded(name),
		}
		if c.Branded {
			branded = append(branded, c)
		} else {
			plain = append(plain, c)
		}
	}
	return append(plain, branded...)
}

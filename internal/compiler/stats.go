package compiler

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Stats is the build result contract exposed upward: output identity,
// error state and a serializable report.
type Stats struct {
	Compilation *Compilation
	StartTime   time.Time
	EndTime     time.Time
}

// Hash returns the identity of this build's output. Watch-mode callers use
// it to suppress duplicate report printing when output is unchanged.
func (s *Stats) Hash() string { return s.Compilation.Hash() }

// HasErrors reports whether the compilation collected soft build errors.
func (s *Stats) HasErrors() bool { return len(s.Compilation.Errors()) > 0 }

// Duration is the wall-clock build time.
func (s *Stats) Duration() time.Duration { return s.EndTime.Sub(s.StartTime) }

// AssetReport describes one output asset in the serializable report.
type AssetReport struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Emitted bool   `json:"emitted"`
}

// Report is the plain reportable structure derived from a Stats.
type Report struct {
	Hash       string            `json:"hash"`
	Errors     []string          `json:"errors,omitempty"`
	Assets     []AssetReport     `json:"assets"`
	DurationMS int64             `json:"duration_ms"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Report converts the stats into its serializable form.
func (s *Stats) Report() Report {
	comp := s.Compilation

	assetMap := comp.Assets()
	reports := make([]AssetReport, 0, len(assetMap))
	for _, name := range sortedAssetNames(assetMap) {
		reports = append(reports, AssetReport{
			Name:    name,
			Size:    assetMap[name].Size(),
			Emitted: comp.WasEmitted(name),
		})
	}

	var errs []string
	for _, err := range comp.Errors() {
		errs = append(errs, err.Error())
	}
	sort.Strings(errs)

	meta := comp.Meta()
	if len(meta) == 0 {
		meta = nil
	}

	return Report{
		Hash:       s.Hash(),
		Errors:     errs,
		Assets:     reports,
		DurationMS: s.Duration().Milliseconds(),
		Meta:       meta,
	}
}

// Summary renders a human-readable one-build report.
func (s *Stats) Summary() string {
	r := s.Report()

	var b strings.Builder
	fmt.Fprintf(&b, "Hash: %s\n", r.Hash)
	fmt.Fprintf(&b, "Time: %dms\n", r.DurationMS)
	for _, a := range r.Assets {
		status := "emitted"
		if !a.Emitted {
			status = "cached"
		}
		fmt.Fprintf(&b, "  %s  %d bytes  [%s]\n", a.Name, a.Size, status)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "%d error(s):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  ERROR %s\n", e)
		}
	}
	return b.String()
}

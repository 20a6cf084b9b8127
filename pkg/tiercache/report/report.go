// Package report renders tiercache's terminal output: status lines while
// the stages run and a summary box at the end.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/tiercache/pkg/tiercache/hardware"
	"github.com/jamesainslie/tiercache/pkg/tiercache/kernel"
	"github.com/jamesainslie/tiercache/pkg/tiercache/precache"
	"github.com/jamesainslie/tiercache/pkg/tiercache/sizing"
	"github.com/jamesainslie/tiercache/pkg/tiercache/volume"
)

// Summary is everything the final report shows.
type Summary struct {
	RunID    string
	Profile  hardware.Profile
	Sizing   sizing.Result
	Volume   volume.CacheVolume
	Tuning   []kernel.Outcome
	Precache precache.Result
	Usage    []TierUsage

	// Missing lists layout directories that could not be found.
	Missing []string
}

// Write renders s to w.
func Write(w io.Writer, s Summary) error {
	_, err := fmt.Fprintln(w, Render(s))
	return err
}

// Render returns the summary box.
func Render(s Summary) string {
	sections := []string{
		TitleStyle.Render("tiercache ready"),
		renderHardware(s.Profile),
		renderVolume(s.Volume, s.Sizing, s.Missing),
		renderTiers(s.Sizing, s.Usage),
		renderTuning(s.Tuning),
		renderPrecache(s.Precache),
	}
	if s.RunID != "" {
		sections = append(sections, MutedStyle.Render("run "+s.RunID))
	}
	return SummaryBox.Render(strings.Join(sections, "\n\n"))
}

func renderHardware(p hardware.Profile) string {
	lines := []string{
		SectionStyle.Render("Hardware"),
		field("Memory", humanize.IBytes(uint64(p.RAMBytes))),
		field("CPU", fmt.Sprintf("%s, %d cores / %d threads (%s)", p.CPUBrand, p.CPUCores, p.CPUThreads, p.Arch)),
		field("GPU", fmt.Sprintf("%s, %d cores", p.GPUName, p.GPUCores)),
		field("Storage", p.StorageKind),
	}
	for _, w := range p.Warnings {
		lines = append(lines, WarningStyle.Render("  default used: "+w))
	}
	return strings.Join(lines, "\n")
}

func renderVolume(v volume.CacheVolume, r sizing.Result, missing []string) string {
	backing := SuccessStyle.Render(v.Backing.String())
	if v.Backing != volume.MemoryBacked {
		backing = WarningStyle.Render(v.Backing.String())
	}

	lines := []string{
		SectionStyle.Render("Volume"),
		field("Mount", v.MountPath),
		field("Backing", backing),
		field("Size", SizeStyle.Render(megabytes(r.TotalMB))),
	}
	if v.Device != "" {
		lines = append(lines, field("Device", v.Device))
	}
	for _, dir := range missing {
		lines = append(lines, ErrorStyle.Render("  missing: "+dir))
	}
	return strings.Join(lines, "\n")
}

func renderTiers(r sizing.Result, usage []TierUsage) string {
	budgets := map[string]int{"tier1": r.Tier1MB, "tier2": r.Tier2MB, "tier3": r.Tier3MB}
	percents := map[string]int{"tier1": sizing.Tier1Percent, "tier2": sizing.Tier2Percent, "tier3": sizing.Tier3Percent}

	lines := []string{SectionStyle.Render("Tiers")}
	for _, tier := range volume.Layout {
		used := MutedStyle.Render("empty")
		for _, u := range usage {
			if u.Name == tier.Name && u.Files > 0 {
				used = fmt.Sprintf("%s in %s files", humanize.IBytes(uint64(u.Bytes)), humanize.Comma(u.Files))
			}
		}
		budget := fmt.Sprintf("%9s (%d%%)", megabytes(budgets[tier.Name]), percents[tier.Name])
		lines = append(lines, fmt.Sprintf("  %s %s  %s", LabelStyle.Render(tier.Name), SizeStyle.Render(budget), used))
	}
	if total := Total(usage); total.Files > 0 {
		lines = append(lines, field("In use", fmt.Sprintf("%s in %s files",
			humanize.IBytes(uint64(total.Bytes)), humanize.Comma(total.Files))))
	}
	return strings.Join(lines, "\n")
}

func renderTuning(outcomes []kernel.Outcome) string {
	applied, failed := kernel.Count(outcomes)

	summary := SuccessStyle.Render(fmt.Sprintf("%d applied", applied))
	if failed > 0 {
		summary += ", " + WarningStyle.Render(fmt.Sprintf("%d skipped", failed))
	}
	if len(outcomes) == 0 {
		summary = MutedStyle.Render("none")
	}

	lines := []string{SectionStyle.Render("Kernel tuning"), field("Parameters", summary)}
	for _, o := range outcomes {
		if !o.Applied() {
			lines = append(lines, MutedStyle.Render(fmt.Sprintf("  %s=%s not applied", o.Parameter.Name, o.Parameter.Value)))
		}
	}
	return strings.Join(lines, "\n")
}

func renderPrecache(r precache.Result) string {
	value := fmt.Sprintf("%d of %d sources copied", r.Copied, r.Attempted)
	switch {
	case r.Attempted == 0:
		value = MutedStyle.Render("no sources present")
	case r.Copied < r.Attempted:
		value = WarningStyle.Render(value)
	default:
		value = SuccessStyle.Render(value)
	}
	return strings.Join([]string{SectionStyle.Render("Precache"), field("Tier 1", value)}, "\n")
}

func field(label, value string) string {
	return fmt.Sprintf("  %s %s", LabelStyle.Render(label+":"), value)
}

// megabytes formats a size given in MB.
func megabytes(mb int) string {
	return humanize.IBytes(uint64(mb) * 1024 * 1024)
}

package qualitygate

import (
	"fmt"
	"strings"
)

// GateConfig defines the configuration for catalog quality gates.
type GateConfig struct {
	MinNames     int    `mapstructure:"min_names" json:"min_names"`
	NameSeverity string `mapstructure:"name_severity" json:"name_severity"`

	CoverageThreshold float64 `mapstructure:"coverage_threshold" json:"coverage_threshold"`
	CoverageSeverity  string  `mapstructure:"coverage_severity" json:"coverage_severity"`

	MaxFailedDetails int    `mapstructure:"max_failed_details" json:"max_failed_details"`
	DetailsSeverity  string `mapstructure:"details_severity" json:"details_severity"`
}

// DefaultConfig returns the default gate configuration: at least 40 names
// (critical), everything else advisory.
func DefaultConfig() *GateConfig {
	return &GateConfig{
		MinNames:          40,
		NameSeverity:      "critical",
		CoverageThreshold: 0.8,
		CoverageSeverity:  "advisory",
		MaxFailedDetails:  0,
		DetailsSeverity:   "advisory",
	}
}

// parseSeverity converts a string to GateSeverity.
func parseSeverity(s string) GateSeverity {
	switch s {
	case "critical":
		return SeverityCritical
	case "required":
		return SeverityRequired
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// NamePipeline builds the gates evaluated right after category names are
// parsed.
func NamePipeline(cfg *GateConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return NewPipeline(
		NewNameCountGate(cfg.MinNames, parseSeverity(cfg.NameSeverity)),
		NewDuplicateNameGate(SeverityAdvisory),
	)
}

// ReportPipeline builds the gates evaluated once classification and details
// generation are done.
func ReportPipeline(cfg *GateConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := NewPipeline(NewEmptyBucketGate(SeverityAdvisory))
	if cfg.CoverageThreshold > 0 {
		p.AddGate(NewCoverageGate(cfg.CoverageThreshold, parseSeverity(cfg.CoverageSeverity)))
	}
	if cfg.MaxFailedDetails >= 0 {
		p.AddGate(NewDetailsGate(cfg.MaxFailedDetails, parseSeverity(cfg.DetailsSeverity)))
	}
	return p
}

// FormatReport renders a pipeline result for terminal output.
func FormatReport(result *PipelineResult) string {
	var sb strings.Builder
	sb.WriteString("Catalog quality gates\n")

	for _, gr := range result.Gates {
		mark := "ok  "
		switch gr.Status {
		case GateFailed:
			mark = "FAIL"
		case GateSkipped:
			mark = "skip"
		case GateWarning:
			mark = "warn"
		}
		fmt.Fprintf(&sb, "  [%s] %-16s %-9s %s\n", mark, gr.Name, gr.Severity, gr.Message)
		for _, d := range gr.Details {
			fmt.Fprintf(&sb, "         - %s\n", d)
		}
	}

	status := "PASSED"
	if result.Status == GateFailed {
		status = "FAILED"
	}
	fmt.Fprintf(&sb, "Result: %s (%s)\n", status, result.Summary)
	return sb.String()
}

package qualitygate

import (
	"fmt"
	"strings"
)

// NameCountGate checks that the model proposed enough distinct category names.
type NameCountGate struct {
	MinNames int
	severity GateSeverity
}

func NewNameCountGate(minNames int, severity GateSeverity) *NameCountGate {
	return &NameCountGate{MinNames: minNames, severity: severity}
}

func (g *NameCountGate) Name() string          { return "name_count" }
func (g *NameCountGate) Severity() GateSeverity { return g.severity }
func (g *NameCountGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	n := len(distinct(ctx.CategoryNames))
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: float64(g.MinNames),
		Score:     float64(n),
	}
	if n >= g.MinNames {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("%d category names meet minimum %d", n, g.MinNames)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("only %d category names, minimum is %d", n, g.MinNames)
	}
	return r, nil
}

// DuplicateNameGate reports names the model proposed more than once.
type DuplicateNameGate struct {
	severity GateSeverity
}

func NewDuplicateNameGate(severity GateSeverity) *DuplicateNameGate {
	return &DuplicateNameGate{severity: severity}
}

func (g *DuplicateNameGate) Name() string          { return "duplicate_names" }
func (g *DuplicateNameGate) Severity() GateSeverity { return g.severity }
func (g *DuplicateNameGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity}
	if len(ctx.CategoryNames) == 0 {
		r.Status = GateSkipped
		r.Message = "No names to evaluate"
		return r, nil
	}

	seen := make(map[string]int, len(ctx.CategoryNames))
	for _, n := range ctx.CategoryNames {
		seen[n]++
	}
	for _, n := range distinct(ctx.CategoryNames) {
		if seen[n] > 1 {
			r.Details = append(r.Details, fmt.Sprintf("%s (x%d)", n, seen[n]))
		}
	}

	if len(r.Details) == 0 {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = "All names distinct"
	} else {
		r.Status = GateFailed
		r.Score = float64(len(seen)) / float64(len(ctx.CategoryNames))
		r.Message = fmt.Sprintf("%d names repeated", len(r.Details))
	}
	return r, nil
}

// CoverageGate checks the share of cases that landed in a named category
// rather than the unclassified bucket.
type CoverageGate struct {
	MinCoverage float64
	severity    GateSeverity
}

func NewCoverageGate(minCoverage float64, severity GateSeverity) *CoverageGate {
	return &CoverageGate{MinCoverage: minCoverage, severity: severity}
}

func (g *CoverageGate) Name() string          { return "coverage" }
func (g *CoverageGate) Severity() GateSeverity { return g.severity }
func (g *CoverageGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: g.MinCoverage,
	}

	if ctx.CasesTotal == 0 {
		r.Status = GateSkipped
		r.Message = "No cases to evaluate"
		return r, nil
	}

	coverage := float64(ctx.CasesClassified) / float64(ctx.CasesTotal)
	r.Score = coverage

	if coverage >= g.MinCoverage {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Classification coverage %.1f%% meets threshold %.1f%%",
			coverage*100, g.MinCoverage*100)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Classification coverage %.1f%% below threshold %.1f%% (%d/%d classified)",
			coverage*100, g.MinCoverage*100, ctx.CasesClassified, ctx.CasesTotal)
	}
	return r, nil
}

// EmptyBucketGate lists category names that received no case.
type EmptyBucketGate struct {
	severity GateSeverity
}

func NewEmptyBucketGate(severity GateSeverity) *EmptyBucketGate {
	return &EmptyBucketGate{severity: severity}
}

func (g *EmptyBucketGate) Name() string          { return "empty_buckets" }
func (g *EmptyBucketGate) Severity() GateSeverity { return g.severity }
func (g *EmptyBucketGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity}
	if len(ctx.EmptyBuckets) == 0 {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = "Every category received cases"
		return r, nil
	}
	r.Status = GateFailed
	r.Message = fmt.Sprintf("%d categories received no case", len(ctx.EmptyBuckets))
	r.Details = ctx.EmptyBuckets
	return r, nil
}

// DetailsGate checks how many categories fell back to the failed payload.
type DetailsGate struct {
	MaxFailures int
	severity    GateSeverity
}

func NewDetailsGate(maxFailures int, severity GateSeverity) *DetailsGate {
	return &DetailsGate{MaxFailures: maxFailures, severity: severity}
}

func (g *DetailsGate) Name() string          { return "details" }
func (g *DetailsGate) Severity() GateSeverity { return g.severity }
func (g *DetailsGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity}

	n := len(ctx.FailedDetails)
	if n <= g.MaxFailures {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = fmt.Sprintf("Failed details %d within limit %d", n, g.MaxFailures)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Failed details %d exceed limit %d: %s", n, g.MaxFailures, strings.Join(ctx.FailedDetails, ", "))
		r.Details = ctx.FailedDetails
	}
	return r, nil
}

func distinct(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

package violations

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// Record mirrors the PMD JSON violation layout for results converted from SARIF.
type Record struct {
	Rule            string `json:"rule"`
	Ruleset         string `json:"ruleset,omitempty"`
	Description     string `json:"description"`
	BeginLine       int    `json:"beginline"`
	EndLine         int    `json:"endline"`
	BeginColumn     int    `json:"begincolumn"`
	EndColumn       int    `json:"endcolumn"`
	Priority        int    `json:"priority"`
	ExternalInfoURL string `json:"externalInfoUrl,omitempty"`
}

// ReadSARIFFile loads a SARIF report (e.g. PMD run with -f sarif) and
// converts it into the PMD JSON shape.
func ReadSARIFFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, shrderrors.Wrap(shrderrors.ErrInputNotFound, "violation report %q", path)
		}
		return nil, fmt.Errorf("failed to read violation report %q: %w", path, err)
	}

	var sarifReport sarif.Report
	if err := json.Unmarshal(data, &sarifReport); err != nil {
		return nil, fmt.Errorf("violation report %q: %w", path, shrderrors.Wrap(shrderrors.ErrInputMalformed, "could not decode SARIF: %v", err))
	}
	report, err := FromSARIF(&sarifReport)
	if err != nil {
		return nil, fmt.Errorf("violation report %q: %w", path, err)
	}
	return report, nil
}

// FromSARIF groups SARIF results by artifact URI, in order of first appearance.
func FromSARIF(report *sarif.Report) (*Report, error) {
	if report == nil || report.Runs == nil {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "'runs' key not found")
	}

	var order []string
	grouped := make(map[string][]Record)
	for _, run := range report.Runs {
		if run == nil {
			continue
		}
		rules := rulesByID(run)
		for _, res := range run.Results {
			uri := resultURI(res)
			if uri == "" {
				continue
			}
			if _, ok := grouped[uri]; !ok {
				order = append(order, uri)
			}
			grouped[uri] = append(grouped[uri], toRecord(res, rules))
		}
	}

	out := &Report{Files: make([]json.RawMessage, 0, len(order))}
	for _, uri := range order {
		encoded, err := json.Marshal(struct {
			Filename   string   `json:"filename"`
			Violations []Record `json:"violations"`
		}{Filename: uri, Violations: grouped[uri]})
		if err != nil {
			return nil, fmt.Errorf("failed to encode violations for %q: %w", uri, err)
		}
		out.Files = append(out.Files, encoded)
	}
	return out, nil
}

func rulesByID(run *sarif.Run) map[string]*sarif.ReportingDescriptor {
	rules := make(map[string]*sarif.ReportingDescriptor)
	if run.Tool.Driver == nil {
		return rules
	}
	for _, rule := range run.Tool.Driver.Rules {
		if rule != nil {
			rules[rule.ID] = rule
		}
	}
	return rules
}

func resultURI(res *sarif.Result) string {
	if res == nil || len(res.Locations) == 0 {
		return ""
	}
	loc := res.Locations[0]
	if loc == nil || loc.PhysicalLocation == nil || loc.PhysicalLocation.ArtifactLocation == nil || loc.PhysicalLocation.ArtifactLocation.URI == nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(*loc.PhysicalLocation.ArtifactLocation.URI), "file://")
}

func toRecord(res *sarif.Result, rules map[string]*sarif.ReportingDescriptor) Record {
	var rec Record
	if res.RuleID != nil {
		rec.Rule = *res.RuleID
	}
	if res.Message.Text != nil {
		rec.Description = strings.TrimSpace(*res.Message.Text)
	}

	if region := res.Locations[0].PhysicalLocation.Region; region != nil {
		rec.BeginLine = intValue(region.StartLine)
		rec.EndLine = intValue(region.EndLine)
		rec.BeginColumn = intValue(region.StartColumn)
		rec.EndColumn = intValue(region.EndColumn)
	}
	if rec.EndLine == 0 {
		rec.EndLine = rec.BeginLine
	}

	rec.Priority = levelPriority(res.Level)
	if rule, ok := rules[rec.Rule]; ok {
		if rule.HelpURI != nil {
			rec.ExternalInfoURL = *rule.HelpURI
		}
		if p, ok := numberProperty(rule.Properties, "priority"); ok {
			rec.Priority = p
		}
		if rs, ok := rule.Properties["ruleset"].(string); ok {
			rec.Ruleset = rs
		}
	}
	return rec
}

// levelPriority maps SARIF levels onto PMD's 1 (high) to 5 (low) scale.
func levelPriority(level *string) int {
	if level == nil {
		return 3
	}
	switch *level {
	case "error":
		return 1
	case "warning":
		return 3
	case "note", "none":
		return 5
	default:
		return 3
	}
}

func numberProperty(props sarif.Properties, key string) (int, bool) {
	switch v := props[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

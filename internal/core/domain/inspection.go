package domain

import (
	"fmt"
	"time"
)

type InspectionOutcome string

const (
	InspectionPass        InspectionOutcome = "pass"
	InspectionFail        InspectionOutcome = "fail"
	InspectionConditional InspectionOutcome = "conditional"
)

func (o InspectionOutcome) Valid() bool {
	return o == InspectionPass || o == InspectionFail || o == InspectionConditional
}

// Criterion is one check an inspector answers.
type Criterion struct {
	Code     string `yaml:"code"`
	Label    string `yaml:"label"`
	Required bool   `yaml:"required"`
}

// DefaultInspectionCriteria applies to clients without a workflow profile.
func DefaultInspectionCriteria() []Criterion {
	return []Criterion{
		{Code: "visual_check", Label: "Visual check for damage", Required: true},
		{Code: "quantity_matches_po", Label: "Quantity matches PO", Required: true},
		{Code: "label_legibility", Label: "Labels legible", Required: true},
	}
}

// CriterionAnswer is the inspector's answer for one criterion.
type CriterionAnswer struct {
	Code   string
	Passed bool
	Value  string
	Notes  string
}

// InspectionResult is written once per inspection task and never changed.
type InspectionResult struct {
	ID          string
	TaskID      string
	Answers     []CriterionAnswer
	Overall     InspectionOutcome
	InspectorID string
	Notes       string
	CreatedAt   time.Time
}

// Validate checks the result against the criteria in force for the client.
func (r InspectionResult) Validate(criteria []Criterion) error {
	if !r.Overall.Valid() {
		return invalid("overall", fmt.Sprintf("unknown result %q", r.Overall))
	}
	if r.InspectorID == "" {
		return invalid("inspector_id", "required")
	}
	known := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		known[c.Code] = true
	}
	answered := make(map[string]bool, len(r.Answers))
	for _, a := range r.Answers {
		if !known[a.Code] {
			return invalid("answers", fmt.Sprintf("unknown criterion %q", a.Code))
		}
		answered[a.Code] = true
	}
	for _, c := range criteria {
		if c.Required && !answered[c.Code] {
			return invalid("answers", fmt.Sprintf("missing required criterion %q", c.Code))
		}
	}
	return nil
}

// DamageReport is returned by the damage-reporting collaborator.
type DamageReport struct {
	ID        string
	OrderID   string
	ProductID string
	Qty       int
	Cause     string
	Notes     string
	CreatedAt time.Time
}

const DamageCauseInspectionFailed = "inspection_failed"

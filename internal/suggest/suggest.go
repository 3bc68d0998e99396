// Package suggest is the boundary to an external generation service that
// proposes workflows, function charts, and gap lists as JSON. Decoding is
// strict: a payload that fails to parse or misses required fields is
// rejected whole and never creates entities. Accepted suggestions are
// applied through the same store operations manual edits use.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Generator produces a raw JSON suggestion payload for a prompt. The model
// service behind it is external; this package only owns the contract.
type Generator interface {
	Generate(ctx context.Context, kind Kind, prompt string) ([]byte, error)
}

// Kind selects which suggestion shape a generation call must return.
type Kind string

const (
	// KindWorkflows requests a list of workflow outlines.
	KindWorkflows Kind = "workflows"
	// KindFunctionChart requests a function chart outline.
	KindFunctionChart Kind = "function_chart"
	// KindGapList requests a list of detected documentation gaps.
	KindGapList Kind = "gap_list"
)

// WorkflowSuggestion outlines one proposed workflow.
type WorkflowSuggestion struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Phases      []PhaseSuggestion `json:"phases,omitempty"`
}

// PhaseSuggestion outlines one phase within a suggested workflow.
type PhaseSuggestion struct {
	Name  string           `json:"name"`
	Steps []StepSuggestion `json:"steps,omitempty"`
}

// StepSuggestion outlines one step with the activities it should link.
type StepSuggestion struct {
	Name       string               `json:"name"`
	Activities []ActivitySuggestion `json:"activities,omitempty"`
}

// FunctionSuggestion outlines one top-level function chart node.
type FunctionSuggestion struct {
	Name         string                  `json:"name"`
	Description  string                  `json:"description,omitempty"`
	Color        string                  `json:"color,omitempty"`
	SubFunctions []SubFunctionSuggestion `json:"sub_functions,omitempty"`
}

// SubFunctionSuggestion outlines one sub-function with its activities.
type SubFunctionSuggestion struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Activities  []ActivitySuggestion `json:"activities,omitempty"`
}

// ActivitySuggestion names one core activity a suggestion wants created.
type ActivitySuggestion struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GapSuggestion describes one detected deficiency in the operational
// documentation and what should be done to close it.
type GapSuggestion struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Category       string `json:"category,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// ParseError reports a rejected suggestion payload.
type ParseError struct {
	Kind Kind
	Msg  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("suggestion payload (%s): %s", e.Kind, e.Msg)
}

func decodeStrict(kind Kind, data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return ParseError{Kind: kind, Msg: err.Error()}
	}
	// Trailing content after the document is as suspect as a parse error.
	if dec.More() {
		return ParseError{Kind: kind, Msg: "trailing content after document"}
	}
	return nil
}

// ParseWorkflows decodes and validates a workflow list payload.
func ParseWorkflows(data []byte) ([]WorkflowSuggestion, error) {
	var workflows []WorkflowSuggestion
	if err := decodeStrict(KindWorkflows, data, &workflows); err != nil {
		return nil, err
	}
	if len(workflows) == 0 {
		return nil, ParseError{Kind: KindWorkflows, Msg: "empty workflow list"}
	}
	for i, wf := range workflows {
		if wf.Name == "" {
			return nil, ParseError{Kind: KindWorkflows, Msg: fmt.Sprintf("workflow %d missing name", i)}
		}
		for j, phase := range wf.Phases {
			if phase.Name == "" {
				return nil, ParseError{Kind: KindWorkflows, Msg: fmt.Sprintf("workflow %d phase %d missing name", i, j)}
			}
			for k, step := range phase.Steps {
				if step.Name == "" {
					return nil, ParseError{Kind: KindWorkflows, Msg: fmt.Sprintf("workflow %d phase %d step %d missing name", i, j, k)}
				}
				if err := validateActivities(KindWorkflows, step.Activities); err != nil {
					return nil, err
				}
			}
		}
	}
	return workflows, nil
}

// ParseFunctionChart decodes and validates a function chart payload.
func ParseFunctionChart(data []byte) ([]FunctionSuggestion, error) {
	var functions []FunctionSuggestion
	if err := decodeStrict(KindFunctionChart, data, &functions); err != nil {
		return nil, err
	}
	if len(functions) == 0 {
		return nil, ParseError{Kind: KindFunctionChart, Msg: "empty function chart"}
	}
	for i, fn := range functions {
		if fn.Name == "" {
			return nil, ParseError{Kind: KindFunctionChart, Msg: fmt.Sprintf("function %d missing name", i)}
		}
		for j, sf := range fn.SubFunctions {
			if sf.Name == "" {
				return nil, ParseError{Kind: KindFunctionChart, Msg: fmt.Sprintf("function %d sub-function %d missing name", i, j)}
			}
			if err := validateActivities(KindFunctionChart, sf.Activities); err != nil {
				return nil, err
			}
		}
	}
	return functions, nil
}

// ParseGapList decodes and validates a gap list payload.
func ParseGapList(data []byte) ([]GapSuggestion, error) {
	var gaps []GapSuggestion
	if err := decodeStrict(KindGapList, data, &gaps); err != nil {
		return nil, err
	}
	if len(gaps) == 0 {
		return nil, ParseError{Kind: KindGapList, Msg: "empty gap list"}
	}
	for i, gap := range gaps {
		if gap.Title == "" {
			return nil, ParseError{Kind: KindGapList, Msg: fmt.Sprintf("gap %d missing title", i)}
		}
		if gap.Description == "" {
			return nil, ParseError{Kind: KindGapList, Msg: fmt.Sprintf("gap %d missing description", i)}
		}
	}
	return gaps, nil
}

func validateActivities(kind Kind, activities []ActivitySuggestion) error {
	for i, activity := range activities {
		if activity.Name == "" {
			return ParseError{Kind: kind, Msg: fmt.Sprintf("activity %d missing name", i)}
		}
	}
	return nil
}

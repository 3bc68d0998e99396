package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"opschart/internal/store"
	"opschart/pkg/domain"
)

const workflowPayload = `[
  {
    "name": "Client onboarding",
    "description": "From signed contract to first delivery",
    "phases": [
      {
        "name": "Kickoff",
        "steps": [
          {"name": "Schedule call", "activities": [{"name": "Book meeting"}]},
          {"name": "Collect requirements"}
        ]
      },
      {"name": "Delivery"}
    ]
  },
  {"name": "Offboarding"}
]`

const chartPayload = `[
  {
    "name": "Marketing",
    "color": "#2d6cdf",
    "sub_functions": [
      {"name": "Content", "activities": [{"name": "Write posts", "description": "weekly cadence"}]},
      {"name": "Ads"}
    ]
  }
]`

const gapPayload = `[
  {"title": "Invoicing", "description": "No documented invoicing process", "category": "Finance", "priority": "high", "recommendation": "Write an SOP for monthly invoicing"},
  {"title": "Backups", "description": "No backup owner assigned"}
]`

func TestParseWorkflows(t *testing.T) {
	workflows, err := ParseWorkflows([]byte(workflowPayload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(workflows) != 2 {
		t.Fatalf("workflows = %d, want 2", len(workflows))
	}
	if len(workflows[0].Phases) != 2 || len(workflows[0].Phases[0].Steps) != 2 {
		t.Fatalf("shape = %+v", workflows[0])
	}
}

func TestParseRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name  string
		parse func([]byte) error
		data  string
	}{
		{"workflows not json", wrapWorkflows, `{"name": "x"`},
		{"workflows empty", wrapWorkflows, `[]`},
		{"workflows unnamed", wrapWorkflows, `[{"description": "no name"}]`},
		{"workflows unknown field", wrapWorkflows, `[{"name": "x", "surprise": true}]`},
		{"workflows trailing content", wrapWorkflows, `[{"name": "x"}] []`},
		{"chart empty", wrapChart, `[]`},
		{"chart unnamed sub-function", wrapChart, `[{"name": "x", "sub_functions": [{}]}]`},
		{"gaps missing description", wrapGaps, `[{"title": "x"}]`},
		{"gaps missing title", wrapGaps, `[{"description": "x"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.parse([]byte(tc.data))
			var pErr ParseError
			if !errors.As(err, &pErr) {
				t.Fatalf("err = %v, want ParseError", err)
			}
		})
	}
}

func wrapWorkflows(data []byte) error { _, err := ParseWorkflows(data); return err }
func wrapChart(data []byte) error     { _, err := ParseFunctionChart(data); return err }
func wrapGaps(data []byte) error      { _, err := ParseGapList(data); return err }

func TestApplyWorkflowsCreatesFullChain(t *testing.T) {
	s := store.NewStore(nil)
	applier := NewApplier(s)

	report, err := applier.ApplyWorkflows(context.Background(), []byte(workflowPayload))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Created[domain.EntityWorkflow] != 2 {
		t.Fatalf("workflows = %d, want 2", report.Created[domain.EntityWorkflow])
	}
	if report.Created[domain.EntityPhase] != 2 || report.Created[domain.EntityStep] != 2 {
		t.Fatalf("phases/steps = %d/%d, want 2/2", report.Created[domain.EntityPhase], report.Created[domain.EntityStep])
	}
	if report.Created[domain.EntityCoreActivity] != 1 || report.Created[domain.EntityStepActivity] != 1 {
		t.Fatalf("activities/links = %d/%d, want 1/1",
			report.Created[domain.EntityCoreActivity], report.Created[domain.EntityStepActivity])
	}

	err = s.View(context.Background(), func(v domain.TransactionView) error {
		for _, wf := range v.ListWorkflows() {
			if wf.Status != domain.StatusDraft {
				t.Fatalf("suggested workflow status = %q, want draft", wf.Status)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestApplyFunctionChartReusesExistingActivity(t *testing.T) {
	s := store.NewStore(nil)
	ctx := context.Background()
	_, err := s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.AddCoreActivity(domain.CoreActivity{Name: "Write posts"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	report, err := NewApplier(s).ApplyFunctionChart(ctx, []byte(chartPayload))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Created[domain.EntityCoreActivity] != 0 {
		t.Fatalf("duplicate activity created")
	}
	if report.Created[domain.EntityFunction] != 1 || report.Created[domain.EntitySubFunction] != 2 {
		t.Fatalf("functions/sub-functions = %d/%d, want 1/2",
			report.Created[domain.EntityFunction], report.Created[domain.EntitySubFunction])
	}
	if report.Created[domain.EntitySubFunctionActivity] != 1 {
		t.Fatalf("links = %d, want 1", report.Created[domain.EntitySubFunctionActivity])
	}

	err = s.View(ctx, func(v domain.TransactionView) error {
		fns := v.ListFunctions()
		if len(fns) != 1 || fns[0].Color != "#2d6cdf" {
			t.Fatalf("functions = %+v", fns)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestApplyGapListCreatesGapActivities(t *testing.T) {
	s := store.NewStore(nil)
	report, err := NewApplier(s).ApplyGapList(context.Background(), []byte(gapPayload))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Created[domain.EntityCoreActivity] != 2 {
		t.Fatalf("activities = %d, want 2", report.Created[domain.EntityCoreActivity])
	}

	err = s.View(context.Background(), func(v domain.TransactionView) error {
		for _, a := range v.ListCoreActivities() {
			if a.Status != domain.StatusGap {
				t.Fatalf("gap activity status = %q", a.Status)
			}
		}
		invoicing := v.SearchActivities("invoicing", domain.SearchScope{})
		if len(invoicing) != 1 {
			t.Fatalf("invoicing hits = %d, want 1", len(invoicing))
		}
		if invoicing[0].FullDescription == nil {
			t.Fatalf("recommendation not carried over")
		}
		if !strings.Contains(*invoicing[0].FullDescription, "SOP") || !strings.Contains(*invoicing[0].FullDescription, "Priority: high") {
			t.Fatalf("detail = %q", *invoicing[0].FullDescription)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

type stubGenerator struct {
	payload []byte
	err     error
}

func (g stubGenerator) Generate(context.Context, Kind, string) ([]byte, error) {
	return g.payload, g.err
}

func TestGenerateAndApplyFunnel(t *testing.T) {
	s := store.NewStore(nil)
	gen := stubGenerator{payload: []byte(gapPayload)}

	report, err := GenerateAndApply(context.Background(), gen, NewApplier(s), KindGapList, "find gaps")
	if err != nil {
		t.Fatalf("generate and apply: %v", err)
	}
	if report.Created[domain.EntityCoreActivity] != 2 {
		t.Fatalf("activities = %d, want 2", report.Created[domain.EntityCoreActivity])
	}

	if _, err := GenerateAndApply(context.Background(), stubGenerator{err: errors.New("model offline")}, NewApplier(s), KindGapList, "x"); err == nil {
		t.Fatalf("generator failure swallowed")
	}
	if _, err := GenerateAndApply(context.Background(), gen, NewApplier(s), Kind("bogus"), "x"); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}

func TestApplyRejectedPayloadCreatesNothing(t *testing.T) {
	s := store.NewStore(nil)
	ctx := context.Background()

	if _, err := NewApplier(s).ApplyWorkflows(ctx, []byte(`[{"name": ""}]`)); err == nil {
		t.Fatalf("bad payload accepted")
	}
	err := s.View(ctx, func(v domain.TransactionView) error {
		if got := len(v.ListWorkflows()); got != 0 {
			t.Fatalf("workflows = %d, want 0", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

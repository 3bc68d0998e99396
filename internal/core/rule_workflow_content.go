package core

import (
	"context"

	"opschart/pkg/domain"
)

// WorkflowContentRule warns when a workflow is activated while it still has
// no phases. Empty active workflows are legal but usually indicate a mapping
// session that was abandoned halfway.
func WorkflowContentRule() domain.Rule {
	return workflowContentRule{}
}

type workflowContentRule struct{}

func (workflowContentRule) Name() string { return "workflow_content" }

func (r workflowContentRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		workflow, ok := change.After.(domain.Workflow)
		if !ok || workflow.Status != domain.StatusActive {
			continue
		}
		if len(view.PhasesOf(workflow.ID)) == 0 {
			result.Merge(domain.Result{Violations: []domain.Violation{{
				Rule:     "workflow_content",
				Severity: domain.SeverityWarn,
				Message:  "active workflow has no phases",
				Entity:   domain.EntityWorkflow,
				EntityID: workflow.ID,
			}}})
		}
	}
	return result, nil
}

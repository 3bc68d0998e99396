package core

import (
	"context"

	"opschart/pkg/domain"
)

// LinkIntegrityRule blocks any transaction that would leave a structural
// reference pointing at a record the transaction view cannot resolve. The
// store operations validate endpoints on the way in; this rule covers
// composite transactions where a later change invalidates an earlier one.
func LinkIntegrityRule() domain.Rule {
	return linkIntegrityRule{}
}

type linkIntegrityRule struct{}

func (linkIntegrityRule) Name() string { return "link_integrity" }

func (r linkIntegrityRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		// A record written and then cascaded away later in the same
		// transaction needs no reference check.
		switch after := change.After.(type) {
		case domain.SubFunction:
			if _, ok := view.FindSubFunction(after.ID); !ok {
				continue
			}
			if _, ok := view.FindFunction(after.FunctionID); !ok {
				result.Merge(linkViolation(domain.EntitySubFunction, after.ID, "parent function does not exist"))
			}
		case domain.Phase:
			if _, ok := view.FindPhase(after.ID); !ok {
				continue
			}
			if _, ok := view.FindWorkflow(after.WorkflowID); !ok {
				result.Merge(linkViolation(domain.EntityPhase, after.ID, "parent workflow does not exist"))
			}
		case domain.Step:
			if _, ok := view.FindStep(after.ID); !ok {
				continue
			}
			if _, ok := view.FindPhase(after.PhaseID); !ok {
				result.Merge(linkViolation(domain.EntityStep, after.ID, "parent phase does not exist"))
			}
		case domain.ChecklistItem:
			if _, ok := view.FindChecklistItem(after.ID); !ok {
				continue
			}
			if _, ok := view.FindCoreActivity(after.CoreActivityID); !ok {
				result.Merge(linkViolation(domain.EntityChecklistItem, after.ID, "core activity does not exist"))
			}
		case domain.SubFunctionActivity:
			if !subFunctionLinkExists(view, after.ID) {
				continue
			}
			if _, ok := view.FindSubFunction(after.SubFunctionID); !ok {
				result.Merge(linkViolation(domain.EntitySubFunctionActivity, after.ID, "sub-function does not exist"))
			}
			if _, ok := view.FindCoreActivity(after.CoreActivityID); !ok {
				result.Merge(linkViolation(domain.EntitySubFunctionActivity, after.ID, "core activity does not exist"))
			}
		case domain.StepActivity:
			if !stepLinkExists(view, after.ID) {
				continue
			}
			if _, ok := view.FindStep(after.StepID); !ok {
				result.Merge(linkViolation(domain.EntityStepActivity, after.ID, "step does not exist"))
			}
			if _, ok := view.FindCoreActivity(after.CoreActivityID); !ok {
				result.Merge(linkViolation(domain.EntityStepActivity, after.ID, "core activity does not exist"))
			}
		}
	}
	return result, nil
}

func subFunctionLinkExists(view domain.TransactionView, id string) bool {
	for _, link := range view.ListSubFunctionActivities() {
		if link.ID == id {
			return true
		}
	}
	return false
}

func stepLinkExists(view domain.TransactionView, id string) bool {
	for _, link := range view.ListStepActivities() {
		if link.ID == id {
			return true
		}
	}
	return false
}

func linkViolation(entity domain.EntityType, id, message string) domain.Result {
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "link_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   entity,
		EntityID: id,
	}}}
}

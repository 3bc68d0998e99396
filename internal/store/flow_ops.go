package store

import "opschart/pkg/domain"

// AddWorkflow creates a workflow. New workflows default to draft status.
func (tx *transaction) AddWorkflow(w Workflow) (Workflow, error) {
	if w.Name == "" {
		return Workflow{}, domain.ValidationError{Entity: domain.EntityWorkflow, Msg: "name is required"}
	}
	status, err := normalizeStatus(domain.EntityWorkflow, w.Status, domain.StatusDraft)
	if err != nil {
		return Workflow{}, err
	}
	w.Base = tx.newBase()
	w.Status = status
	tx.state.workflows[w.ID] = cloneWorkflow(w)
	tx.record(Change{Entity: domain.EntityWorkflow, Action: domain.ActionCreate, After: cloneWorkflow(w)})
	return w, nil
}

// UpdateWorkflow applies mutate to the stored workflow.
func (tx *transaction) UpdateWorkflow(id string, mutate func(*Workflow) error) (Workflow, bool, error) {
	current, ok := tx.state.workflows[id]
	if !ok {
		return Workflow{}, false, nil
	}
	updated := cloneWorkflow(current)
	if err := mutate(&updated); err != nil {
		return Workflow{}, false, err
	}
	updated.Base = current.Base
	updated.UpdatedAt = tx.now
	status, err := normalizeStatus(domain.EntityWorkflow, updated.Status, domain.StatusDraft)
	if err != nil {
		return Workflow{}, false, err
	}
	updated.Status = status
	if updated.Name == "" {
		return Workflow{}, false, domain.ValidationError{Entity: domain.EntityWorkflow, Msg: "name is required"}
	}
	tx.state.workflows[id] = cloneWorkflow(updated)
	tx.record(Change{Entity: domain.EntityWorkflow, Action: domain.ActionUpdate, Before: cloneWorkflow(current), After: cloneWorkflow(updated)})
	return updated, true, nil
}

// DeleteWorkflow removes the workflow, its phases, their steps, and every
// step link row beneath them. Linked core activities survive.
func (tx *transaction) DeleteWorkflow(id string) bool {
	w, ok := tx.state.workflows[id]
	if !ok {
		return false
	}
	for _, phaseID := range sortedIDs(tx.state.phases) {
		if tx.state.phases[phaseID].WorkflowID == id {
			tx.deletePhaseCascade(phaseID)
		}
	}
	delete(tx.state.workflows, id)
	tx.record(Change{Entity: domain.EntityWorkflow, Action: domain.ActionDelete, Before: cloneWorkflow(w)})
	return true
}

// AddPhase creates a phase appended at the end of its workflow.
func (tx *transaction) AddPhase(p Phase) (Phase, error) {
	if p.Name == "" {
		return Phase{}, domain.ValidationError{Entity: domain.EntityPhase, Msg: "name is required"}
	}
	if _, ok := tx.state.workflows[p.WorkflowID]; !ok {
		return Phase{}, domain.NotFoundError{Entity: domain.EntityWorkflow, ID: p.WorkflowID}
	}
	p.Base = tx.newBase()
	n := 0
	for _, existing := range tx.state.phases {
		if existing.WorkflowID == p.WorkflowID {
			n++
		}
	}
	p.OrderIndex = n
	tx.state.phases[p.ID] = p
	tx.record(Change{Entity: domain.EntityPhase, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePhase applies mutate to the stored phase. The workflow reference is
// pinned.
func (tx *transaction) UpdatePhase(id string, mutate func(*Phase) error) (Phase, bool, error) {
	current, ok := tx.state.phases[id]
	if !ok {
		return Phase{}, false, nil
	}
	updated := current
	if err := mutate(&updated); err != nil {
		return Phase{}, false, err
	}
	updated.Base = current.Base
	updated.WorkflowID = current.WorkflowID
	updated.OrderIndex = current.OrderIndex
	updated.UpdatedAt = tx.now
	if updated.Name == "" {
		return Phase{}, false, domain.ValidationError{Entity: domain.EntityPhase, Msg: "name is required"}
	}
	tx.state.phases[id] = updated
	tx.record(Change{Entity: domain.EntityPhase, Action: domain.ActionUpdate, Before: current, After: updated})
	return updated, true, nil
}

// DeletePhase removes the phase, its steps, and their link rows.
func (tx *transaction) DeletePhase(id string) bool {
	if _, ok := tx.state.phases[id]; !ok {
		return false
	}
	tx.deletePhaseCascade(id)
	return true
}

func (tx *transaction) deletePhaseCascade(id string) {
	for _, stepID := range sortedIDs(tx.state.steps) {
		if tx.state.steps[stepID].PhaseID == id {
			tx.deleteStepCascade(stepID)
		}
	}
	p := tx.state.phases[id]
	delete(tx.state.phases, id)
	tx.record(Change{Entity: domain.EntityPhase, Action: domain.ActionDelete, Before: p})
}

// ReorderPhases reassigns order indexes under one workflow. ids must cover
// exactly the phases currently parented there.
func (tx *transaction) ReorderPhases(workflowID string, ids []string) error {
	if _, ok := tx.state.workflows[workflowID]; !ok {
		return domain.NotFoundError{Entity: domain.EntityWorkflow, ID: workflowID}
	}
	var current []string
	for _, id := range sortedIDs(tx.state.phases) {
		if tx.state.phases[id].WorkflowID == workflowID {
			current = append(current, id)
		}
	}
	if err := validateReorderSet(domain.EntityPhase, ids, current); err != nil {
		return err
	}
	for idx, id := range ids {
		p := tx.state.phases[id]
		if p.OrderIndex == idx {
			continue
		}
		before := p
		p.OrderIndex = idx
		p.UpdatedAt = tx.now
		tx.state.phases[id] = p
		tx.record(Change{Entity: domain.EntityPhase, Action: domain.ActionUpdate, Before: before, After: p})
	}
	return nil
}

// AddStep creates a step appended at the end of its phase.
func (tx *transaction) AddStep(st Step) (Step, error) {
	if st.Name == "" {
		return Step{}, domain.ValidationError{Entity: domain.EntityStep, Msg: "name is required"}
	}
	if _, ok := tx.state.phases[st.PhaseID]; !ok {
		return Step{}, domain.NotFoundError{Entity: domain.EntityPhase, ID: st.PhaseID}
	}
	st.Base = tx.newBase()
	n := 0
	for _, existing := range tx.state.steps {
		if existing.PhaseID == st.PhaseID {
			n++
		}
	}
	st.OrderIndex = n
	tx.state.steps[st.ID] = cloneStep(st)
	tx.record(Change{Entity: domain.EntityStep, Action: domain.ActionCreate, After: cloneStep(st)})
	return st, nil
}

// UpdateStep applies mutate to the stored step. The phase reference is pinned.
func (tx *transaction) UpdateStep(id string, mutate func(*Step) error) (Step, bool, error) {
	current, ok := tx.state.steps[id]
	if !ok {
		return Step{}, false, nil
	}
	updated := cloneStep(current)
	if err := mutate(&updated); err != nil {
		return Step{}, false, err
	}
	updated.Base = current.Base
	updated.PhaseID = current.PhaseID
	updated.OrderIndex = current.OrderIndex
	updated.UpdatedAt = tx.now
	if updated.Name == "" {
		return Step{}, false, domain.ValidationError{Entity: domain.EntityStep, Msg: "name is required"}
	}
	tx.state.steps[id] = cloneStep(updated)
	tx.record(Change{Entity: domain.EntityStep, Action: domain.ActionUpdate, Before: cloneStep(current), After: cloneStep(updated)})
	return updated, true, nil
}

// DeleteStep removes the step and its activity link rows.
func (tx *transaction) DeleteStep(id string) bool {
	if _, ok := tx.state.steps[id]; !ok {
		return false
	}
	tx.deleteStepCascade(id)
	return true
}

func (tx *transaction) deleteStepCascade(id string) {
	for _, linkID := range sortedIDs(tx.state.stepActivities) {
		link := tx.state.stepActivities[linkID]
		if link.StepID == id {
			delete(tx.state.stepActivities, linkID)
			tx.record(Change{Entity: domain.EntityStepActivity, Action: domain.ActionDelete, Before: link})
		}
	}
	st := tx.state.steps[id]
	delete(tx.state.steps, id)
	tx.record(Change{Entity: domain.EntityStep, Action: domain.ActionDelete, Before: cloneStep(st)})
}

// ReorderSteps reassigns order indexes under one phase. ids must cover
// exactly the steps currently parented there.
func (tx *transaction) ReorderSteps(phaseID string, ids []string) error {
	if _, ok := tx.state.phases[phaseID]; !ok {
		return domain.NotFoundError{Entity: domain.EntityPhase, ID: phaseID}
	}
	var current []string
	for _, id := range sortedIDs(tx.state.steps) {
		if tx.state.steps[id].PhaseID == phaseID {
			current = append(current, id)
		}
	}
	if err := validateReorderSet(domain.EntityStep, ids, current); err != nil {
		return err
	}
	for idx, id := range ids {
		st := tx.state.steps[id]
		if st.OrderIndex == idx {
			continue
		}
		before := cloneStep(st)
		st.OrderIndex = idx
		st.UpdatedAt = tx.now
		tx.state.steps[id] = st
		tx.record(Change{Entity: domain.EntityStep, Action: domain.ActionUpdate, Before: before, After: cloneStep(st)})
	}
	return nil
}

// LinkActivityToStep attaches an activity to a step. Linking an already
// linked pair returns the existing row untouched.
func (tx *transaction) LinkActivityToStep(stepID, activityID string) (StepActivity, error) {
	if _, ok := tx.state.steps[stepID]; !ok {
		return StepActivity{}, domain.NotFoundError{Entity: domain.EntityStep, ID: stepID}
	}
	if _, ok := tx.state.coreActivities[activityID]; !ok {
		return StepActivity{}, domain.NotFoundError{Entity: domain.EntityCoreActivity, ID: activityID}
	}
	n := 0
	for _, link := range tx.state.stepActivities {
		if link.StepID == stepID {
			if link.CoreActivityID == activityID {
				return link, nil
			}
			n++
		}
	}
	link := StepActivity{
		Base:           tx.newBase(),
		StepID:         stepID,
		CoreActivityID: activityID,
		OrderIndex:     n,
	}
	tx.state.stepActivities[link.ID] = link
	tx.record(Change{Entity: domain.EntityStepActivity, Action: domain.ActionCreate, After: link})
	return link, nil
}

// UnlinkActivityFromStep removes the link row for the pair if present.
func (tx *transaction) UnlinkActivityFromStep(stepID, activityID string) bool {
	for id, link := range tx.state.stepActivities {
		if link.StepID == stepID && link.CoreActivityID == activityID {
			delete(tx.state.stepActivities, id)
			tx.record(Change{Entity: domain.EntityStepActivity, Action: domain.ActionDelete, Before: link})
			return true
		}
	}
	return false
}

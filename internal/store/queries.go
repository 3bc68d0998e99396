package store

import (
	"sort"
	"strings"

	"opschart/pkg/domain"
)

// view implements domain.TransactionView over a state pointer. It performs
// no locking; callers hand it either a transactional copy or a snapshot
// cloned under the store lock.
type view struct {
	state *state
}

var _ domain.TransactionView = view{}

// ListFunctions returns every function sorted by order index, breaking ties
// by id so results are stable across calls.
func (v view) ListFunctions() []Function {
	out := make([]Function, 0, len(v.state.functions))
	for _, f := range v.state.functions {
		out = append(out, cloneFunction(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListSubFunctions returns every sub-function grouped by parent function and
// sorted by order index within each group.
func (v view) ListSubFunctions() []SubFunction {
	out := make([]SubFunction, 0, len(v.state.subFunctions))
	for _, sf := range v.state.subFunctions {
		out = append(out, cloneSubFunction(sf))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FunctionID != out[j].FunctionID {
			return out[i].FunctionID < out[j].FunctionID
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListCoreActivities returns every core activity sorted by name.
func (v view) ListCoreActivities() []CoreActivity {
	out := make([]CoreActivity, 0, len(v.state.coreActivities))
	for _, a := range v.state.coreActivities {
		out = append(out, cloneCoreActivity(a))
	}
	sortByName(out, func(a CoreActivity) (string, string) { return a.Name, a.ID })
	return out
}

// ListWorkflows returns every workflow sorted by name.
func (v view) ListWorkflows() []Workflow {
	out := make([]Workflow, 0, len(v.state.workflows))
	for _, w := range v.state.workflows {
		out = append(out, cloneWorkflow(w))
	}
	sortByName(out, func(w Workflow) (string, string) { return w.Name, w.ID })
	return out
}

// ListPhases returns every phase grouped by workflow and sorted by order
// index within each group.
func (v view) ListPhases() []Phase {
	out := make([]Phase, 0, len(v.state.phases))
	for _, p := range v.state.phases {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkflowID != out[j].WorkflowID {
			return out[i].WorkflowID < out[j].WorkflowID
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListSteps returns every step grouped by phase and sorted by order index
// within each group.
func (v view) ListSteps() []Step {
	out := make([]Step, 0, len(v.state.steps))
	for _, st := range v.state.steps {
		out = append(out, cloneStep(st))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PhaseID != out[j].PhaseID {
			return out[i].PhaseID < out[j].PhaseID
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListPeople returns every person sorted by name.
func (v view) ListPeople() []Person {
	out := make([]Person, 0, len(v.state.people))
	for _, p := range v.state.people {
		out = append(out, clonePerson(p))
	}
	sortByName(out, func(p Person) (string, string) { return p.Name, p.ID })
	return out
}

// ListRoles returns every role sorted by name.
func (v view) ListRoles() []Role {
	out := make([]Role, 0, len(v.state.roles))
	for _, r := range v.state.roles {
		out = append(out, cloneRole(r))
	}
	sortByName(out, func(r Role) (string, string) { return r.Name, r.ID })
	return out
}

// ListSoftware returns every software entry sorted by name.
func (v view) ListSoftware() []Software {
	out := make([]Software, 0, len(v.state.software))
	for _, sw := range v.state.software {
		out = append(out, cloneSoftware(sw))
	}
	sortByName(out, func(sw Software) (string, string) { return sw.Name, sw.ID })
	return out
}

// ListChecklistItems returns every checklist item grouped by activity and
// sorted by order index within each group.
func (v view) ListChecklistItems() []ChecklistItem {
	out := make([]ChecklistItem, 0, len(v.state.checklistItems))
	for _, c := range v.state.checklistItems {
		out = append(out, cloneChecklistItem(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CoreActivityID != out[j].CoreActivityID {
			return out[i].CoreActivityID < out[j].CoreActivityID
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListSubFunctionActivities returns every sub-function link row grouped by
// sub-function and sorted by order index.
func (v view) ListSubFunctionActivities() []SubFunctionActivity {
	out := make([]SubFunctionActivity, 0, len(v.state.subFunctionActivities))
	for _, l := range v.state.subFunctionActivities {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubFunctionID != out[j].SubFunctionID {
			return out[i].SubFunctionID < out[j].SubFunctionID
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListStepActivities returns every step link row grouped by step and sorted
// by order index.
func (v view) ListStepActivities() []StepActivity {
	out := make([]StepActivity, 0, len(v.state.stepActivities))
	for _, l := range v.state.stepActivities {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StepID != out[j].StepID {
			return out[i].StepID < out[j].StepID
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v view) FindFunction(id string) (Function, bool) {
	f, ok := v.state.functions[id]
	if !ok {
		return Function{}, false
	}
	return cloneFunction(f), true
}

func (v view) FindSubFunction(id string) (SubFunction, bool) {
	sf, ok := v.state.subFunctions[id]
	if !ok {
		return SubFunction{}, false
	}
	return cloneSubFunction(sf), true
}

func (v view) FindCoreActivity(id string) (CoreActivity, bool) {
	a, ok := v.state.coreActivities[id]
	if !ok {
		return CoreActivity{}, false
	}
	return cloneCoreActivity(a), true
}

func (v view) FindWorkflow(id string) (Workflow, bool) {
	w, ok := v.state.workflows[id]
	if !ok {
		return Workflow{}, false
	}
	return cloneWorkflow(w), true
}

func (v view) FindPhase(id string) (Phase, bool) {
	p, ok := v.state.phases[id]
	return p, ok
}

func (v view) FindStep(id string) (Step, bool) {
	st, ok := v.state.steps[id]
	if !ok {
		return Step{}, false
	}
	return cloneStep(st), true
}

func (v view) FindPerson(id string) (Person, bool) {
	p, ok := v.state.people[id]
	if !ok {
		return Person{}, false
	}
	return clonePerson(p), true
}

func (v view) FindRole(id string) (Role, bool) {
	r, ok := v.state.roles[id]
	if !ok {
		return Role{}, false
	}
	return cloneRole(r), true
}

func (v view) FindSoftware(id string) (Software, bool) {
	sw, ok := v.state.software[id]
	if !ok {
		return Software{}, false
	}
	return cloneSoftware(sw), true
}

func (v view) FindChecklistItem(id string) (ChecklistItem, bool) {
	c, ok := v.state.checklistItems[id]
	if !ok {
		return ChecklistItem{}, false
	}
	return cloneChecklistItem(c), true
}

// SubFunctionsOf returns the sub-functions under functionID sorted by order
// index.
func (v view) SubFunctionsOf(functionID string) []SubFunction {
	var out []SubFunction
	for _, sf := range v.state.subFunctions {
		if sf.FunctionID == functionID {
			out = append(out, cloneSubFunction(sf))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PhasesOf returns the phases of workflowID sorted by order index.
func (v view) PhasesOf(workflowID string) []Phase {
	var out []Phase
	for _, p := range v.state.phases {
		if p.WorkflowID == workflowID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// StepsOf returns the steps of phaseID sorted by order index.
func (v view) StepsOf(phaseID string) []Step {
	var out []Step
	for _, st := range v.state.steps {
		if st.PhaseID == phaseID {
			out = append(out, cloneStep(st))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActivitiesForSubFunction resolves the activities linked into subFunctionID,
// ordered by link order index. Links whose activity no longer exists are
// skipped.
func (v view) ActivitiesForSubFunction(subFunctionID string) []CoreActivity {
	var links []SubFunctionActivity
	for _, l := range v.state.subFunctionActivities {
		if l.SubFunctionID == subFunctionID {
			links = append(links, l)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].OrderIndex != links[j].OrderIndex {
			return links[i].OrderIndex < links[j].OrderIndex
		}
		return links[i].ID < links[j].ID
	})
	out := make([]CoreActivity, 0, len(links))
	for _, l := range links {
		if a, ok := v.state.coreActivities[l.CoreActivityID]; ok {
			out = append(out, cloneCoreActivity(a))
		}
	}
	return out
}

// ActivitiesForStep resolves the activities linked into stepID, ordered by
// link order index. Links whose activity no longer exists are skipped.
func (v view) ActivitiesForStep(stepID string) []CoreActivity {
	var links []StepActivity
	for _, l := range v.state.stepActivities {
		if l.StepID == stepID {
			links = append(links, l)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].OrderIndex != links[j].OrderIndex {
			return links[i].OrderIndex < links[j].OrderIndex
		}
		return links[i].ID < links[j].ID
	})
	out := make([]CoreActivity, 0, len(links))
	for _, l := range links {
		if a, ok := v.state.coreActivities[l.CoreActivityID]; ok {
			out = append(out, cloneCoreActivity(a))
		}
	}
	return out
}

// ChecklistForActivity returns the checklist items attached to activityID
// sorted by order index.
func (v view) ChecklistForActivity(activityID string) []ChecklistItem {
	var out []ChecklistItem
	for _, c := range v.state.checklistItems {
		if c.CoreActivityID == activityID {
			out = append(out, cloneChecklistItem(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SearchActivities returns the activities whose name or description contains
// query, case-insensitively, optionally restricted to activities linked under
// a function or sub-function. Results are sorted by name.
func (v view) SearchActivities(query string, scope domain.SearchScope) []CoreActivity {
	needle := strings.ToLower(strings.TrimSpace(query))

	var allowed map[string]bool
	if scope.SubFunctionID != nil {
		allowed = make(map[string]bool)
		for _, l := range v.state.subFunctionActivities {
			if l.SubFunctionID == *scope.SubFunctionID {
				allowed[l.CoreActivityID] = true
			}
		}
	} else if scope.FunctionID != nil {
		subs := make(map[string]bool)
		for id, sf := range v.state.subFunctions {
			if sf.FunctionID == *scope.FunctionID {
				subs[id] = true
			}
		}
		allowed = make(map[string]bool)
		for _, l := range v.state.subFunctionActivities {
			if subs[l.SubFunctionID] {
				allowed[l.CoreActivityID] = true
			}
		}
	}

	var out []CoreActivity
	for id, a := range v.state.coreActivities {
		if allowed != nil && !allowed[id] {
			continue
		}
		if needle != "" && !activityMatches(a, needle) {
			continue
		}
		out = append(out, cloneCoreActivity(a))
	}
	sortByName(out, func(a CoreActivity) (string, string) { return a.Name, a.ID })
	return out
}

func activityMatches(a CoreActivity, needle string) bool {
	if strings.Contains(strings.ToLower(a.Name), needle) {
		return true
	}
	if a.Description != nil && strings.Contains(strings.ToLower(*a.Description), needle) {
		return true
	}
	return false
}

func sortByName[T any](items []T, key func(T) (name, id string)) {
	sort.Slice(items, func(i, j int) bool {
		ni, ii := key(items[i])
		nj, ij := key(items[j])
		if ni != nj {
			return ni < nj
		}
		return ii < ij
	})
}

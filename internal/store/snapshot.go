package store

import "opschart/pkg/domain"

// Snapshot captures a point-in-time clone of one workspace's entity graph.
// It is the unit handed to the sqlite persistence layer and to import/export.
type Snapshot struct {
	Functions             map[string]Function            `json:"functions"`
	SubFunctions          map[string]SubFunction         `json:"sub_functions"`
	CoreActivities        map[string]CoreActivity        `json:"core_activities"`
	SubFunctionActivities map[string]SubFunctionActivity `json:"sub_function_activities"`
	Workflows             map[string]Workflow            `json:"workflows"`
	Phases                map[string]Phase               `json:"phases"`
	Steps                 map[string]Step                `json:"steps"`
	StepActivities        map[string]StepActivity        `json:"step_activities"`
	People                map[string]Person              `json:"people"`
	Roles                 map[string]Role                `json:"roles"`
	Software              map[string]Software            `json:"software"`
	ChecklistItems        map[string]ChecklistItem       `json:"checklist_items"`
}

func snapshotFromState(st state) Snapshot {
	s := Snapshot{
		Functions:             make(map[string]Function, len(st.functions)),
		SubFunctions:          make(map[string]SubFunction, len(st.subFunctions)),
		CoreActivities:        make(map[string]CoreActivity, len(st.coreActivities)),
		SubFunctionActivities: make(map[string]SubFunctionActivity, len(st.subFunctionActivities)),
		Workflows:             make(map[string]Workflow, len(st.workflows)),
		Phases:                make(map[string]Phase, len(st.phases)),
		Steps:                 make(map[string]Step, len(st.steps)),
		StepActivities:        make(map[string]StepActivity, len(st.stepActivities)),
		People:                make(map[string]Person, len(st.people)),
		Roles:                 make(map[string]Role, len(st.roles)),
		Software:              make(map[string]Software, len(st.software)),
		ChecklistItems:        make(map[string]ChecklistItem, len(st.checklistItems)),
	}
	for k, v := range st.functions {
		s.Functions[k] = cloneFunction(v)
	}
	for k, v := range st.subFunctions {
		s.SubFunctions[k] = cloneSubFunction(v)
	}
	for k, v := range st.coreActivities {
		s.CoreActivities[k] = cloneCoreActivity(v)
	}
	for k, v := range st.subFunctionActivities {
		s.SubFunctionActivities[k] = v
	}
	for k, v := range st.workflows {
		s.Workflows[k] = cloneWorkflow(v)
	}
	for k, v := range st.phases {
		s.Phases[k] = v
	}
	for k, v := range st.steps {
		s.Steps[k] = cloneStep(v)
	}
	for k, v := range st.stepActivities {
		s.StepActivities[k] = v
	}
	for k, v := range st.people {
		s.People[k] = clonePerson(v)
	}
	for k, v := range st.roles {
		s.Roles[k] = cloneRole(v)
	}
	for k, v := range st.software {
		s.Software[k] = cloneSoftware(v)
	}
	for k, v := range st.checklistItems {
		s.ChecklistItems[k] = cloneChecklistItem(v)
	}
	return s
}

func stateFromSnapshot(s Snapshot) state {
	st := newState()
	for k, v := range s.Functions {
		st.functions[k] = cloneFunction(v)
	}
	for k, v := range s.SubFunctions {
		st.subFunctions[k] = cloneSubFunction(v)
	}
	for k, v := range s.CoreActivities {
		st.coreActivities[k] = cloneCoreActivity(v)
	}
	for k, v := range s.SubFunctionActivities {
		st.subFunctionActivities[k] = v
	}
	for k, v := range s.Workflows {
		st.workflows[k] = cloneWorkflow(v)
	}
	for k, v := range s.Phases {
		st.phases[k] = v
	}
	for k, v := range s.Steps {
		st.steps[k] = cloneStep(v)
	}
	for k, v := range s.StepActivities {
		st.stepActivities[k] = v
	}
	for k, v := range s.People {
		st.people[k] = clonePerson(v)
	}
	for k, v := range s.Roles {
		st.roles[k] = cloneRole(v)
	}
	for k, v := range s.Software {
		st.software[k] = cloneSoftware(v)
	}
	for k, v := range s.ChecklistItems {
		st.checklistItems[k] = cloneChecklistItem(v)
	}
	return st
}

// normalizeSnapshot repairs a loaded snapshot so the referential invariants
// hold before the state is adopted: children with a missing parent and link
// rows with a missing endpoint are dropped, dangling soft references are
// cleared, and empty statuses get their creation defaults.
//
//nolint:gocyclo // single pass over every collection
func normalizeSnapshot(s Snapshot) Snapshot {
	if s.Functions == nil {
		s.Functions = map[string]Function{}
	}
	if s.SubFunctions == nil {
		s.SubFunctions = map[string]SubFunction{}
	}
	if s.CoreActivities == nil {
		s.CoreActivities = map[string]CoreActivity{}
	}
	if s.SubFunctionActivities == nil {
		s.SubFunctionActivities = map[string]SubFunctionActivity{}
	}
	if s.Workflows == nil {
		s.Workflows = map[string]Workflow{}
	}
	if s.Phases == nil {
		s.Phases = map[string]Phase{}
	}
	if s.Steps == nil {
		s.Steps = map[string]Step{}
	}
	if s.StepActivities == nil {
		s.StepActivities = map[string]StepActivity{}
	}
	if s.People == nil {
		s.People = map[string]Person{}
	}
	if s.Roles == nil {
		s.Roles = map[string]Role{}
	}
	if s.Software == nil {
		s.Software = map[string]Software{}
	}
	if s.ChecklistItems == nil {
		s.ChecklistItems = map[string]ChecklistItem{}
	}

	functionExists := func(id string) bool {
		_, ok := s.Functions[id]
		return ok
	}
	subFunctionExists := func(id string) bool {
		_, ok := s.SubFunctions[id]
		return ok
	}
	activityExists := func(id string) bool {
		_, ok := s.CoreActivities[id]
		return ok
	}
	workflowExists := func(id string) bool {
		_, ok := s.Workflows[id]
		return ok
	}
	phaseExists := func(id string) bool {
		_, ok := s.Phases[id]
		return ok
	}
	stepExists := func(id string) bool {
		_, ok := s.Steps[id]
		return ok
	}
	personExists := func(id string) bool {
		_, ok := s.People[id]
		return ok
	}
	roleExists := func(id string) bool {
		_, ok := s.Roles[id]
		return ok
	}

	for id, f := range s.Functions {
		if f.Status == "" {
			f.Status = domain.StatusGap
		}
		s.Functions[id] = f
	}
	for id, sf := range s.SubFunctions {
		if sf.FunctionID == "" || !functionExists(sf.FunctionID) {
			delete(s.SubFunctions, id)
			continue
		}
		if sf.Status == "" {
			sf.Status = domain.StatusGap
		}
		s.SubFunctions[id] = sf
	}
	for id, a := range s.CoreActivities {
		if a.OwnerID != nil && !personExists(*a.OwnerID) {
			a.OwnerID = nil
		}
		if a.RoleID != nil && !roleExists(*a.RoleID) {
			a.RoleID = nil
		}
		if a.Status == "" {
			a.Status = domain.StatusGap
		}
		s.CoreActivities[id] = a
	}
	for id, w := range s.Workflows {
		if w.Status == "" {
			w.Status = domain.StatusDraft
		}
		s.Workflows[id] = w
	}
	for id, p := range s.Phases {
		if p.WorkflowID == "" || !workflowExists(p.WorkflowID) {
			delete(s.Phases, id)
		}
	}
	for id, st := range s.Steps {
		if st.PhaseID == "" || !phaseExists(st.PhaseID) {
			delete(s.Steps, id)
		}
	}
	for id, p := range s.People {
		if p.RoleID != nil && !roleExists(*p.RoleID) {
			p.RoleID = nil
		}
		if p.ReportsTo != nil && (!personExists(*p.ReportsTo) || *p.ReportsTo == id) {
			p.ReportsTo = nil
		}
		s.People[id] = p
	}
	for id, c := range s.ChecklistItems {
		if c.CoreActivityID == "" || !activityExists(c.CoreActivityID) {
			delete(s.ChecklistItems, id)
		}
	}
	for id, l := range s.SubFunctionActivities {
		if !subFunctionExists(l.SubFunctionID) || !activityExists(l.CoreActivityID) {
			delete(s.SubFunctionActivities, id)
		}
	}
	for id, l := range s.StepActivities {
		if !stepExists(l.StepID) || !activityExists(l.CoreActivityID) {
			delete(s.StepActivities, id)
		}
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the store state with the provided snapshot after
// normalizing it. No change records are emitted; importers that need remote
// mirroring replay add operations instead.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(normalizeSnapshot(snapshot))
}

package export

import (
	"sort"

	"opschart/pkg/domain"
)

// Summary reports how many records a replay created per entity type.
type Summary struct {
	Created map[domain.EntityType]int `json:"created"`
}

func (s *Summary) add(entity domain.EntityType) {
	if s.Created == nil {
		s.Created = make(map[domain.EntityType]int)
	}
	s.Created[entity]++
}

// Replay wipes the transaction's current state and recreates the document's
// content through regular add operations. Old ids are remapped through an
// explicit table so soft references, link rows, and orderings reconstruct
// deterministically. Rows pointing at ids absent from the document are
// dropped rather than imported dangling.
func Replay(tx domain.Transaction, doc Document) (Summary, error) {
	var summary Summary
	if err := wipe(tx); err != nil {
		return Summary{}, err
	}
	ids := make(map[string]string)

	for _, role := range doc.Collections.Roles {
		created, err := tx.AddRole(role)
		if err != nil {
			return Summary{}, err
		}
		ids[role.ID] = created.ID
		summary.add(domain.EntityRole)
	}

	// People import in two passes: ReportsTo may point at a person that
	// appears later in the document.
	for _, person := range doc.Collections.People {
		input := person
		input.RoleID = remap(ids, person.RoleID)
		input.ReportsTo = nil
		created, err := tx.AddPerson(input)
		if err != nil {
			return Summary{}, err
		}
		ids[person.ID] = created.ID
		summary.add(domain.EntityPerson)
	}
	for _, person := range doc.Collections.People {
		reportsTo := remap(ids, person.ReportsTo)
		if reportsTo == nil || *reportsTo == ids[person.ID] {
			continue
		}
		if _, _, err := tx.UpdatePerson(ids[person.ID], func(p *domain.Person) error {
			p.ReportsTo = reportsTo
			return nil
		}); err != nil {
			return Summary{}, err
		}
	}

	for _, sw := range doc.Collections.Software {
		created, err := tx.AddSoftware(sw)
		if err != nil {
			return Summary{}, err
		}
		ids[sw.ID] = created.ID
		summary.add(domain.EntitySoftware)
	}

	for _, fn := range doc.Collections.Functions {
		created, err := tx.AddFunction(fn)
		if err != nil {
			return Summary{}, err
		}
		ids[fn.ID] = created.ID
		summary.add(domain.EntityFunction)
	}
	for _, sf := range doc.Collections.SubFunctions {
		functionID, ok := ids[sf.FunctionID]
		if !ok {
			continue
		}
		input := sf
		input.FunctionID = functionID
		created, err := tx.AddSubFunction(input)
		if err != nil {
			return Summary{}, err
		}
		ids[sf.ID] = created.ID
		summary.add(domain.EntitySubFunction)
	}

	for _, activity := range doc.Collections.CoreActivities {
		input := activity
		input.OwnerID = remap(ids, activity.OwnerID)
		input.RoleID = remap(ids, activity.RoleID)
		created, err := tx.AddCoreActivity(input)
		if err != nil {
			return Summary{}, err
		}
		ids[activity.ID] = created.ID
		summary.add(domain.EntityCoreActivity)
	}
	items := append([]domain.ChecklistItem(nil), doc.Collections.ChecklistItems...)
	sort.Slice(items, func(i, j int) bool {
		if items[i].CoreActivityID != items[j].CoreActivityID {
			return items[i].CoreActivityID < items[j].CoreActivityID
		}
		if items[i].OrderIndex != items[j].OrderIndex {
			return items[i].OrderIndex < items[j].OrderIndex
		}
		return items[i].ID < items[j].ID
	})
	for _, item := range items {
		activityID, ok := ids[item.CoreActivityID]
		if !ok {
			continue
		}
		input := item
		input.CoreActivityID = activityID
		created, err := tx.AddChecklistItem(input)
		if err != nil {
			return Summary{}, err
		}
		ids[item.ID] = created.ID
		summary.add(domain.EntityChecklistItem)
	}

	for _, wf := range doc.Collections.Workflows {
		created, err := tx.AddWorkflow(wf)
		if err != nil {
			return Summary{}, err
		}
		ids[wf.ID] = created.ID
		summary.add(domain.EntityWorkflow)
	}
	for _, phase := range doc.Collections.Phases {
		workflowID, ok := ids[phase.WorkflowID]
		if !ok {
			continue
		}
		input := phase
		input.WorkflowID = workflowID
		created, err := tx.AddPhase(input)
		if err != nil {
			return Summary{}, err
		}
		ids[phase.ID] = created.ID
		summary.add(domain.EntityPhase)
	}
	for _, step := range doc.Collections.Steps {
		phaseID, ok := ids[step.PhaseID]
		if !ok {
			continue
		}
		input := step
		input.PhaseID = phaseID
		created, err := tx.AddStep(input)
		if err != nil {
			return Summary{}, err
		}
		ids[step.ID] = created.ID
		summary.add(domain.EntityStep)
	}

	// Links last. Link order within one parent follows the document order,
	// which BuildDocument sorted by OrderIndex, so appends restore it.
	for _, link := range doc.Collections.SubFunctionActivities {
		subFunctionID, ok := ids[link.SubFunctionID]
		if !ok {
			continue
		}
		activityID, ok := ids[link.CoreActivityID]
		if !ok {
			continue
		}
		if _, err := tx.LinkActivityToSubFunction(subFunctionID, activityID); err != nil {
			return Summary{}, err
		}
		summary.add(domain.EntitySubFunctionActivity)
	}
	for _, link := range doc.Collections.StepActivities {
		stepID, ok := ids[link.StepID]
		if !ok {
			continue
		}
		activityID, ok := ids[link.CoreActivityID]
		if !ok {
			continue
		}
		if _, err := tx.LinkActivityToStep(stepID, activityID); err != nil {
			return Summary{}, err
		}
		summary.add(domain.EntityStepActivity)
	}
	return summary, nil
}

// wipe removes every record currently in the transaction. Deleting the top
// of each hierarchy cascades through children and link rows.
func wipe(tx domain.Transaction) error {
	view := tx.Snapshot()
	for _, fn := range view.ListFunctions() {
		tx.DeleteFunction(fn.ID)
	}
	for _, wf := range view.ListWorkflows() {
		tx.DeleteWorkflow(wf.ID)
	}
	for _, activity := range view.ListCoreActivities() {
		tx.DeleteCoreActivity(activity.ID)
	}
	for _, person := range view.ListPeople() {
		tx.DeletePerson(person.ID)
	}
	for _, role := range view.ListRoles() {
		tx.DeleteRole(role.ID)
	}
	for _, sw := range view.ListSoftware() {
		tx.DeleteSoftware(sw.ID)
	}
	return nil
}

func remap(ids map[string]string, old *string) *string {
	if old == nil {
		return nil
	}
	mapped, ok := ids[*old]
	if !ok {
		return nil
	}
	return &mapped
}

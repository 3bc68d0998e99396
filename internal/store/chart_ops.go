package store

import (
	"fmt"

	"opschart/pkg/domain"
)

// newBase stamps a fresh identity onto a record created in this transaction.
func (tx *transaction) newBase() domain.Base {
	return domain.Base{
		ID:        tx.store.newID(),
		CreatedAt: tx.now,
		UpdatedAt: tx.now,
	}
}

func normalizeStatus(entity domain.EntityType, s domain.Status, fallback domain.Status) (domain.Status, error) {
	if s == "" {
		return fallback, nil
	}
	if !s.Valid() {
		return "", domain.ValidationError{Entity: entity, Msg: fmt.Sprintf("unknown status %q", s)}
	}
	return s, nil
}

// AddFunction creates a function appended at the end of the chart ordering.
func (tx *transaction) AddFunction(f Function) (Function, error) {
	if f.Name == "" {
		return Function{}, domain.ValidationError{Entity: domain.EntityFunction, Msg: "name is required"}
	}
	status, err := normalizeStatus(domain.EntityFunction, f.Status, domain.StatusGap)
	if err != nil {
		return Function{}, err
	}
	f.Base = tx.newBase()
	f.Status = status
	f.OrderIndex = len(tx.state.functions)
	tx.state.functions[f.ID] = cloneFunction(f)
	tx.record(Change{Entity: domain.EntityFunction, Action: domain.ActionCreate, After: cloneFunction(f)})
	return f, nil
}

// UpdateFunction applies mutate to the stored function. Identity, ordering,
// and timestamps survive whatever the mutator does to them. Unknown ids are
// reported through the bool, not an error.
func (tx *transaction) UpdateFunction(id string, mutate func(*Function) error) (Function, bool, error) {
	current, ok := tx.state.functions[id]
	if !ok {
		return Function{}, false, nil
	}
	updated := cloneFunction(current)
	if err := mutate(&updated); err != nil {
		return Function{}, false, err
	}
	updated.Base = current.Base
	updated.OrderIndex = current.OrderIndex
	updated.UpdatedAt = tx.now
	status, err := normalizeStatus(domain.EntityFunction, updated.Status, domain.StatusGap)
	if err != nil {
		return Function{}, false, err
	}
	updated.Status = status
	if updated.Name == "" {
		return Function{}, false, domain.ValidationError{Entity: domain.EntityFunction, Msg: "name is required"}
	}
	tx.state.functions[id] = cloneFunction(updated)
	tx.record(Change{Entity: domain.EntityFunction, Action: domain.ActionUpdate, Before: cloneFunction(current), After: cloneFunction(updated)})
	return updated, true, nil
}

// DeleteFunction removes the function together with its sub-functions and
// their activity links. Linked core activities survive; only the link rows
// go. Cascaded removals are recorded child-first in sorted id order.
func (tx *transaction) DeleteFunction(id string) bool {
	f, ok := tx.state.functions[id]
	if !ok {
		return false
	}
	for _, sfID := range sortedIDs(tx.state.subFunctions) {
		if tx.state.subFunctions[sfID].FunctionID == id {
			tx.deleteSubFunctionCascade(sfID)
		}
	}
	delete(tx.state.functions, id)
	tx.record(Change{Entity: domain.EntityFunction, Action: domain.ActionDelete, Before: cloneFunction(f)})
	return true
}

// ReorderFunctions reassigns order indexes to match ids, which must cover
// exactly the current function set.
func (tx *transaction) ReorderFunctions(ids []string) error {
	if err := validateReorderSet(domain.EntityFunction, ids, sortedIDs(tx.state.functions)); err != nil {
		return err
	}
	for idx, id := range ids {
		f := tx.state.functions[id]
		if f.OrderIndex == idx {
			continue
		}
		before := cloneFunction(f)
		f.OrderIndex = idx
		f.UpdatedAt = tx.now
		tx.state.functions[id] = f
		tx.record(Change{Entity: domain.EntityFunction, Action: domain.ActionUpdate, Before: before, After: cloneFunction(f)})
	}
	return nil
}

// AddSubFunction creates a sub-function appended under its parent function.
func (tx *transaction) AddSubFunction(sf SubFunction) (SubFunction, error) {
	if sf.Name == "" {
		return SubFunction{}, domain.ValidationError{Entity: domain.EntitySubFunction, Msg: "name is required"}
	}
	if _, ok := tx.state.functions[sf.FunctionID]; !ok {
		return SubFunction{}, domain.NotFoundError{Entity: domain.EntityFunction, ID: sf.FunctionID}
	}
	status, err := normalizeStatus(domain.EntitySubFunction, sf.Status, domain.StatusGap)
	if err != nil {
		return SubFunction{}, err
	}
	sf.Base = tx.newBase()
	sf.Status = status
	sf.OrderIndex = tx.countSubFunctions(sf.FunctionID)
	tx.state.subFunctions[sf.ID] = cloneSubFunction(sf)
	tx.record(Change{Entity: domain.EntitySubFunction, Action: domain.ActionCreate, After: cloneSubFunction(sf)})
	return sf, nil
}

func (tx *transaction) countSubFunctions(functionID string) int {
	n := 0
	for _, sf := range tx.state.subFunctions {
		if sf.FunctionID == functionID {
			n++
		}
	}
	return n
}

// UpdateSubFunction applies mutate to the stored sub-function. The parent
// function reference is pinned; moving a sub-function between functions is
// not supported.
func (tx *transaction) UpdateSubFunction(id string, mutate func(*SubFunction) error) (SubFunction, bool, error) {
	current, ok := tx.state.subFunctions[id]
	if !ok {
		return SubFunction{}, false, nil
	}
	updated := cloneSubFunction(current)
	if err := mutate(&updated); err != nil {
		return SubFunction{}, false, err
	}
	updated.Base = current.Base
	updated.FunctionID = current.FunctionID
	updated.OrderIndex = current.OrderIndex
	updated.UpdatedAt = tx.now
	status, err := normalizeStatus(domain.EntitySubFunction, updated.Status, domain.StatusGap)
	if err != nil {
		return SubFunction{}, false, err
	}
	updated.Status = status
	if updated.Name == "" {
		return SubFunction{}, false, domain.ValidationError{Entity: domain.EntitySubFunction, Msg: "name is required"}
	}
	tx.state.subFunctions[id] = cloneSubFunction(updated)
	tx.record(Change{Entity: domain.EntitySubFunction, Action: domain.ActionUpdate, Before: cloneSubFunction(current), After: cloneSubFunction(updated)})
	return updated, true, nil
}

// DeleteSubFunction removes the sub-function and its activity link rows.
func (tx *transaction) DeleteSubFunction(id string) bool {
	if _, ok := tx.state.subFunctions[id]; !ok {
		return false
	}
	tx.deleteSubFunctionCascade(id)
	return true
}

func (tx *transaction) deleteSubFunctionCascade(id string) {
	for _, linkID := range sortedIDs(tx.state.subFunctionActivities) {
		link := tx.state.subFunctionActivities[linkID]
		if link.SubFunctionID == id {
			delete(tx.state.subFunctionActivities, linkID)
			tx.record(Change{Entity: domain.EntitySubFunctionActivity, Action: domain.ActionDelete, Before: link})
		}
	}
	sf := tx.state.subFunctions[id]
	delete(tx.state.subFunctions, id)
	tx.record(Change{Entity: domain.EntitySubFunction, Action: domain.ActionDelete, Before: cloneSubFunction(sf)})
}

// ReorderSubFunctions reassigns order indexes under one function. ids must
// cover exactly the sub-functions currently parented there.
func (tx *transaction) ReorderSubFunctions(functionID string, ids []string) error {
	if _, ok := tx.state.functions[functionID]; !ok {
		return domain.NotFoundError{Entity: domain.EntityFunction, ID: functionID}
	}
	var current []string
	for _, id := range sortedIDs(tx.state.subFunctions) {
		if tx.state.subFunctions[id].FunctionID == functionID {
			current = append(current, id)
		}
	}
	if err := validateReorderSet(domain.EntitySubFunction, ids, current); err != nil {
		return err
	}
	for idx, id := range ids {
		sf := tx.state.subFunctions[id]
		if sf.OrderIndex == idx {
			continue
		}
		before := cloneSubFunction(sf)
		sf.OrderIndex = idx
		sf.UpdatedAt = tx.now
		tx.state.subFunctions[id] = sf
		tx.record(Change{Entity: domain.EntitySubFunction, Action: domain.ActionUpdate, Before: before, After: cloneSubFunction(sf)})
	}
	return nil
}

// AddCoreActivity creates a core activity. Owner and role references, when
// supplied, must resolve.
func (tx *transaction) AddCoreActivity(a CoreActivity) (CoreActivity, error) {
	if a.Name == "" {
		return CoreActivity{}, domain.ValidationError{Entity: domain.EntityCoreActivity, Msg: "name is required"}
	}
	status, err := normalizeStatus(domain.EntityCoreActivity, a.Status, domain.StatusGap)
	if err != nil {
		return CoreActivity{}, err
	}
	if err := tx.checkActivityRefs(a); err != nil {
		return CoreActivity{}, err
	}
	a.Base = tx.newBase()
	a.Status = status
	tx.state.coreActivities[a.ID] = cloneCoreActivity(a)
	tx.record(Change{Entity: domain.EntityCoreActivity, Action: domain.ActionCreate, After: cloneCoreActivity(a)})
	return a, nil
}

func (tx *transaction) checkActivityRefs(a CoreActivity) error {
	if a.OwnerID != nil {
		if _, ok := tx.state.people[*a.OwnerID]; !ok {
			return domain.NotFoundError{Entity: domain.EntityPerson, ID: *a.OwnerID}
		}
	}
	if a.RoleID != nil {
		if _, ok := tx.state.roles[*a.RoleID]; !ok {
			return domain.NotFoundError{Entity: domain.EntityRole, ID: *a.RoleID}
		}
	}
	return nil
}

// UpdateCoreActivity applies mutate to the stored activity.
func (tx *transaction) UpdateCoreActivity(id string, mutate func(*CoreActivity) error) (CoreActivity, bool, error) {
	current, ok := tx.state.coreActivities[id]
	if !ok {
		return CoreActivity{}, false, nil
	}
	updated := cloneCoreActivity(current)
	if err := mutate(&updated); err != nil {
		return CoreActivity{}, false, err
	}
	updated.Base = current.Base
	updated.UpdatedAt = tx.now
	status, err := normalizeStatus(domain.EntityCoreActivity, updated.Status, domain.StatusGap)
	if err != nil {
		return CoreActivity{}, false, err
	}
	updated.Status = status
	if updated.Name == "" {
		return CoreActivity{}, false, domain.ValidationError{Entity: domain.EntityCoreActivity, Msg: "name is required"}
	}
	if err := tx.checkActivityRefs(updated); err != nil {
		return CoreActivity{}, false, err
	}
	tx.state.coreActivities[id] = cloneCoreActivity(updated)
	tx.record(Change{Entity: domain.EntityCoreActivity, Action: domain.ActionUpdate, Before: cloneCoreActivity(current), After: cloneCoreActivity(updated)})
	return updated, true, nil
}

// DeleteCoreActivity removes the activity, its checklist, and every link row
// referencing it from both hierarchies.
func (tx *transaction) DeleteCoreActivity(id string) bool {
	a, ok := tx.state.coreActivities[id]
	if !ok {
		return false
	}
	for _, itemID := range sortedIDs(tx.state.checklistItems) {
		item := tx.state.checklistItems[itemID]
		if item.CoreActivityID == id {
			delete(tx.state.checklistItems, itemID)
			tx.record(Change{Entity: domain.EntityChecklistItem, Action: domain.ActionDelete, Before: cloneChecklistItem(item)})
		}
	}
	for _, linkID := range sortedIDs(tx.state.subFunctionActivities) {
		link := tx.state.subFunctionActivities[linkID]
		if link.CoreActivityID == id {
			delete(tx.state.subFunctionActivities, linkID)
			tx.record(Change{Entity: domain.EntitySubFunctionActivity, Action: domain.ActionDelete, Before: link})
		}
	}
	for _, linkID := range sortedIDs(tx.state.stepActivities) {
		link := tx.state.stepActivities[linkID]
		if link.CoreActivityID == id {
			delete(tx.state.stepActivities, linkID)
			tx.record(Change{Entity: domain.EntityStepActivity, Action: domain.ActionDelete, Before: link})
		}
	}
	delete(tx.state.coreActivities, id)
	tx.record(Change{Entity: domain.EntityCoreActivity, Action: domain.ActionDelete, Before: cloneCoreActivity(a)})
	return true
}

// AddChecklistItem creates a checklist item appended to its activity's list.
func (tx *transaction) AddChecklistItem(c ChecklistItem) (ChecklistItem, error) {
	if c.Text == "" {
		return ChecklistItem{}, domain.ValidationError{Entity: domain.EntityChecklistItem, Msg: "text is required"}
	}
	if _, ok := tx.state.coreActivities[c.CoreActivityID]; !ok {
		return ChecklistItem{}, domain.NotFoundError{Entity: domain.EntityCoreActivity, ID: c.CoreActivityID}
	}
	c.Base = tx.newBase()
	n := 0
	for _, existing := range tx.state.checklistItems {
		if existing.CoreActivityID == c.CoreActivityID {
			n++
		}
	}
	c.OrderIndex = n
	tx.state.checklistItems[c.ID] = cloneChecklistItem(c)
	tx.record(Change{Entity: domain.EntityChecklistItem, Action: domain.ActionCreate, After: cloneChecklistItem(c)})
	return c, nil
}

// UpdateChecklistItem applies mutate to the stored item. Completion toggles
// go through here as well.
func (tx *transaction) UpdateChecklistItem(id string, mutate func(*ChecklistItem) error) (ChecklistItem, bool, error) {
	current, ok := tx.state.checklistItems[id]
	if !ok {
		return ChecklistItem{}, false, nil
	}
	updated := cloneChecklistItem(current)
	if err := mutate(&updated); err != nil {
		return ChecklistItem{}, false, err
	}
	updated.Base = current.Base
	updated.CoreActivityID = current.CoreActivityID
	updated.OrderIndex = current.OrderIndex
	updated.UpdatedAt = tx.now
	if updated.Text == "" {
		return ChecklistItem{}, false, domain.ValidationError{Entity: domain.EntityChecklistItem, Msg: "text is required"}
	}
	tx.state.checklistItems[id] = cloneChecklistItem(updated)
	tx.record(Change{Entity: domain.EntityChecklistItem, Action: domain.ActionUpdate, Before: cloneChecklistItem(current), After: cloneChecklistItem(updated)})
	return updated, true, nil
}

// DeleteChecklistItem removes the item without compacting sibling indexes;
// queries sort by index, so gaps are harmless.
func (tx *transaction) DeleteChecklistItem(id string) bool {
	c, ok := tx.state.checklistItems[id]
	if !ok {
		return false
	}
	delete(tx.state.checklistItems, id)
	tx.record(Change{Entity: domain.EntityChecklistItem, Action: domain.ActionDelete, Before: cloneChecklistItem(c)})
	return true
}

// ReorderChecklistItems reassigns order indexes for one activity's checklist.
func (tx *transaction) ReorderChecklistItems(activityID string, ids []string) error {
	if _, ok := tx.state.coreActivities[activityID]; !ok {
		return domain.NotFoundError{Entity: domain.EntityCoreActivity, ID: activityID}
	}
	var current []string
	for _, id := range sortedIDs(tx.state.checklistItems) {
		if tx.state.checklistItems[id].CoreActivityID == activityID {
			current = append(current, id)
		}
	}
	if err := validateReorderSet(domain.EntityChecklistItem, ids, current); err != nil {
		return err
	}
	for idx, id := range ids {
		c := tx.state.checklistItems[id]
		if c.OrderIndex == idx {
			continue
		}
		before := cloneChecklistItem(c)
		c.OrderIndex = idx
		c.UpdatedAt = tx.now
		tx.state.checklistItems[id] = c
		tx.record(Change{Entity: domain.EntityChecklistItem, Action: domain.ActionUpdate, Before: before, After: cloneChecklistItem(c)})
	}
	return nil
}

// LinkActivityToSubFunction attaches an activity to a sub-function. Linking
// an already linked pair returns the existing row untouched.
func (tx *transaction) LinkActivityToSubFunction(subFunctionID, activityID string) (SubFunctionActivity, error) {
	if _, ok := tx.state.subFunctions[subFunctionID]; !ok {
		return SubFunctionActivity{}, domain.NotFoundError{Entity: domain.EntitySubFunction, ID: subFunctionID}
	}
	if _, ok := tx.state.coreActivities[activityID]; !ok {
		return SubFunctionActivity{}, domain.NotFoundError{Entity: domain.EntityCoreActivity, ID: activityID}
	}
	n := 0
	for _, link := range tx.state.subFunctionActivities {
		if link.SubFunctionID == subFunctionID {
			if link.CoreActivityID == activityID {
				return link, nil
			}
			n++
		}
	}
	link := SubFunctionActivity{
		Base:           tx.newBase(),
		SubFunctionID:  subFunctionID,
		CoreActivityID: activityID,
		OrderIndex:     n,
	}
	tx.state.subFunctionActivities[link.ID] = link
	tx.record(Change{Entity: domain.EntitySubFunctionActivity, Action: domain.ActionCreate, After: link})
	return link, nil
}

// UnlinkActivityFromSubFunction removes the link row for the pair if present.
func (tx *transaction) UnlinkActivityFromSubFunction(subFunctionID, activityID string) bool {
	for id, link := range tx.state.subFunctionActivities {
		if link.SubFunctionID == subFunctionID && link.CoreActivityID == activityID {
			delete(tx.state.subFunctionActivities, id)
			tx.record(Change{Entity: domain.EntitySubFunctionActivity, Action: domain.ActionDelete, Before: link})
			return true
		}
	}
	return false
}

// validateReorderSet checks that got is a permutation of want. Both inputs
// are id slices; want is assumed duplicate-free.
func validateReorderSet(entity domain.EntityType, got, want []string) error {
	if len(got) != len(want) {
		return domain.ValidationError{
			Entity: entity,
			Msg:    fmt.Sprintf("reorder list has %d ids, expected %d", len(got), len(want)),
		}
	}
	seen := make(map[string]bool, len(got))
	wanted := make(map[string]bool, len(want))
	for _, id := range want {
		wanted[id] = true
	}
	for _, id := range got {
		if seen[id] {
			return domain.ValidationError{Entity: entity, Msg: fmt.Sprintf("duplicate id %q in reorder list", id)}
		}
		seen[id] = true
		if !wanted[id] {
			return domain.ValidationError{Entity: entity, Msg: fmt.Sprintf("id %q is not part of the reordered group", id)}
		}
	}
	return nil
}

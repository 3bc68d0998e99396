package store

import "opschart/pkg/domain"

// AddPerson creates a person record. RoleID and ReportsTo, when supplied,
// must resolve; a person cannot report to themselves.
func (tx *transaction) AddPerson(p Person) (Person, error) {
	if p.Name == "" {
		return Person{}, domain.ValidationError{Entity: domain.EntityPerson, Msg: "name is required"}
	}
	if p.RoleID != nil {
		if _, ok := tx.state.roles[*p.RoleID]; !ok {
			return Person{}, domain.NotFoundError{Entity: domain.EntityRole, ID: *p.RoleID}
		}
	}
	if p.ReportsTo != nil {
		if _, ok := tx.state.people[*p.ReportsTo]; !ok {
			return Person{}, domain.NotFoundError{Entity: domain.EntityPerson, ID: *p.ReportsTo}
		}
	}
	p.Base = tx.newBase()
	tx.state.people[p.ID] = clonePerson(p)
	tx.record(Change{Entity: domain.EntityPerson, Action: domain.ActionCreate, After: clonePerson(p)})
	return p, nil
}

// UpdatePerson applies mutate to the stored person.
func (tx *transaction) UpdatePerson(id string, mutate func(*Person) error) (Person, bool, error) {
	current, ok := tx.state.people[id]
	if !ok {
		return Person{}, false, nil
	}
	updated := clonePerson(current)
	if err := mutate(&updated); err != nil {
		return Person{}, false, err
	}
	updated.Base = current.Base
	updated.UpdatedAt = tx.now
	if updated.Name == "" {
		return Person{}, false, domain.ValidationError{Entity: domain.EntityPerson, Msg: "name is required"}
	}
	if updated.RoleID != nil {
		if _, ok := tx.state.roles[*updated.RoleID]; !ok {
			return Person{}, false, domain.NotFoundError{Entity: domain.EntityRole, ID: *updated.RoleID}
		}
	}
	if updated.ReportsTo != nil {
		if *updated.ReportsTo == id {
			return Person{}, false, domain.ValidationError{Entity: domain.EntityPerson, Msg: "person cannot report to themselves"}
		}
		if _, ok := tx.state.people[*updated.ReportsTo]; !ok {
			return Person{}, false, domain.NotFoundError{Entity: domain.EntityPerson, ID: *updated.ReportsTo}
		}
	}
	tx.state.people[id] = clonePerson(updated)
	tx.record(Change{Entity: domain.EntityPerson, Action: domain.ActionUpdate, Before: clonePerson(current), After: clonePerson(updated)})
	return updated, true, nil
}

// DeletePerson removes the person and clears every soft reference pointing at
// them: activity OwnerID fields and other people's ReportsTo fields. Cleared
// referrers are recorded as updates.
func (tx *transaction) DeletePerson(id string) bool {
	p, ok := tx.state.people[id]
	if !ok {
		return false
	}
	for _, aID := range sortedIDs(tx.state.coreActivities) {
		a := tx.state.coreActivities[aID]
		if a.OwnerID != nil && *a.OwnerID == id {
			before := cloneCoreActivity(a)
			a.OwnerID = nil
			a.UpdatedAt = tx.now
			tx.state.coreActivities[aID] = a
			tx.record(Change{Entity: domain.EntityCoreActivity, Action: domain.ActionUpdate, Before: before, After: cloneCoreActivity(a)})
		}
	}
	for _, pID := range sortedIDs(tx.state.people) {
		other := tx.state.people[pID]
		if other.ReportsTo != nil && *other.ReportsTo == id {
			before := clonePerson(other)
			other.ReportsTo = nil
			other.UpdatedAt = tx.now
			tx.state.people[pID] = other
			tx.record(Change{Entity: domain.EntityPerson, Action: domain.ActionUpdate, Before: before, After: clonePerson(other)})
		}
	}
	delete(tx.state.people, id)
	tx.record(Change{Entity: domain.EntityPerson, Action: domain.ActionDelete, Before: clonePerson(p)})
	return true
}

// AddRole creates a role record.
func (tx *transaction) AddRole(r Role) (Role, error) {
	if r.Name == "" {
		return Role{}, domain.ValidationError{Entity: domain.EntityRole, Msg: "name is required"}
	}
	r.Base = tx.newBase()
	tx.state.roles[r.ID] = cloneRole(r)
	tx.record(Change{Entity: domain.EntityRole, Action: domain.ActionCreate, After: cloneRole(r)})
	return r, nil
}

// UpdateRole applies mutate to the stored role.
func (tx *transaction) UpdateRole(id string, mutate func(*Role) error) (Role, bool, error) {
	current, ok := tx.state.roles[id]
	if !ok {
		return Role{}, false, nil
	}
	updated := cloneRole(current)
	if err := mutate(&updated); err != nil {
		return Role{}, false, err
	}
	updated.Base = current.Base
	updated.UpdatedAt = tx.now
	if updated.Name == "" {
		return Role{}, false, domain.ValidationError{Entity: domain.EntityRole, Msg: "name is required"}
	}
	tx.state.roles[id] = cloneRole(updated)
	tx.record(Change{Entity: domain.EntityRole, Action: domain.ActionUpdate, Before: cloneRole(current), After: cloneRole(updated)})
	return updated, true, nil
}

// DeleteRole removes the role and clears the RoleID soft reference on every
// person and activity holding it.
func (tx *transaction) DeleteRole(id string) bool {
	r, ok := tx.state.roles[id]
	if !ok {
		return false
	}
	for _, aID := range sortedIDs(tx.state.coreActivities) {
		a := tx.state.coreActivities[aID]
		if a.RoleID != nil && *a.RoleID == id {
			before := cloneCoreActivity(a)
			a.RoleID = nil
			a.UpdatedAt = tx.now
			tx.state.coreActivities[aID] = a
			tx.record(Change{Entity: domain.EntityCoreActivity, Action: domain.ActionUpdate, Before: before, After: cloneCoreActivity(a)})
		}
	}
	for _, pID := range sortedIDs(tx.state.people) {
		p := tx.state.people[pID]
		if p.RoleID != nil && *p.RoleID == id {
			before := clonePerson(p)
			p.RoleID = nil
			p.UpdatedAt = tx.now
			tx.state.people[pID] = p
			tx.record(Change{Entity: domain.EntityPerson, Action: domain.ActionUpdate, Before: before, After: clonePerson(p)})
		}
	}
	delete(tx.state.roles, id)
	tx.record(Change{Entity: domain.EntityRole, Action: domain.ActionDelete, Before: cloneRole(r)})
	return true
}

// AddSoftware creates a software record.
func (tx *transaction) AddSoftware(sw Software) (Software, error) {
	if sw.Name == "" {
		return Software{}, domain.ValidationError{Entity: domain.EntitySoftware, Msg: "name is required"}
	}
	sw.Base = tx.newBase()
	tx.state.software[sw.ID] = cloneSoftware(sw)
	tx.record(Change{Entity: domain.EntitySoftware, Action: domain.ActionCreate, After: cloneSoftware(sw)})
	return sw, nil
}

// UpdateSoftware applies mutate to the stored software record.
func (tx *transaction) UpdateSoftware(id string, mutate func(*Software) error) (Software, bool, error) {
	current, ok := tx.state.software[id]
	if !ok {
		return Software{}, false, nil
	}
	updated := cloneSoftware(current)
	if err := mutate(&updated); err != nil {
		return Software{}, false, err
	}
	updated.Base = current.Base
	updated.UpdatedAt = tx.now
	if updated.Name == "" {
		return Software{}, false, domain.ValidationError{Entity: domain.EntitySoftware, Msg: "name is required"}
	}
	tx.state.software[id] = cloneSoftware(updated)
	tx.record(Change{Entity: domain.EntitySoftware, Action: domain.ActionUpdate, Before: cloneSoftware(current), After: cloneSoftware(updated)})
	return updated, true, nil
}

// DeleteSoftware removes the software record. Nothing references software by
// id, so no cascades apply.
func (tx *transaction) DeleteSoftware(id string) bool {
	sw, ok := tx.state.software[id]
	if !ok {
		return false
	}
	delete(tx.state.software, id)
	tx.record(Change{Entity: domain.EntitySoftware, Action: domain.ActionDelete, Before: cloneSoftware(sw)})
	return true
}

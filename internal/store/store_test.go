package store

import (
	"context"
	"errors"
	"testing"

	"opschart/pkg/domain"
)

func strPtr(s string) *string { return &s }

func mustTx(t *testing.T, s *Store, fn func(tx domain.Transaction) error) {
	t.Helper()
	if _, err := s.RunInTransaction(context.Background(), fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func addFunction(t *testing.T, s *Store, name string) Function {
	t.Helper()
	var out Function
	mustTx(t, s, func(tx domain.Transaction) error {
		f, err := tx.AddFunction(Function{Name: name, Color: "#888888"})
		out = f
		return err
	})
	return out
}

func addSubFunction(t *testing.T, s *Store, functionID, name string) SubFunction {
	t.Helper()
	var out SubFunction
	mustTx(t, s, func(tx domain.Transaction) error {
		sf, err := tx.AddSubFunction(SubFunction{FunctionID: functionID, Name: name})
		out = sf
		return err
	})
	return out
}

func addActivity(t *testing.T, s *Store, name string) CoreActivity {
	t.Helper()
	var out CoreActivity
	mustTx(t, s, func(tx domain.Transaction) error {
		a, err := tx.AddCoreActivity(CoreActivity{Name: name})
		out = a
		return err
	})
	return out
}

func TestAddFunctionAssignsIdentityAndOrder(t *testing.T) {
	s := NewStore(nil)

	first := addFunction(t, s, "Marketing")
	second := addFunction(t, s, "Sales")

	if first.ID == "" || second.ID == "" {
		t.Fatalf("expected generated ids, got %q and %q", first.ID, second.ID)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, both %q", first.ID)
	}
	if first.OrderIndex != 0 || second.OrderIndex != 1 {
		t.Fatalf("expected append ordering 0,1, got %d,%d", first.OrderIndex, second.OrderIndex)
	}
	if first.Status != domain.StatusGap {
		t.Fatalf("expected default status %q, got %q", domain.StatusGap, first.Status)
	}
	if first.CreatedAt.IsZero() || first.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be stamped")
	}
}

func TestAddFunctionRejectsEmptyNameAndBadStatus(t *testing.T) {
	s := NewStore(nil)

	_, err := s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AddFunction(Function{})
		return err
	})
	var ve domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}

	_, err = s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AddFunction(Function{Name: "Ops", Status: "bogus"})
		return err
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}
	if got := len(s.ListFunctions()); got != 0 {
		t.Fatalf("failed transactions must not leak state, found %d functions", got)
	}
}

func TestUpdateFunctionPinsStructuralFields(t *testing.T) {
	s := NewStore(nil)
	f := addFunction(t, s, "Marketing")
	addFunction(t, s, "Sales")

	var updated Function
	mustTx(t, s, func(tx domain.Transaction) error {
		u, ok, err := tx.UpdateFunction(f.ID, func(fn *Function) error {
			fn.Name = "Growth"
			fn.OrderIndex = 99
			fn.Base.ID = "hijacked"
			return nil
		})
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected update to find the function")
		}
		updated = u
		return nil
	})

	if updated.ID != f.ID {
		t.Fatalf("id must survive the mutator, got %q", updated.ID)
	}
	if updated.OrderIndex != f.OrderIndex {
		t.Fatalf("order index must survive the mutator, got %d", updated.OrderIndex)
	}
	if updated.Name != "Growth" {
		t.Fatalf("expected renamed function, got %q", updated.Name)
	}
	if !updated.UpdatedAt.After(f.UpdatedAt) && !updated.UpdatedAt.Equal(f.UpdatedAt) {
		t.Fatalf("expected UpdatedAt refresh, got %v", updated.UpdatedAt)
	}
}

func TestUpdateUnknownIDIsNoOp(t *testing.T) {
	s := NewStore(nil)

	mustTx(t, s, func(tx domain.Transaction) error {
		_, ok, err := tx.UpdateFunction("missing", func(fn *Function) error {
			fn.Name = "x"
			return nil
		})
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("expected ok=false for unknown id")
		}
		if tx.DeleteFunction("missing") {
			t.Fatal("expected delete of unknown id to report false")
		}
		return nil
	})
}

func TestDeleteFunctionCascadesToSubFunctionsAndLinks(t *testing.T) {
	s := NewStore(nil)
	f := addFunction(t, s, "Marketing")
	sfA := addSubFunction(t, s, f.ID, "Content")
	sfB := addSubFunction(t, s, f.ID, "Paid Ads")
	act := addActivity(t, s, "Write blog post")

	mustTx(t, s, func(tx domain.Transaction) error {
		if _, err := tx.LinkActivityToSubFunction(sfA.ID, act.ID); err != nil {
			return err
		}
		_, err := tx.LinkActivityToSubFunction(sfB.ID, act.ID)
		return err
	})

	var changes []Change
	s.Subscribe(func(cs []Change) { changes = cs })

	mustTx(t, s, func(tx domain.Transaction) error {
		if !tx.DeleteFunction(f.ID) {
			t.Fatal("expected delete to succeed")
		}
		return nil
	})

	if got := len(s.ListFunctions()); got != 0 {
		t.Fatalf("expected no functions, got %d", got)
	}
	if got := len(s.ListSubFunctions()); got != 0 {
		t.Fatalf("expected cascade to remove sub-functions, got %d", got)
	}
	if _, ok := s.GetCoreActivity(act.ID); !ok {
		t.Fatal("linked activity must survive a function delete")
	}

	deletes := map[domain.EntityType]int{}
	for _, c := range changes {
		if c.Action == domain.ActionDelete {
			deletes[c.Entity]++
		}
	}
	if deletes[domain.EntityFunction] != 1 || deletes[domain.EntitySubFunction] != 2 || deletes[domain.EntitySubFunctionActivity] != 2 {
		t.Fatalf("unexpected cascade change counts: %v", deletes)
	}
}

func TestDeleteWorkflowCascadesToPhasesStepsAndLinks(t *testing.T) {
	s := NewStore(nil)
	act := addActivity(t, s, "Qualify lead")

	var workflowID, otherStepID string
	mustTx(t, s, func(tx domain.Transaction) error {
		w, err := tx.AddWorkflow(Workflow{Name: "Sales pipeline"})
		if err != nil {
			return err
		}
		workflowID = w.ID
		for _, phaseName := range []string{"Prospecting", "Closing"} {
			p, err := tx.AddPhase(Phase{WorkflowID: w.ID, Name: phaseName})
			if err != nil {
				return err
			}
			st, err := tx.AddStep(Step{PhaseID: p.ID, Name: phaseName + " call"})
			if err != nil {
				return err
			}
			if _, err := tx.LinkActivityToStep(st.ID, act.ID); err != nil {
				return err
			}
		}
		other, err := tx.AddWorkflow(Workflow{Name: "Onboarding"})
		if err != nil {
			return err
		}
		op, err := tx.AddPhase(Phase{WorkflowID: other.ID, Name: "Kickoff"})
		if err != nil {
			return err
		}
		ost, err := tx.AddStep(Step{PhaseID: op.ID, Name: "Welcome call"})
		if err != nil {
			return err
		}
		otherStepID = ost.ID
		_, err = tx.LinkActivityToStep(ost.ID, act.ID)
		return err
	})

	mustTx(t, s, func(tx domain.Transaction) error {
		if !tx.DeleteWorkflow(workflowID) {
			t.Fatal("expected delete to succeed")
		}
		return nil
	})

	err := s.View(context.Background(), func(v domain.TransactionView) error {
		if got := len(v.PhasesOf(workflowID)); got != 0 {
			t.Fatalf("expected phases removed, got %d", got)
		}
		steps := v.ListSteps()
		if len(steps) != 1 || steps[0].ID != otherStepID {
			t.Fatalf("expected only the other workflow's step to survive, got %+v", steps)
		}
		links := v.ListStepActivities()
		if len(links) != 1 || links[0].StepID != otherStepID {
			t.Fatalf("expected only the surviving step's link, got %+v", links)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if _, ok := s.GetCoreActivity(act.ID); !ok {
		t.Fatal("linked activity must survive a workflow delete")
	}
}

func TestReorderStepsLeavesOtherPhasesUntouched(t *testing.T) {
	s := NewStore(nil)

	var phaseID, otherPhaseID string
	steps := make(map[string]string)
	mustTx(t, s, func(tx domain.Transaction) error {
		w, err := tx.AddWorkflow(Workflow{Name: "Delivery"})
		if err != nil {
			return err
		}
		p, err := tx.AddPhase(Phase{WorkflowID: w.ID, Name: "Build"})
		if err != nil {
			return err
		}
		phaseID = p.ID
		for _, name := range []string{"s1", "s2", "s3"} {
			st, err := tx.AddStep(Step{PhaseID: p.ID, Name: name})
			if err != nil {
				return err
			}
			steps[name] = st.ID
		}
		op, err := tx.AddPhase(Phase{WorkflowID: w.ID, Name: "Review"})
		if err != nil {
			return err
		}
		otherPhaseID = op.ID
		for _, name := range []string{"r1", "r2"} {
			st, err := tx.AddStep(Step{PhaseID: op.ID, Name: name})
			if err != nil {
				return err
			}
			steps[name] = st.ID
		}
		return nil
	})

	mustTx(t, s, func(tx domain.Transaction) error {
		return tx.ReorderSteps(phaseID, []string{steps["s3"], steps["s1"], steps["s2"]})
	})

	err := s.View(context.Background(), func(v domain.TransactionView) error {
		reordered := v.StepsOf(phaseID)
		wantNames := []string{"s3", "s1", "s2"}
		if len(reordered) != len(wantNames) {
			t.Fatalf("steps = %d, want %d", len(reordered), len(wantNames))
		}
		for i, st := range reordered {
			if st.Name != wantNames[i] || st.OrderIndex != i {
				t.Fatalf("step %d = %q index %d, want %q index %d", i, st.Name, st.OrderIndex, wantNames[i], i)
			}
		}
		for i, st := range v.StepsOf(otherPhaseID) {
			if st.OrderIndex != i {
				t.Fatalf("other phase step %q index changed to %d", st.Name, st.OrderIndex)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestDeleteCoreActivityCascadesBothHierarchies(t *testing.T) {
	s := NewStore(nil)
	f := addFunction(t, s, "Marketing")
	sf := addSubFunction(t, s, f.ID, "Content")
	act := addActivity(t, s, "Write blog post")

	var stepID string
	mustTx(t, s, func(tx domain.Transaction) error {
		w, err := tx.AddWorkflow(Workflow{Name: "Launch"})
		if err != nil {
			return err
		}
		p, err := tx.AddPhase(Phase{WorkflowID: w.ID, Name: "Prep"})
		if err != nil {
			return err
		}
		st, err := tx.AddStep(Step{PhaseID: p.ID, Name: "Draft announcement"})
		if err != nil {
			return err
		}
		stepID = st.ID
		if _, err := tx.LinkActivityToSubFunction(sf.ID, act.ID); err != nil {
			return err
		}
		if _, err := tx.LinkActivityToStep(st.ID, act.ID); err != nil {
			return err
		}
		_, err = tx.AddChecklistItem(ChecklistItem{CoreActivityID: act.ID, Text: "Outline"})
		return err
	})

	mustTx(t, s, func(tx domain.Transaction) error {
		if !tx.DeleteCoreActivity(act.ID) {
			t.Fatal("expected delete to succeed")
		}
		return nil
	})

	err := s.View(context.Background(), func(v domain.TransactionView) error {
		if got := len(v.ListSubFunctionActivities()); got != 0 {
			t.Fatalf("expected sub-function links removed, got %d", got)
		}
		if got := len(v.ListStepActivities()); got != 0 {
			t.Fatalf("expected step links removed, got %d", got)
		}
		if got := len(v.ListChecklistItems()); got != 0 {
			t.Fatalf("expected checklist removed, got %d", got)
		}
		if _, ok := v.FindStep(stepID); !ok {
			t.Fatal("step itself must survive an activity delete")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestLinkActivityIsIdempotent(t *testing.T) {
	s := NewStore(nil)
	f := addFunction(t, s, "Marketing")
	sf := addSubFunction(t, s, f.ID, "Content")
	act := addActivity(t, s, "Write blog post")

	var first, second SubFunctionActivity
	mustTx(t, s, func(tx domain.Transaction) error {
		var err error
		if first, err = tx.LinkActivityToSubFunction(sf.ID, act.ID); err != nil {
			return err
		}
		second, err = tx.LinkActivityToSubFunction(sf.ID, act.ID)
		return err
	})

	if first.ID != second.ID {
		t.Fatalf("expected same link row, got %q and %q", first.ID, second.ID)
	}
	err := s.View(context.Background(), func(v domain.TransactionView) error {
		if got := len(v.ListSubFunctionActivities()); got != 1 {
			t.Fatalf("expected exactly one link row, got %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestLinkRejectsUnknownEndpoints(t *testing.T) {
	s := NewStore(nil)
	f := addFunction(t, s, "Marketing")
	sf := addSubFunction(t, s, f.ID, "Content")

	_, err := s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.LinkActivityToSubFunction(sf.ID, "missing")
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestReorderFunctionsValidation(t *testing.T) {
	s := NewStore(nil)
	a := addFunction(t, s, "A")
	b := addFunction(t, s, "B")
	c := addFunction(t, s, "C")

	_, err := s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ReorderFunctions([]string{a.ID, b.ID})
	})
	var ve domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for incomplete set, got %v", err)
	}

	_, err = s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ReorderFunctions([]string{a.ID, a.ID, b.ID})
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for duplicate id, got %v", err)
	}

	mustTx(t, s, func(tx domain.Transaction) error {
		return tx.ReorderFunctions([]string{c.ID, a.ID, b.ID})
	})
	got := s.ListFunctions()
	if got[0].ID != c.ID || got[1].ID != a.ID || got[2].ID != b.ID {
		t.Fatalf("unexpected order after reorder: %q %q %q", got[0].Name, got[1].Name, got[2].Name)
	}
	for i, f := range got {
		if f.OrderIndex != i {
			t.Fatalf("expected dense indexes after reorder, position %d has index %d", i, f.OrderIndex)
		}
	}
}

func TestDeletePersonClearsSoftReferences(t *testing.T) {
	s := NewStore(nil)

	var boss, report Person
	var act CoreActivity
	mustTx(t, s, func(tx domain.Transaction) error {
		var err error
		if boss, err = tx.AddPerson(Person{Name: "Jordan"}); err != nil {
			return err
		}
		if report, err = tx.AddPerson(Person{Name: "Sam", ReportsTo: &boss.ID}); err != nil {
			return err
		}
		act, err = tx.AddCoreActivity(CoreActivity{Name: "Close books", OwnerID: &boss.ID})
		return err
	})

	mustTx(t, s, func(tx domain.Transaction) error {
		if !tx.DeletePerson(boss.ID) {
			t.Fatal("expected delete to succeed")
		}
		return nil
	})

	got, ok := s.GetCoreActivity(act.ID)
	if !ok {
		t.Fatal("activity must survive owner delete")
	}
	if got.OwnerID != nil {
		t.Fatalf("expected owner reference cleared, got %q", *got.OwnerID)
	}
	err := s.View(context.Background(), func(v domain.TransactionView) error {
		p, ok := v.FindPerson(report.ID)
		if !ok {
			t.Fatal("report must survive manager delete")
		}
		if p.ReportsTo != nil {
			t.Fatalf("expected reports-to cleared, got %q", *p.ReportsTo)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestDeleteRoleClearsSoftReferences(t *testing.T) {
	s := NewStore(nil)

	var role Role
	var person Person
	var act CoreActivity
	mustTx(t, s, func(tx domain.Transaction) error {
		var err error
		if role, err = tx.AddRole(Role{Name: "Controller"}); err != nil {
			return err
		}
		if person, err = tx.AddPerson(Person{Name: "Sam", RoleID: &role.ID}); err != nil {
			return err
		}
		act, err = tx.AddCoreActivity(CoreActivity{Name: "Close books", RoleID: &role.ID})
		return err
	})

	mustTx(t, s, func(tx domain.Transaction) error {
		if !tx.DeleteRole(role.ID) {
			t.Fatal("expected delete to succeed")
		}
		return nil
	})

	gotAct, _ := s.GetCoreActivity(act.ID)
	if gotAct.RoleID != nil {
		t.Fatalf("expected activity role cleared, got %q", *gotAct.RoleID)
	}
	err := s.View(context.Background(), func(v domain.TransactionView) error {
		p, _ := v.FindPerson(person.ID)
		if p.RoleID != nil {
			t.Fatalf("expected person role cleared, got %q", *p.RoleID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestChecklistOrderingToleratesGaps(t *testing.T) {
	s := NewStore(nil)
	act := addActivity(t, s, "Close books")

	var items []ChecklistItem
	mustTx(t, s, func(tx domain.Transaction) error {
		for _, text := range []string{"one", "two", "three"} {
			c, err := tx.AddChecklistItem(ChecklistItem{CoreActivityID: act.ID, Text: text})
			if err != nil {
				return err
			}
			items = append(items, c)
		}
		return nil
	})

	mustTx(t, s, func(tx domain.Transaction) error {
		if !tx.DeleteChecklistItem(items[1].ID) {
			t.Fatal("expected delete to succeed")
		}
		return nil
	})

	err := s.View(context.Background(), func(v domain.TransactionView) error {
		got := v.ChecklistForActivity(act.ID)
		if len(got) != 2 {
			t.Fatalf("expected 2 items, got %d", len(got))
		}
		if got[0].Text != "one" || got[1].Text != "three" {
			t.Fatalf("unexpected relative order: %q, %q", got[0].Text, got[1].Text)
		}
		// Indexes are not compacted after a delete.
		if got[1].OrderIndex != 2 {
			t.Fatalf("expected surviving index 2, got %d", got[1].OrderIndex)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }

func (blockAllRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "block_all",
		Severity: domain.SeverityBlock,
		Message:  "mutations are frozen",
	}}}, nil
}

func TestBlockingRulePreventsCommitAndNotification(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	s := NewStore(engine)

	notified := false
	s.Subscribe(func([]Change) { notified = true })

	_, err := s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AddFunction(Function{Name: "Marketing"})
		return err
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if got := len(s.ListFunctions()); got != 0 {
		t.Fatalf("blocked transaction must not commit, found %d functions", got)
	}
	if notified {
		t.Fatal("subscribers must not fire for blocked transactions")
	}
}

func TestSubscribeReceivesChangeStream(t *testing.T) {
	s := NewStore(nil)

	var got []Change
	s.Subscribe(func(cs []Change) { got = cs })

	f := addFunction(t, s, "Marketing")
	if len(got) != 1 {
		t.Fatalf("expected 1 change, got %d", len(got))
	}
	if got[0].Entity != domain.EntityFunction || got[0].Action != domain.ActionCreate {
		t.Fatalf("unexpected change %v/%v", got[0].Entity, got[0].Action)
	}
	after, ok := got[0].After.(Function)
	if !ok || after.ID != f.ID {
		t.Fatalf("expected After to carry the created function, got %#v", got[0].After)
	}
}

func TestUpdateStatusTransitionsAreUnrestricted(t *testing.T) {
	s := NewStore(nil)
	f := addFunction(t, s, "Marketing")

	for _, status := range []domain.Status{domain.StatusArchived, domain.StatusDraft, domain.StatusActive, domain.StatusGap} {
		mustTx(t, s, func(tx domain.Transaction) error {
			_, _, err := tx.UpdateFunction(f.ID, func(fn *Function) error {
				fn.Status = status
				return nil
			})
			return err
		})
	}
	got, _ := s.GetFunction(f.ID)
	if got.Status != domain.StatusGap {
		t.Fatalf("expected final status %q, got %q", domain.StatusGap, got.Status)
	}
}

package store

import (
	"context"
	"testing"

	"opschart/pkg/domain"
)

func TestExportImportRoundTrip(t *testing.T) {
	s := NewStore(nil)
	f := addFunction(t, s, "Marketing")
	sf := addSubFunction(t, s, f.ID, "Content")
	act := addActivity(t, s, "Write blog post")
	mustTx(t, s, func(tx domain.Transaction) error {
		_, err := tx.LinkActivityToSubFunction(sf.ID, act.ID)
		return err
	})

	snap := s.ExportState()

	restored := NewStore(nil)
	restored.ImportState(snap)

	got := restored.ListFunctions()
	if len(got) != 1 || got[0].ID != f.ID || got[0].Name != "Marketing" {
		t.Fatalf("unexpected functions after import: %+v", got)
	}
	err := restored.View(context.Background(), func(v domain.TransactionView) error {
		acts := v.ActivitiesForSubFunction(sf.ID)
		if len(acts) != 1 || acts[0].ID != act.ID {
			t.Fatalf("expected link to survive round trip, got %d activities", len(acts))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestExportedSnapshotDoesNotAliasStoreState(t *testing.T) {
	s := NewStore(nil)
	f := addFunction(t, s, "Marketing")

	snap := s.ExportState()
	mutated := snap.Functions[f.ID]
	mutated.Name = "scribbled"
	snap.Functions[f.ID] = mutated

	got, _ := s.GetFunction(f.ID)
	if got.Name != "Marketing" {
		t.Fatalf("store mutated through exported snapshot: %q", got.Name)
	}
}

func TestImportStateNormalizesDanglingReferences(t *testing.T) {
	s := NewStore(nil)
	s.ImportState(Snapshot{
		Functions: map[string]Function{
			"f1": {Base: domain.Base{ID: "f1"}, Name: "Marketing"},
		},
		SubFunctions: map[string]SubFunction{
			"sf1": {Base: domain.Base{ID: "sf1"}, FunctionID: "f1", Name: "Content"},
			"sf2": {Base: domain.Base{ID: "sf2"}, FunctionID: "ghost", Name: "Orphan"},
		},
		CoreActivities: map[string]CoreActivity{
			"a1": {Base: domain.Base{ID: "a1"}, Name: "Write", OwnerID: strPtr("nobody")},
		},
		SubFunctionActivities: map[string]SubFunctionActivity{
			"l1": {Base: domain.Base{ID: "l1"}, SubFunctionID: "sf1", CoreActivityID: "a1"},
			"l2": {Base: domain.Base{ID: "l2"}, SubFunctionID: "sf2", CoreActivityID: "a1"},
			"l3": {Base: domain.Base{ID: "l3"}, SubFunctionID: "sf1", CoreActivityID: "ghost"},
		},
		Workflows: map[string]Workflow{
			"w1": {Base: domain.Base{ID: "w1"}, Name: "Launch"},
		},
		Phases: map[string]Phase{
			"p1": {Base: domain.Base{ID: "p1"}, WorkflowID: "ghost", Name: "Adrift"},
		},
		People: map[string]Person{
			"per1": {Base: domain.Base{ID: "per1"}, Name: "Sam", ReportsTo: strPtr("per1")},
		},
	})

	err := s.View(context.Background(), func(v domain.TransactionView) error {
		if _, ok := v.FindSubFunction("sf2"); ok {
			t.Fatal("orphan sub-function should be dropped")
		}
		if _, ok := v.FindPhase("p1"); ok {
			t.Fatal("orphan phase should be dropped")
		}
		links := v.ListSubFunctionActivities()
		if len(links) != 1 || links[0].ID != "l1" {
			t.Fatalf("expected only the valid link row, got %d", len(links))
		}
		a, _ := v.FindCoreActivity("a1")
		if a.OwnerID != nil {
			t.Fatalf("dangling owner should be cleared, got %q", *a.OwnerID)
		}
		if a.Status != domain.StatusGap {
			t.Fatalf("empty status should default to %q, got %q", domain.StatusGap, a.Status)
		}
		w, _ := v.FindWorkflow("w1")
		if w.Status != domain.StatusDraft {
			t.Fatalf("empty workflow status should default to %q, got %q", domain.StatusDraft, w.Status)
		}
		p, _ := v.FindPerson("per1")
		if p.ReportsTo != nil {
			t.Fatal("self reports-to should be cleared")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

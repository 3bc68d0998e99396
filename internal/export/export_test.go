package export

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"opschart/internal/blob"
	"opschart/internal/store"
	"opschart/pkg/domain"
)

func strPtr(s string) *string { return &s }

func testWorkspace() domain.Workspace {
	ws := domain.Workspace{Name: "acme", UserID: "user-1"}
	ws.ID = "ws-1"
	return ws
}

// seedStore populates two functions, three sub-functions, five activities,
// links, a workflow chain, and org records.
func seedStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.NewStore(nil)
	_, err := s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		role, err := tx.AddRole(domain.Role{Name: "Operator"})
		if err != nil {
			return err
		}
		manager, err := tx.AddPerson(domain.Person{Name: "Morgan"})
		if err != nil {
			return err
		}
		_, err = tx.AddPerson(domain.Person{Name: "Alex", RoleID: &role.ID, ReportsTo: &manager.ID})
		if err != nil {
			return err
		}
		if _, err := tx.AddSoftware(domain.Software{Name: "CRM", URL: strPtr("https://crm.example")}); err != nil {
			return err
		}

		fnA, err := tx.AddFunction(domain.Function{Name: "Sales", Description: strPtr("revenue")})
		if err != nil {
			return err
		}
		fnB, err := tx.AddFunction(domain.Function{Name: "Operations"})
		if err != nil {
			return err
		}
		sf1, err := tx.AddSubFunction(domain.SubFunction{FunctionID: fnA.ID, Name: "Outbound"})
		if err != nil {
			return err
		}
		if _, err := tx.AddSubFunction(domain.SubFunction{FunctionID: fnA.ID, Name: "Inbound"}); err != nil {
			return err
		}
		sf3, err := tx.AddSubFunction(domain.SubFunction{FunctionID: fnB.ID, Name: "Fulfilment"})
		if err != nil {
			return err
		}

		names := []string{"Cold calls", "Demos", "Quotes", "Packing", "Shipping"}
		var activities []domain.CoreActivity
		for _, name := range names {
			a, err := tx.AddCoreActivity(domain.CoreActivity{Name: name, OwnerID: &manager.ID})
			if err != nil {
				return err
			}
			activities = append(activities, a)
		}
		for _, a := range activities[:3] {
			if _, err := tx.LinkActivityToSubFunction(sf1.ID, a.ID); err != nil {
				return err
			}
		}
		for _, a := range activities[3:] {
			if _, err := tx.LinkActivityToSubFunction(sf3.ID, a.ID); err != nil {
				return err
			}
		}
		if _, err := tx.AddChecklistItem(domain.ChecklistItem{CoreActivityID: activities[0].ID, Text: "Prepare list"}); err != nil {
			return err
		}
		if _, err := tx.AddChecklistItem(domain.ChecklistItem{CoreActivityID: activities[0].ID, Text: "Dial"}); err != nil {
			return err
		}

		wf, err := tx.AddWorkflow(domain.Workflow{Name: "Order to cash"})
		if err != nil {
			return err
		}
		phase, err := tx.AddPhase(domain.Phase{WorkflowID: wf.ID, Name: "Capture"})
		if err != nil {
			return err
		}
		step, err := tx.AddStep(domain.Step{PhaseID: phase.ID, Name: "Take order"})
		if err != nil {
			return err
		}
		if _, err := tx.LinkActivityToStep(step.ID, activities[2].ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestRoundTripPreservesContent(t *testing.T) {
	src := seedStore(t)
	doc, err := BuildDocument(context.Background(), testWorkspace(), src, time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	dst := store.NewStore(nil)
	_, err = dst.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := Replay(tx, decoded)
		return err
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	srcFns := src.ListFunctions()
	dstFns := dst.ListFunctions()
	if len(dstFns) != len(srcFns) {
		t.Fatalf("functions = %d, want %d", len(dstFns), len(srcFns))
	}
	for i := range srcFns {
		if dstFns[i].Name != srcFns[i].Name {
			t.Fatalf("function %d name = %q, want %q", i, dstFns[i].Name, srcFns[i].Name)
		}
		if dstFns[i].ID == srcFns[i].ID {
			t.Fatalf("imported function kept its old id")
		}
	}

	err = dst.View(context.Background(), func(v domain.TransactionView) error {
		if got := len(v.ListSubFunctions()); got != 3 {
			t.Fatalf("sub-functions = %d, want 3", got)
		}
		if got := len(v.ListCoreActivities()); got != 5 {
			t.Fatalf("activities = %d, want 5", got)
		}
		if got := len(v.ListSubFunctionActivities()); got != 5 {
			t.Fatalf("sub-function links = %d, want 5", got)
		}

		// Link ordering reconstructs per sub-function through the id map.
		var outbound domain.SubFunction
		for _, sf := range v.ListSubFunctions() {
			if sf.Name == "Outbound" {
				outbound = sf
			}
		}
		linked := v.ActivitiesForSubFunction(outbound.ID)
		var names []string
		for _, a := range linked {
			names = append(names, a.Name)
		}
		want := []string{"Cold calls", "Demos", "Quotes"}
		if strings.Join(names, ",") != strings.Join(want, ",") {
			t.Fatalf("outbound activities = %v, want %v", names, want)
		}

		// Soft references were remapped, not carried over verbatim.
		for _, a := range linked {
			if a.OwnerID == nil {
				t.Fatalf("owner reference lost on import")
			}
			if _, ok := v.FindPerson(*a.OwnerID); !ok {
				t.Fatalf("owner reference dangling after import")
			}
		}

		// Checklist order survives.
		var cold domain.CoreActivity
		for _, a := range v.ListCoreActivities() {
			if a.Name == "Cold calls" {
				cold = a
			}
		}
		items := v.ChecklistForActivity(cold.ID)
		if len(items) != 2 || items[0].Text != "Prepare list" || items[1].Text != "Dial" {
			t.Fatalf("checklist = %+v", items)
		}

		// Workflow chain with its step link.
		wfs := v.ListWorkflows()
		if len(wfs) != 1 {
			t.Fatalf("workflows = %d, want 1", len(wfs))
		}
		phases := v.PhasesOf(wfs[0].ID)
		if len(phases) != 1 {
			t.Fatalf("phases = %d, want 1", len(phases))
		}
		steps := v.StepsOf(phases[0].ID)
		if len(steps) != 1 {
			t.Fatalf("steps = %d, want 1", len(steps))
		}
		if got := v.ActivitiesForStep(steps[0].ID); len(got) != 1 || got[0].Name != "Quotes" {
			t.Fatalf("step activities = %+v", got)
		}

		// ReportsTo chain remapped.
		people := v.ListPeople()
		byName := map[string]domain.Person{}
		for _, p := range people {
			byName[p.Name] = p
		}
		alex, morgan := byName["Alex"], byName["Morgan"]
		if alex.ReportsTo == nil || *alex.ReportsTo != morgan.ID {
			t.Fatalf("reports-to not remapped: %+v", alex)
		}
		if alex.RoleID == nil {
			t.Fatalf("role reference lost on import")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestReplayWipesExistingContent(t *testing.T) {
	doc, err := BuildDocument(context.Background(), testWorkspace(), seedStore(t), time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	dst := store.NewStore(nil)
	_, err = dst.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AddFunction(domain.Function{Name: "Stale"})
		return err
	})
	if err != nil {
		t.Fatalf("seed dst: %v", err)
	}

	_, err = dst.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := Replay(tx, doc)
		return err
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	names := []string{}
	for _, fn := range dst.ListFunctions() {
		names = append(names, fn.Name)
	}
	sort.Strings(names)
	if strings.Join(names, ",") != "Operations,Sales" {
		t.Fatalf("functions after import = %v", names)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"missing version", `{"workspace":{"id":"w","name":"n"},"collections":{}}`},
		{"future version", `{"version":99,"workspace":{"id":"w","name":"n"},"collections":{}}`},
		{"missing workspace", `{"version":1,"collections":{}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.data)); err == nil {
				t.Fatalf("Decode accepted %s", tc.name)
			}
		})
	}
}

func TestReplayDropsDanglingRows(t *testing.T) {
	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: time.Now(),
		Workspace:  testWorkspace(),
	}
	doc.Collections.Functions = []domain.Function{{Name: "Kept"}}
	doc.Collections.SubFunctions = []domain.SubFunction{{FunctionID: "gone", Name: "Orphan"}}
	doc.Collections.SubFunctionActivities = []domain.SubFunctionActivity{{SubFunctionID: "gone", CoreActivityID: "also-gone"}}

	dst := store.NewStore(nil)
	var summary Summary
	_, err := dst.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		summary, err = Replay(tx, doc)
		return err
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if summary.Created[domain.EntityFunction] != 1 {
		t.Fatalf("functions created = %d, want 1", summary.Created[domain.EntityFunction])
	}
	if summary.Created[domain.EntitySubFunction] != 0 {
		t.Fatalf("orphan sub-function imported")
	}
	if summary.Created[domain.EntitySubFunctionActivity] != 0 {
		t.Fatalf("dangling link imported")
	}
}

func TestArchiveSaveAndLoad(t *testing.T) {
	doc, err := BuildDocument(context.Background(), testWorkspace(), seedStore(t), time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	archive := NewArchive(blob.NewMemory())
	key, err := archive.Save(context.Background(), doc)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(key, "exports/ws-1/") {
		t.Fatalf("key = %q", key)
	}

	loaded, err := archive.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Workspace.ID != "ws-1" {
		t.Fatalf("workspace id = %q", loaded.Workspace.ID)
	}
	if len(loaded.Collections.Functions) != 2 {
		t.Fatalf("functions = %d, want 2", len(loaded.Collections.Functions))
	}

	entries, err := archive.List(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

package core

import (
	"context"
	"testing"

	"opschart/internal/export"
	"opschart/pkg/domain"
)

func TestServiceExportImportRoundTrip(t *testing.T) {
	c := NewContainer(memoryFactory)
	if _, err := c.CreateWorkspace("acme", "user-1"); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	svc := NewService(c)
	ctx := context.Background()

	if _, _, err := svc.CreateFunction(ctx, domain.Function{Name: "Sales"}); err != nil {
		t.Fatalf("create function: %v", err)
	}
	data, err := svc.ExportWorkspaceJSON(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	doc, err := export.Decode(data)
	if err != nil {
		t.Fatalf("exported document invalid: %v", err)
	}
	if doc.Workspace.Name != "acme" {
		t.Fatalf("workspace name = %q", doc.Workspace.Name)
	}

	summary, err := svc.ImportWorkspace(ctx, data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Created[domain.EntityFunction] != 1 {
		t.Fatalf("functions imported = %d, want 1", summary.Created[domain.EntityFunction])
	}
}

func TestServiceImportRejectionLeavesStateUntouched(t *testing.T) {
	svc := NewInMemoryService(nil)
	ctx := context.Background()

	fn, _, err := svc.CreateFunction(ctx, domain.Function{Name: "Keep me"})
	if err != nil {
		t.Fatalf("create function: %v", err)
	}

	if _, err := svc.ImportWorkspace(ctx, []byte(`{"version":1}`)); err == nil {
		t.Fatalf("malformed import accepted")
	}

	err = svc.View(ctx, func(v domain.TransactionView) error {
		if _, ok := v.FindFunction(fn.ID); !ok {
			t.Fatalf("rejected import mutated state")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

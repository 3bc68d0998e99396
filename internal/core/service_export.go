package core

import (
	"context"

	"opschart/internal/export"
	"opschart/pkg/domain"
)

// workspaceResolver is satisfied by providers that track workspace records,
// such as the Container. Providers without records fall back to a synthetic
// default workspace in export documents.
type workspaceResolver interface {
	Workspace(id string) (domain.Workspace, bool)
}

func (s *Service) activeWorkspace() (domain.Workspace, domain.PersistentStore, error) {
	id, st, err := s.provider.Active()
	if err != nil {
		return domain.Workspace{}, nil, err
	}
	if resolver, ok := s.provider.(workspaceResolver); ok {
		if ws, found := resolver.Workspace(id); found {
			return ws, st, nil
		}
	}
	ws := domain.Workspace{Name: "default"}
	ws.ID = id
	if ws.ID == "" {
		ws.ID = "default"
	}
	return ws, st, nil
}

// ExportWorkspace serializes the active workspace into an export document.
func (s *Service) ExportWorkspace(ctx context.Context) (export.Document, error) {
	ws, st, err := s.activeWorkspace()
	if err != nil {
		return export.Document{}, err
	}
	return export.BuildDocument(ctx, ws, st, s.opts.clock.Now())
}

// ExportWorkspaceJSON serializes the active workspace to indented JSON.
func (s *Service) ExportWorkspaceJSON(ctx context.Context) ([]byte, error) {
	doc, err := s.ExportWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	return export.Encode(doc)
}

// ImportWorkspace replaces the active workspace's content with the decoded
// document. A malformed payload rejects the whole import and leaves current
// state untouched.
func (s *Service) ImportWorkspace(ctx context.Context, data []byte) (export.Summary, error) {
	var summary export.Summary
	ws, _, err := s.activeWorkspace()
	if err != nil {
		return export.Summary{}, err
	}
	id := ws.ID
	_, err = s.run(ctx, "import_workspace", &id, func(tx domain.Transaction) error {
		doc, err := export.Decode(data)
		if err != nil {
			return err
		}
		summary, err = export.Replay(tx, doc)
		return err
	})
	if err != nil {
		return export.Summary{}, err
	}
	return summary, nil
}

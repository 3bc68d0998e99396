// Package export serializes workspaces to a versioned JSON document and
// replays documents back into a store. Import is content-preserving, not
// identity-preserving: every record gets a fresh id and link tables are
// rebuilt through an explicit id map.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"opschart/pkg/domain"
)

// DocumentVersion is the current export document format version.
const DocumentVersion = 1

// Document is the top-level export payload for one workspace.
type Document struct {
	Version     int              `json:"version"`
	ExportedAt  time.Time        `json:"exported_at"`
	Workspace   domain.Workspace `json:"workspace"`
	Collections Collections      `json:"collections"`
}

// Collections holds every entity collection of a workspace. Ordered
// collections are stored in display order so a replay reconstructs the
// same ordering through plain appends.
type Collections struct {
	Functions             []domain.Function            `json:"functions"`
	SubFunctions          []domain.SubFunction         `json:"sub_functions"`
	CoreActivities        []domain.CoreActivity        `json:"core_activities"`
	SubFunctionActivities []domain.SubFunctionActivity `json:"sub_function_activities"`
	Workflows             []domain.Workflow            `json:"workflows"`
	Phases                []domain.Phase               `json:"phases"`
	Steps                 []domain.Step                `json:"steps"`
	StepActivities        []domain.StepActivity        `json:"step_activities"`
	People                []domain.Person              `json:"people"`
	Roles                 []domain.Role                `json:"roles"`
	Software              []domain.Software            `json:"software"`
	ChecklistItems        []domain.ChecklistItem       `json:"checklist_items"`
}

// BuildDocument reads a consistent snapshot of the store and assembles the
// export document for the given workspace.
func BuildDocument(ctx context.Context, workspace domain.Workspace, st domain.PersistentStore, now time.Time) (Document, error) {
	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: now.UTC(),
		Workspace:  workspace,
	}
	err := st.View(ctx, func(v domain.TransactionView) error {
		doc.Collections = Collections{
			Functions:             v.ListFunctions(),
			SubFunctions:          v.ListSubFunctions(),
			CoreActivities:        v.ListCoreActivities(),
			SubFunctionActivities: sortedLinks(v.ListSubFunctionActivities()),
			Workflows:             v.ListWorkflows(),
			Phases:                v.ListPhases(),
			Steps:                 v.ListSteps(),
			StepActivities:        sortedStepLinks(v.ListStepActivities()),
			People:                v.ListPeople(),
			Roles:                 v.ListRoles(),
			Software:              v.ListSoftware(),
			ChecklistItems:        v.ListChecklistItems(),
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Encode marshals a document to indented JSON.
func Encode(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses and validates an export document. Any validation failure
// rejects the whole payload; callers must not apply a partial document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse export document: %w", err)
	}
	if doc.Version == 0 {
		return Document{}, fmt.Errorf("export document missing version")
	}
	if doc.Version != DocumentVersion {
		return Document{}, fmt.Errorf("unsupported export document version %d", doc.Version)
	}
	if doc.Workspace.ID == "" || doc.Workspace.Name == "" {
		return Document{}, fmt.Errorf("export document missing workspace")
	}
	return doc, nil
}

func sortedLinks(links []domain.SubFunctionActivity) []domain.SubFunctionActivity {
	sort.Slice(links, func(i, j int) bool {
		if links[i].SubFunctionID != links[j].SubFunctionID {
			return links[i].SubFunctionID < links[j].SubFunctionID
		}
		if links[i].OrderIndex != links[j].OrderIndex {
			return links[i].OrderIndex < links[j].OrderIndex
		}
		return links[i].ID < links[j].ID
	})
	return links
}

func sortedStepLinks(links []domain.StepActivity) []domain.StepActivity {
	sort.Slice(links, func(i, j int) bool {
		if links[i].StepID != links[j].StepID {
			return links[i].StepID < links[j].StepID
		}
		if links[i].OrderIndex != links[j].OrderIndex {
			return links[i].OrderIndex < links[j].OrderIndex
		}
		return links[i].ID < links[j].ID
	})
	return links
}

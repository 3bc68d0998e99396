package suggest

import (
	"context"
	"fmt"
	"strings"

	"opschart/pkg/domain"
)

// Applier commits accepted suggestions to a store. Each Apply call runs in
// one transaction, so a failure midway creates nothing.
type Applier struct {
	store domain.PersistentStore
}

// NewApplier builds an applier over the given store.
func NewApplier(store domain.PersistentStore) *Applier {
	return &Applier{store: store}
}

// Report counts what an apply call created.
type Report struct {
	Created map[domain.EntityType]int
}

func (r *Report) add(entity domain.EntityType) {
	if r.Created == nil {
		r.Created = make(map[domain.EntityType]int)
	}
	r.Created[entity]++
}

// ApplyWorkflows decodes a workflow payload and creates the suggested
// workflows, phases, steps, activities, and step links.
func (a *Applier) ApplyWorkflows(ctx context.Context, payload []byte) (Report, error) {
	workflows, err := ParseWorkflows(payload)
	if err != nil {
		return Report{}, err
	}
	var report Report
	_, err = a.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, suggestion := range workflows {
			wf := domain.Workflow{Name: suggestion.Name, Description: optional(suggestion.Description)}
			createdWf, err := tx.AddWorkflow(wf)
			if err != nil {
				return err
			}
			report.add(domain.EntityWorkflow)
			for _, phaseSuggestion := range suggestion.Phases {
				phase, err := tx.AddPhase(domain.Phase{WorkflowID: createdWf.ID, Name: phaseSuggestion.Name})
				if err != nil {
					return err
				}
				report.add(domain.EntityPhase)
				for _, stepSuggestion := range phaseSuggestion.Steps {
					step, err := tx.AddStep(domain.Step{PhaseID: phase.ID, Name: stepSuggestion.Name})
					if err != nil {
						return err
					}
					report.add(domain.EntityStep)
					for _, activitySuggestion := range stepSuggestion.Activities {
						activityID, created, err := resolveActivity(tx, activitySuggestion)
						if err != nil {
							return err
						}
						if created {
							report.add(domain.EntityCoreActivity)
						}
						if _, err := tx.LinkActivityToStep(step.ID, activityID); err != nil {
							return err
						}
						report.add(domain.EntityStepActivity)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// ApplyFunctionChart decodes a function chart payload and creates the
// suggested functions, sub-functions, activities, and links.
func (a *Applier) ApplyFunctionChart(ctx context.Context, payload []byte) (Report, error) {
	functions, err := ParseFunctionChart(payload)
	if err != nil {
		return Report{}, err
	}
	var report Report
	_, err = a.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, suggestion := range functions {
			fn, err := tx.AddFunction(domain.Function{
				Name:        suggestion.Name,
				Description: optional(suggestion.Description),
				Color:       suggestion.Color,
				Status:      domain.StatusDraft,
			})
			if err != nil {
				return err
			}
			report.add(domain.EntityFunction)
			for _, sfSuggestion := range suggestion.SubFunctions {
				sf, err := tx.AddSubFunction(domain.SubFunction{
					FunctionID:  fn.ID,
					Name:        sfSuggestion.Name,
					Description: optional(sfSuggestion.Description),
					Status:      domain.StatusDraft,
				})
				if err != nil {
					return err
				}
				report.add(domain.EntitySubFunction)
				for _, activitySuggestion := range sfSuggestion.Activities {
					activityID, created, err := resolveActivity(tx, activitySuggestion)
					if err != nil {
						return err
					}
					if created {
						report.add(domain.EntityCoreActivity)
					}
					if _, err := tx.LinkActivityToSubFunction(sf.ID, activityID); err != nil {
						return err
					}
					report.add(domain.EntitySubFunctionActivity)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// ApplyGapList decodes a gap list payload and records each gap as a core
// activity in gap status, so closing a gap is the same edit flow as
// finishing any other activity.
func (a *Applier) ApplyGapList(ctx context.Context, payload []byte) (Report, error) {
	gaps, err := ParseGapList(payload)
	if err != nil {
		return Report{}, err
	}
	var report Report
	_, err = a.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, gap := range gaps {
			activity := domain.CoreActivity{
				Name:        gap.Title,
				Description: optional(gap.Description),
				Status:      domain.StatusGap,
			}
			var detail []string
			if gap.Category != "" {
				detail = append(detail, "Category: "+gap.Category)
			}
			if gap.Priority != "" {
				detail = append(detail, "Priority: "+gap.Priority)
			}
			if gap.Recommendation != "" {
				detail = append(detail, gap.Recommendation)
			}
			if len(detail) > 0 {
				activity.FullDescription = optional(strings.Join(detail, "\n"))
			}
			if _, err := tx.AddCoreActivity(activity); err != nil {
				return err
			}
			report.add(domain.EntityCoreActivity)
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// GenerateAndApply asks the generator for a payload of the given kind and
// commits it through the applier. A generation or parse failure creates
// nothing; the caller retries the whole call.
func GenerateAndApply(ctx context.Context, gen Generator, applier *Applier, kind Kind, prompt string) (Report, error) {
	payload, err := gen.Generate(ctx, kind, prompt)
	if err != nil {
		return Report{}, fmt.Errorf("generate %s suggestion: %w", kind, err)
	}
	switch kind {
	case KindWorkflows:
		return applier.ApplyWorkflows(ctx, payload)
	case KindFunctionChart:
		return applier.ApplyFunctionChart(ctx, payload)
	case KindGapList:
		return applier.ApplyGapList(ctx, payload)
	default:
		return Report{}, fmt.Errorf("unknown suggestion kind %q", kind)
	}
}

// resolveActivity reuses an existing activity with the same name when one
// exists, otherwise creates it in draft status. Matching is exact on name.
func resolveActivity(tx domain.Transaction, suggestion ActivitySuggestion) (string, bool, error) {
	for _, existing := range tx.Snapshot().ListCoreActivities() {
		if existing.Name == suggestion.Name {
			return existing.ID, false, nil
		}
	}
	created, err := tx.AddCoreActivity(domain.CoreActivity{
		Name:        suggestion.Name,
		Description: optional(suggestion.Description),
		Status:      domain.StatusDraft,
	})
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

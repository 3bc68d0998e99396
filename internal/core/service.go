package core

import (
	"context"

	"opschart/internal/store"
	"opschart/pkg/domain"
)

// StoreProvider resolves the store that operations should run against. The
// workspace Container satisfies it; tests and single-tenant embeddings can
// use a static provider.
type StoreProvider interface {
	Active() (string, domain.PersistentStore, error)
}

type staticProvider struct {
	store domain.PersistentStore
}

func (p staticProvider) Active() (string, domain.PersistentStore, error) {
	return "", p.store, nil
}

// Service is the instrumented facade over the persistent store. Every
// mutation runs inside one store transaction and reports through the
// configured logger, metrics recorder, tracer, and audit recorder.
type Service struct {
	provider StoreProvider
	opts     serviceOptions
}

// NewService builds a service over the given provider.
func NewService(provider StoreProvider, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{provider: provider, opts: options}
}

// NewInMemoryService builds a service over a fresh in-memory store, mainly
// for tests and ephemeral tooling.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(staticProvider{store: store.NewStore(engine)}, opts...)
}

// run executes one mutation with full instrumentation. fn writes the id of
// the primary entity into entityID before returning so the audit entry can
// reference records created inside the transaction.
func (s *Service) run(ctx context.Context, operation string, entityID *string, fn func(domain.Transaction) error) (domain.Result, error) {
	start := s.opts.clock.Now()
	ctx, span := s.opts.tracer.Start(ctx, operation)

	var result domain.Result
	_, st, err := s.provider.Active()
	if err == nil {
		result, err = st.RunInTransaction(ctx, fn)
	}

	duration := s.opts.clock.Now().Sub(start)
	span.End(err)
	s.opts.metrics.Observe(ctx, operation, err == nil, duration)

	id := ""
	if entityID != nil {
		id = *entityID
	}
	if err != nil {
		s.opts.logger.Error("operation failed", "operation", operation, "entity_id", id, "error", err)
		s.recordAuditFailure(ctx, operation, id, err, duration)
		return domain.Result{}, err
	}
	s.logWarnings(operation, result)
	s.opts.logger.Debug("operation committed", "operation", operation, "entity_id", id, "duration", duration)
	s.recordAuditSuccess(ctx, operation, id, duration)
	return result, nil
}

func (s *Service) logWarnings(operation string, result domain.Result) {
	for _, v := range result.Violations {
		if v.Severity == domain.SeverityBlock {
			continue
		}
		s.opts.logger.Warn("rule violation",
			"operation", operation, "rule", v.Rule, "severity", string(v.Severity),
			"entity", string(v.Entity), "entity_id", v.EntityID, "message", v.Message)
	}
}

// view executes a read against the active store's consistent snapshot.
func (s *Service) view(ctx context.Context, fn func(domain.TransactionView) error) error {
	_, st, err := s.provider.Active()
	if err != nil {
		return err
	}
	return st.View(ctx, fn)
}

// CreateFunction adds a top-level function chart node.
func (s *Service) CreateFunction(ctx context.Context, fn domain.Function) (domain.Function, domain.Result, error) {
	var created domain.Function
	var id string
	result, err := s.run(ctx, "create_function", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddFunction(fn)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.Function{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdateFunction applies mutate to the function with the given id. The bool
// is false when the id does not exist; that is not an error.
func (s *Service) UpdateFunction(ctx context.Context, id string, mutate func(*domain.Function) error) (domain.Function, bool, domain.Result, error) {
	var updated domain.Function
	var ok bool
	result, err := s.run(ctx, "update_function", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdateFunction(id, mutate)
		return err
	})
	if err != nil {
		return domain.Function{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeleteFunction removes a function and everything nested under it.
func (s *Service) DeleteFunction(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_function", &id, func(tx domain.Transaction) error {
		ok = tx.DeleteFunction(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// ReorderFunctions rewrites the order of all top-level functions. ids must
// be a permutation of the current function ids.
func (s *Service) ReorderFunctions(ctx context.Context, ids []string) (domain.Result, error) {
	return s.run(ctx, "reorder_functions", nil, func(tx domain.Transaction) error {
		return tx.ReorderFunctions(ids)
	})
}

// CreateSubFunction adds a sub-function under its parent function.
func (s *Service) CreateSubFunction(ctx context.Context, sf domain.SubFunction) (domain.SubFunction, domain.Result, error) {
	var created domain.SubFunction
	var id string
	result, err := s.run(ctx, "create_sub_function", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddSubFunction(sf)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.SubFunction{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdateSubFunction applies mutate to the sub-function with the given id.
func (s *Service) UpdateSubFunction(ctx context.Context, id string, mutate func(*domain.SubFunction) error) (domain.SubFunction, bool, domain.Result, error) {
	var updated domain.SubFunction
	var ok bool
	result, err := s.run(ctx, "update_sub_function", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdateSubFunction(id, mutate)
		return err
	})
	if err != nil {
		return domain.SubFunction{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeleteSubFunction removes a sub-function with its activity links.
func (s *Service) DeleteSubFunction(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_sub_function", &id, func(tx domain.Transaction) error {
		ok = tx.DeleteSubFunction(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// ReorderSubFunctions rewrites the order of a function's sub-functions.
func (s *Service) ReorderSubFunctions(ctx context.Context, functionID string, ids []string) (domain.Result, error) {
	return s.run(ctx, "reorder_sub_functions", &functionID, func(tx domain.Transaction) error {
		return tx.ReorderSubFunctions(functionID, ids)
	})
}

// CreateCoreActivity adds a core activity to the shared pool.
func (s *Service) CreateCoreActivity(ctx context.Context, activity domain.CoreActivity) (domain.CoreActivity, domain.Result, error) {
	var created domain.CoreActivity
	var id string
	result, err := s.run(ctx, "create_core_activity", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddCoreActivity(activity)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.CoreActivity{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdateCoreActivity applies mutate to the activity with the given id.
func (s *Service) UpdateCoreActivity(ctx context.Context, id string, mutate func(*domain.CoreActivity) error) (domain.CoreActivity, bool, domain.Result, error) {
	var updated domain.CoreActivity
	var ok bool
	result, err := s.run(ctx, "update_core_activity", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdateCoreActivity(id, mutate)
		return err
	})
	if err != nil {
		return domain.CoreActivity{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeleteCoreActivity removes an activity, its checklist, and every link row
// referencing it from both hierarchies.
func (s *Service) DeleteCoreActivity(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_core_activity", &id, func(tx domain.Transaction) error {
		ok = tx.DeleteCoreActivity(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// CreateWorkflow adds a workflow.
func (s *Service) CreateWorkflow(ctx context.Context, wf domain.Workflow) (domain.Workflow, domain.Result, error) {
	var created domain.Workflow
	var id string
	result, err := s.run(ctx, "create_workflow", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddWorkflow(wf)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.Workflow{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdateWorkflow applies mutate to the workflow with the given id.
func (s *Service) UpdateWorkflow(ctx context.Context, id string, mutate func(*domain.Workflow) error) (domain.Workflow, bool, domain.Result, error) {
	var updated domain.Workflow
	var ok bool
	result, err := s.run(ctx, "update_workflow", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdateWorkflow(id, mutate)
		return err
	})
	if err != nil {
		return domain.Workflow{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeleteWorkflow removes a workflow with its phases and steps.
func (s *Service) DeleteWorkflow(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_workflow", &id, func(tx domain.Transaction) error {
		ok = tx.DeleteWorkflow(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// CreatePhase adds a phase at the end of its workflow.
func (s *Service) CreatePhase(ctx context.Context, phase domain.Phase) (domain.Phase, domain.Result, error) {
	var created domain.Phase
	var id string
	result, err := s.run(ctx, "create_phase", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddPhase(phase)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.Phase{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdatePhase applies mutate to the phase with the given id.
func (s *Service) UpdatePhase(ctx context.Context, id string, mutate func(*domain.Phase) error) (domain.Phase, bool, domain.Result, error) {
	var updated domain.Phase
	var ok bool
	result, err := s.run(ctx, "update_phase", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdatePhase(id, mutate)
		return err
	})
	if err != nil {
		return domain.Phase{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeletePhase removes a phase with its steps and their activity links.
func (s *Service) DeletePhase(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_phase", &id, func(tx domain.Transaction) error {
		ok = tx.DeletePhase(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// ReorderPhases rewrites the order of a workflow's phases.
func (s *Service) ReorderPhases(ctx context.Context, workflowID string, ids []string) (domain.Result, error) {
	return s.run(ctx, "reorder_phases", &workflowID, func(tx domain.Transaction) error {
		return tx.ReorderPhases(workflowID, ids)
	})
}

// CreateStep adds a step at the end of its phase.
func (s *Service) CreateStep(ctx context.Context, step domain.Step) (domain.Step, domain.Result, error) {
	var created domain.Step
	var id string
	result, err := s.run(ctx, "create_step", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddStep(step)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.Step{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdateStep applies mutate to the step with the given id.
func (s *Service) UpdateStep(ctx context.Context, id string, mutate func(*domain.Step) error) (domain.Step, bool, domain.Result, error) {
	var updated domain.Step
	var ok bool
	result, err := s.run(ctx, "update_step", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdateStep(id, mutate)
		return err
	})
	if err != nil {
		return domain.Step{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeleteStep removes a step with its activity links.
func (s *Service) DeleteStep(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_step", &id, func(tx domain.Transaction) error {
		ok = tx.DeleteStep(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// ReorderSteps rewrites the order of a phase's steps.
func (s *Service) ReorderSteps(ctx context.Context, phaseID string, ids []string) (domain.Result, error) {
	return s.run(ctx, "reorder_steps", &phaseID, func(tx domain.Transaction) error {
		return tx.ReorderSteps(phaseID, ids)
	})
}

// CreatePerson adds a person.
func (s *Service) CreatePerson(ctx context.Context, person domain.Person) (domain.Person, domain.Result, error) {
	var created domain.Person
	var id string
	result, err := s.run(ctx, "create_person", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddPerson(person)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.Person{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdatePerson applies mutate to the person with the given id.
func (s *Service) UpdatePerson(ctx context.Context, id string, mutate func(*domain.Person) error) (domain.Person, bool, domain.Result, error) {
	var updated domain.Person
	var ok bool
	result, err := s.run(ctx, "update_person", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdatePerson(id, mutate)
		return err
	})
	if err != nil {
		return domain.Person{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeletePerson removes a person and clears every soft reference to them.
func (s *Service) DeletePerson(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_person", &id, func(tx domain.Transaction) error {
		ok = tx.DeletePerson(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// CreateRole adds a role.
func (s *Service) CreateRole(ctx context.Context, role domain.Role) (domain.Role, domain.Result, error) {
	var created domain.Role
	var id string
	result, err := s.run(ctx, "create_role", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddRole(role)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.Role{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdateRole applies mutate to the role with the given id.
func (s *Service) UpdateRole(ctx context.Context, id string, mutate func(*domain.Role) error) (domain.Role, bool, domain.Result, error) {
	var updated domain.Role
	var ok bool
	result, err := s.run(ctx, "update_role", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdateRole(id, mutate)
		return err
	})
	if err != nil {
		return domain.Role{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeleteRole removes a role and clears every soft reference to it.
func (s *Service) DeleteRole(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_role", &id, func(tx domain.Transaction) error {
		ok = tx.DeleteRole(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// CreateSoftware adds a software tool.
func (s *Service) CreateSoftware(ctx context.Context, sw domain.Software) (domain.Software, domain.Result, error) {
	var created domain.Software
	var id string
	result, err := s.run(ctx, "create_software", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddSoftware(sw)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.Software{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdateSoftware applies mutate to the software tool with the given id.
func (s *Service) UpdateSoftware(ctx context.Context, id string, mutate func(*domain.Software) error) (domain.Software, bool, domain.Result, error) {
	var updated domain.Software
	var ok bool
	result, err := s.run(ctx, "update_software", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdateSoftware(id, mutate)
		return err
	})
	if err != nil {
		return domain.Software{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeleteSoftware removes a software tool.
func (s *Service) DeleteSoftware(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_software", &id, func(tx domain.Transaction) error {
		ok = tx.DeleteSoftware(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// CreateChecklistItem adds an item at the end of an activity's checklist.
func (s *Service) CreateChecklistItem(ctx context.Context, item domain.ChecklistItem) (domain.ChecklistItem, domain.Result, error) {
	var created domain.ChecklistItem
	var id string
	result, err := s.run(ctx, "create_checklist_item", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddChecklistItem(item)
		id = created.ID
		return err
	})
	if err != nil {
		return domain.ChecklistItem{}, domain.Result{}, err
	}
	return created, result, nil
}

// UpdateChecklistItem applies mutate to the item with the given id.
func (s *Service) UpdateChecklistItem(ctx context.Context, id string, mutate func(*domain.ChecklistItem) error) (domain.ChecklistItem, bool, domain.Result, error) {
	var updated domain.ChecklistItem
	var ok bool
	result, err := s.run(ctx, "update_checklist_item", &id, func(tx domain.Transaction) error {
		var err error
		updated, ok, err = tx.UpdateChecklistItem(id, mutate)
		return err
	})
	if err != nil {
		return domain.ChecklistItem{}, false, domain.Result{}, err
	}
	return updated, ok, result, nil
}

// DeleteChecklistItem removes one checklist item. Sibling indexes keep their
// gaps until the next reorder.
func (s *Service) DeleteChecklistItem(ctx context.Context, id string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "delete_checklist_item", &id, func(tx domain.Transaction) error {
		ok = tx.DeleteChecklistItem(id)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// ReorderChecklistItems rewrites the order of an activity's checklist.
func (s *Service) ReorderChecklistItems(ctx context.Context, activityID string, ids []string) (domain.Result, error) {
	return s.run(ctx, "reorder_checklist_items", &activityID, func(tx domain.Transaction) error {
		return tx.ReorderChecklistItems(activityID, ids)
	})
}

// LinkActivityToSubFunction attaches an activity to a sub-function. Linking
// an already linked pair returns the existing row unchanged.
func (s *Service) LinkActivityToSubFunction(ctx context.Context, subFunctionID, activityID string) (domain.SubFunctionActivity, domain.Result, error) {
	var link domain.SubFunctionActivity
	var id string
	result, err := s.run(ctx, "link_activity_to_sub_function", &id, func(tx domain.Transaction) error {
		var err error
		link, err = tx.LinkActivityToSubFunction(subFunctionID, activityID)
		id = link.ID
		return err
	})
	if err != nil {
		return domain.SubFunctionActivity{}, domain.Result{}, err
	}
	return link, result, nil
}

// UnlinkActivityFromSubFunction detaches an activity from a sub-function.
func (s *Service) UnlinkActivityFromSubFunction(ctx context.Context, subFunctionID, activityID string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "unlink_activity_from_sub_function", &activityID, func(tx domain.Transaction) error {
		ok = tx.UnlinkActivityFromSubFunction(subFunctionID, activityID)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// LinkActivityToStep attaches an activity to a workflow step.
func (s *Service) LinkActivityToStep(ctx context.Context, stepID, activityID string) (domain.StepActivity, domain.Result, error) {
	var link domain.StepActivity
	var id string
	result, err := s.run(ctx, "link_activity_to_step", &id, func(tx domain.Transaction) error {
		var err error
		link, err = tx.LinkActivityToStep(stepID, activityID)
		id = link.ID
		return err
	})
	if err != nil {
		return domain.StepActivity{}, domain.Result{}, err
	}
	return link, result, nil
}

// UnlinkActivityFromStep detaches an activity from a step.
func (s *Service) UnlinkActivityFromStep(ctx context.Context, stepID, activityID string) (bool, domain.Result, error) {
	var ok bool
	result, err := s.run(ctx, "unlink_activity_from_step", &activityID, func(tx domain.Transaction) error {
		ok = tx.UnlinkActivityFromStep(stepID, activityID)
		return nil
	})
	if err != nil {
		return false, domain.Result{}, err
	}
	return ok, result, nil
}

// FunctionChart returns all functions with their nested sub-functions and
// linked activities, in display order.
func (s *Service) FunctionChart(ctx context.Context) ([]FunctionNode, error) {
	var nodes []FunctionNode
	err := s.view(ctx, func(v domain.TransactionView) error {
		for _, fn := range v.ListFunctions() {
			node := FunctionNode{Function: fn}
			for _, sf := range v.SubFunctionsOf(fn.ID) {
				node.SubFunctions = append(node.SubFunctions, SubFunctionNode{
					SubFunction: sf,
					Activities:  v.ActivitiesForSubFunction(sf.ID),
				})
			}
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// WorkflowOutline returns one workflow with its phases, steps, and linked
// activities, in display order. ok is false when the workflow is unknown.
func (s *Service) WorkflowOutline(ctx context.Context, workflowID string) (WorkflowNode, bool, error) {
	var node WorkflowNode
	var ok bool
	err := s.view(ctx, func(v domain.TransactionView) error {
		wf, found := v.FindWorkflow(workflowID)
		if !found {
			return nil
		}
		ok = true
		node = WorkflowNode{Workflow: wf}
		for _, phase := range v.PhasesOf(wf.ID) {
			pn := PhaseNode{Phase: phase}
			for _, step := range v.StepsOf(phase.ID) {
				pn.Steps = append(pn.Steps, StepNode{
					Step:       step,
					Activities: v.ActivitiesForStep(step.ID),
				})
			}
			node.Phases = append(node.Phases, pn)
		}
		return nil
	})
	if err != nil {
		return WorkflowNode{}, false, err
	}
	return node, ok, nil
}

// ChecklistForActivity returns an activity's checklist in display order.
func (s *Service) ChecklistForActivity(ctx context.Context, activityID string) ([]domain.ChecklistItem, error) {
	var items []domain.ChecklistItem
	err := s.view(ctx, func(v domain.TransactionView) error {
		items = v.ChecklistForActivity(activityID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SearchActivities finds activities by case-insensitive substring match on
// name and description, optionally scoped to a function or sub-function.
func (s *Service) SearchActivities(ctx context.Context, query string, scope domain.SearchScope) ([]domain.CoreActivity, error) {
	var hits []domain.CoreActivity
	err := s.view(ctx, func(v domain.TransactionView) error {
		hits = v.SearchActivities(query, scope)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// View exposes a consistent read snapshot of the active workspace.
func (s *Service) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.view(ctx, fn)
}

// FunctionNode is a function with its ordered sub-function subtrees.
type FunctionNode struct {
	Function     domain.Function   `json:"function"`
	SubFunctions []SubFunctionNode `json:"sub_functions,omitempty"`
}

// SubFunctionNode is a sub-function with its linked activities in link order.
type SubFunctionNode struct {
	SubFunction domain.SubFunction    `json:"sub_function"`
	Activities  []domain.CoreActivity `json:"activities,omitempty"`
}

// WorkflowNode is a workflow with its ordered phase subtrees.
type WorkflowNode struct {
	Workflow domain.Workflow `json:"workflow"`
	Phases   []PhaseNode     `json:"phases,omitempty"`
}

// PhaseNode is a phase with its ordered steps.
type PhaseNode struct {
	Phase domain.Phase `json:"phase"`
	Steps []StepNode   `json:"steps,omitempty"`
}

// StepNode is a step with its linked activities in link order.
type StepNode struct {
	Step       domain.Step           `json:"step"`
	Activities []domain.CoreActivity `json:"activities,omitempty"`
}

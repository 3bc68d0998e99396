package domain

import "context"

// Transaction exposes the mutation operations a persistence implementation
// must support within an atomic scope. Add operations validate parent
// references and append at the end of the relevant ordered group. Update and
// delete operations are lenient: an unknown id is a no-op signalled by the
// returned bool, never an error. Reorder operations require the complete
// current sibling id set.
type Transaction interface {
	Snapshot() TransactionView

	AddFunction(Function) (Function, error)
	UpdateFunction(id string, mutate func(*Function) error) (Function, bool, error)
	DeleteFunction(id string) bool
	ReorderFunctions(ids []string) error

	AddSubFunction(SubFunction) (SubFunction, error)
	UpdateSubFunction(id string, mutate func(*SubFunction) error) (SubFunction, bool, error)
	DeleteSubFunction(id string) bool
	ReorderSubFunctions(functionID string, ids []string) error

	AddCoreActivity(CoreActivity) (CoreActivity, error)
	UpdateCoreActivity(id string, mutate func(*CoreActivity) error) (CoreActivity, bool, error)
	DeleteCoreActivity(id string) bool

	AddWorkflow(Workflow) (Workflow, error)
	UpdateWorkflow(id string, mutate func(*Workflow) error) (Workflow, bool, error)
	DeleteWorkflow(id string) bool

	AddPhase(Phase) (Phase, error)
	UpdatePhase(id string, mutate func(*Phase) error) (Phase, bool, error)
	DeletePhase(id string) bool
	ReorderPhases(workflowID string, ids []string) error

	AddStep(Step) (Step, error)
	UpdateStep(id string, mutate func(*Step) error) (Step, bool, error)
	DeleteStep(id string) bool
	ReorderSteps(phaseID string, ids []string) error

	AddPerson(Person) (Person, error)
	UpdatePerson(id string, mutate func(*Person) error) (Person, bool, error)
	DeletePerson(id string) bool

	AddRole(Role) (Role, error)
	UpdateRole(id string, mutate func(*Role) error) (Role, bool, error)
	DeleteRole(id string) bool

	AddSoftware(Software) (Software, error)
	UpdateSoftware(id string, mutate func(*Software) error) (Software, bool, error)
	DeleteSoftware(id string) bool

	AddChecklistItem(ChecklistItem) (ChecklistItem, error)
	UpdateChecklistItem(id string, mutate func(*ChecklistItem) error) (ChecklistItem, bool, error)
	DeleteChecklistItem(id string) bool
	ReorderChecklistItems(activityID string, ids []string) error

	LinkActivityToSubFunction(subFunctionID, activityID string) (SubFunctionActivity, error)
	UnlinkActivityFromSubFunction(subFunctionID, activityID string) bool
	LinkActivityToStep(stepID, activityID string) (StepActivity, error)
	UnlinkActivityFromStep(stepID, activityID string) bool
}

// SearchScope narrows an activity search to the activities reachable through
// SubFunctionActivity links under a function or a single sub-function. Nil
// fields leave the corresponding dimension unconstrained.
type SearchScope struct {
	FunctionID    *string
	SubFunctionID *string
}

// TransactionView provides read-only access to snapshot data for rules and
// query consumers. List results for ordered collections are sorted by
// OrderIndex ascending; derived queries drop dangling links instead of
// surfacing missing entities.
type TransactionView interface {
	ListFunctions() []Function
	ListSubFunctions() []SubFunction
	ListCoreActivities() []CoreActivity
	ListWorkflows() []Workflow
	ListPhases() []Phase
	ListSteps() []Step
	ListPeople() []Person
	ListRoles() []Role
	ListSoftware() []Software
	ListChecklistItems() []ChecklistItem
	ListSubFunctionActivities() []SubFunctionActivity
	ListStepActivities() []StepActivity

	FindFunction(id string) (Function, bool)
	FindSubFunction(id string) (SubFunction, bool)
	FindCoreActivity(id string) (CoreActivity, bool)
	FindWorkflow(id string) (Workflow, bool)
	FindPhase(id string) (Phase, bool)
	FindStep(id string) (Step, bool)
	FindPerson(id string) (Person, bool)
	FindRole(id string) (Role, bool)
	FindSoftware(id string) (Software, bool)
	FindChecklistItem(id string) (ChecklistItem, bool)

	SubFunctionsOf(functionID string) []SubFunction
	PhasesOf(workflowID string) []Phase
	StepsOf(phaseID string) []Step

	ActivitiesForSubFunction(subFunctionID string) []CoreActivity
	ActivitiesForStep(stepID string) []CoreActivity
	ChecklistForActivity(activityID string) []ChecklistItem
	SearchActivities(query string, scope SearchScope) []CoreActivity
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetFunction(id string) (Function, bool)
	GetCoreActivity(id string) (CoreActivity, bool)
	GetWorkflow(id string) (Workflow, bool)
	ListFunctions() []Function
	ListSubFunctions() []SubFunction
	ListCoreActivities() []CoreActivity
	ListWorkflows() []Workflow
	ListPeople() []Person
	ListRoles() []Role
	ListSoftware() []Software
}

// Package store provides the in-memory entity store holding one workspace's
// operations graph. Mutations run through copy-on-write transactions so a
// failed operation never leaves partially applied state behind.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"opschart/pkg/domain"
)

// Compile-time contract assertion ensuring store.Store adheres to the domain
// persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Function aliases domain.Function for in-memory persistence operations.
	Function = domain.Function
	// SubFunction aliases domain.SubFunction.
	SubFunction = domain.SubFunction
	// CoreActivity aliases domain.CoreActivity.
	CoreActivity = domain.CoreActivity
	// SubFunctionActivity aliases domain.SubFunctionActivity.
	SubFunctionActivity = domain.SubFunctionActivity
	// Workflow aliases domain.Workflow.
	Workflow = domain.Workflow
	// Phase aliases domain.Phase.
	Phase = domain.Phase
	// Step aliases domain.Step.
	Step = domain.Step
	// StepActivity aliases domain.StepActivity.
	StepActivity = domain.StepActivity
	// Person aliases domain.Person.
	Person = domain.Person
	// Role aliases domain.Role.
	Role = domain.Role
	// Software aliases domain.Software.
	Software = domain.Software
	// ChecklistItem aliases domain.ChecklistItem.
	ChecklistItem = domain.ChecklistItem
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
)

type state struct {
	functions             map[string]Function
	subFunctions          map[string]SubFunction
	coreActivities        map[string]CoreActivity
	subFunctionActivities map[string]SubFunctionActivity
	workflows             map[string]Workflow
	phases                map[string]Phase
	steps                 map[string]Step
	stepActivities        map[string]StepActivity
	people                map[string]Person
	roles                 map[string]Role
	software              map[string]Software
	checklistItems        map[string]ChecklistItem
}

func newState() state {
	return state{
		functions:             make(map[string]Function),
		subFunctions:          make(map[string]SubFunction),
		coreActivities:        make(map[string]CoreActivity),
		subFunctionActivities: make(map[string]SubFunctionActivity),
		workflows:             make(map[string]Workflow),
		phases:                make(map[string]Phase),
		steps:                 make(map[string]Step),
		stepActivities:        make(map[string]StepActivity),
		people:                make(map[string]Person),
		roles:                 make(map[string]Role),
		software:              make(map[string]Software),
		checklistItems:        make(map[string]ChecklistItem),
	}
}

func (s state) clone() state {
	cloned := newState()
	for k, v := range s.functions {
		cloned.functions[k] = cloneFunction(v)
	}
	for k, v := range s.subFunctions {
		cloned.subFunctions[k] = cloneSubFunction(v)
	}
	for k, v := range s.coreActivities {
		cloned.coreActivities[k] = cloneCoreActivity(v)
	}
	for k, v := range s.subFunctionActivities {
		cloned.subFunctionActivities[k] = v
	}
	for k, v := range s.workflows {
		cloned.workflows[k] = cloneWorkflow(v)
	}
	for k, v := range s.phases {
		cloned.phases[k] = v
	}
	for k, v := range s.steps {
		cloned.steps[k] = cloneStep(v)
	}
	for k, v := range s.stepActivities {
		cloned.stepActivities[k] = v
	}
	for k, v := range s.people {
		cloned.people[k] = clonePerson(v)
	}
	for k, v := range s.roles {
		cloned.roles[k] = cloneRole(v)
	}
	for k, v := range s.software {
		cloned.software[k] = cloneSoftware(v)
	}
	for k, v := range s.checklistItems {
		cloned.checklistItems[k] = cloneChecklistItem(v)
	}
	return cloned
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFunction(f Function) Function {
	f.Description = cloneStringPtr(f.Description)
	return f
}

func cloneSubFunction(sf SubFunction) SubFunction {
	sf.Description = cloneStringPtr(sf.Description)
	return sf
}

func cloneCoreActivity(a CoreActivity) CoreActivity {
	a.Description = cloneStringPtr(a.Description)
	a.FullDescription = cloneStringPtr(a.FullDescription)
	a.OwnerID = cloneStringPtr(a.OwnerID)
	a.RoleID = cloneStringPtr(a.RoleID)
	a.ChecklistTrigger = cloneStringPtr(a.ChecklistTrigger)
	a.ChecklistEndState = cloneStringPtr(a.ChecklistEndState)
	a.VideoURL = cloneStringPtr(a.VideoURL)
	return a
}

func cloneWorkflow(w Workflow) Workflow {
	w.Description = cloneStringPtr(w.Description)
	return w
}

func cloneStep(st Step) Step {
	st.SOPVideoURL = cloneStringPtr(st.SOPVideoURL)
	return st
}

func clonePerson(p Person) Person {
	p.Email = cloneStringPtr(p.Email)
	p.RoleID = cloneStringPtr(p.RoleID)
	p.ReportsTo = cloneStringPtr(p.ReportsTo)
	return p
}

func cloneRole(r Role) Role {
	r.Description = cloneStringPtr(r.Description)
	return r
}

func cloneSoftware(sw Software) Software {
	sw.URL = cloneStringPtr(sw.URL)
	return sw
}

func cloneChecklistItem(c ChecklistItem) ChecklistItem {
	c.VideoURL = cloneStringPtr(c.VideoURL)
	return c
}

// Store provides the in-memory transactional store for one workspace.
type Store struct {
	mu          sync.RWMutex
	state       state
	engine      *RulesEngine
	nowFn       func() time.Time
	subscribers []func([]Change)
}

// NewStore constructs an empty workspace store backed by the provided rules
// engine. A nil engine disables rule evaluation gating.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Subscribe registers fn to receive the committed change list after every
// successful transaction. Subscribers are invoked outside the store lock, in
// registration order, and must not assume the state still matches the
// delivered changes by the time they run.
func (s *Store) Subscribe(fn func(changes []Change)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   state
	changes []Change
	now     time.Time
}

func (tx *transaction) record(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return view{state: &tx.state}
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy is swapped in only when fn and all registered rules
// succeed, so readers never observe a partially applied operation.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (Result, error) {
	result, changes, subs, err := s.commit(ctx, fn)
	if err != nil {
		return result, err
	}
	if len(changes) > 0 {
		for _, sub := range subs {
			sub(changes)
		}
	}
	return result, nil
}

func (s *Store) commit(ctx context.Context, fn func(tx domain.Transaction) error) (Result, []Change, []func([]Change), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, nil, nil, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, nil, nil, err
		}
		result = res
		if res.HasBlocking() {
			return res, nil, nil, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	changes := append([]Change(nil), tx.changes...)
	subs := append([]func([]Change){}, s.subscribers...)
	return result, changes, subs, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

// GetFunction retrieves a function by id.
func (s *Store) GetFunction(id string) (Function, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.state.functions[id]
	if !ok {
		return Function{}, false
	}
	return cloneFunction(f), true
}

// GetCoreActivity retrieves a core activity by id.
func (s *Store) GetCoreActivity(id string) (CoreActivity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.coreActivities[id]
	if !ok {
		return CoreActivity{}, false
	}
	return cloneCoreActivity(a), true
}

// GetWorkflow retrieves a workflow by id.
func (s *Store) GetWorkflow(id string) (Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.workflows[id]
	if !ok {
		return Workflow{}, false
	}
	return cloneWorkflow(w), true
}

// ListFunctions returns all functions sorted by order index.
func (s *Store) ListFunctions() []Function {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListFunctions()
}

// ListSubFunctions returns all sub-functions grouped by parent order.
func (s *Store) ListSubFunctions() []SubFunction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListSubFunctions()
}

// ListCoreActivities returns all core activities sorted by name.
func (s *Store) ListCoreActivities() []CoreActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListCoreActivities()
}

// ListWorkflows returns all workflows sorted by name.
func (s *Store) ListWorkflows() []Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListWorkflows()
}

// ListPeople returns all people sorted by name.
func (s *Store) ListPeople() []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListPeople()
}

// ListRoles returns all roles sorted by name.
func (s *Store) ListRoles() []Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListRoles()
}

// ListSoftware returns all software entries sorted by name.
func (s *Store) ListSoftware() []Software {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListSoftware()
}

func sortedIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

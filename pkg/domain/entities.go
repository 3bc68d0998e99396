// Package domain defines the persistent entities, change records, and rule
// evaluation primitives used by opschart.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records, persistence
// buckets, and the remote sync schema.
const (
	// EntityFunction identifies a top-level business function record.
	EntityFunction EntityType = "function"
	// EntitySubFunction identifies a sub-function record nested under a function.
	EntitySubFunction EntityType = "sub_function"
	// EntityCoreActivity identifies a core activity record.
	EntityCoreActivity EntityType = "core_activity"
	// EntitySubFunctionActivity identifies a sub-function/activity link row.
	EntitySubFunctionActivity EntityType = "sub_function_activity"
	// EntityWorkflow identifies a workflow record.
	EntityWorkflow EntityType = "workflow"
	// EntityPhase identifies a workflow phase record.
	EntityPhase EntityType = "phase"
	// EntityStep identifies a phase step record.
	EntityStep EntityType = "step"
	// EntityStepActivity identifies a step/activity link row.
	EntityStepActivity EntityType = "step_activity"
	// EntityPerson identifies a person record.
	EntityPerson EntityType = "person"
	// EntityRole identifies a role record.
	EntityRole EntityType = "role"
	// EntitySoftware identifies a software tool record.
	EntitySoftware EntityType = "software"
	// EntityChecklistItem identifies a checklist item attached to an activity.
	EntityChecklistItem EntityType = "checklist_item"
	// EntityWorkspace identifies a workspace record managed by the container.
	EntityWorkspace EntityType = "workspace"
)

// Status represents the canonical completeness states shared by functions,
// sub-functions, workflows, and core activities.
type Status string

// Canonical status values. The store accepts any of the four; the gap→draft→
// active progression and the archived reopen path are UI conventions, not
// store-enforced transitions.
const (
	// StatusGap marks a node that exists in the chart but has no real content yet.
	StatusGap Status = "gap"
	// StatusDraft marks a node whose content is still being worked on.
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	// StatusArchived marks a retired node; archived nodes may be reopened to draft.
	StatusArchived Status = "archived"
)

// Valid reports whether s is one of the canonical status values.
func (s Status) Valid() bool {
	switch s {
	case StatusGap, StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Function is a top-level node of the organizational function chart.
type Function struct {
	Base
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Color       string  `json:"color"`
	Status      Status  `json:"status"`
	OrderIndex  int     `json:"order_index"`
}

// SubFunction is a second-level node nested under a Function.
type SubFunction struct {
	Base
	FunctionID  string  `json:"function_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status"`
	OrderIndex  int     `json:"order_index"`
}

// CoreActivity is a unit of work shared between the function chart and
// workflows. Owner and role references are soft: deleting the referenced
// person or role clears the pointer instead of cascading.
type CoreActivity struct {
	Base
	Name              string  `json:"name"`
	Description       *string `json:"description,omitempty"`
	FullDescription   *string `json:"full_description,omitempty"`
	OwnerID           *string `json:"owner_id,omitempty"`
	RoleID            *string `json:"role_id,omitempty"`
	Status            Status  `json:"status"`
	ChecklistTrigger  *string `json:"checklist_trigger,omitempty"`
	ChecklistEndState *string `json:"checklist_end_state,omitempty"`
	VideoURL          *string `json:"video_url,omitempty"`
}

// SubFunctionActivity links a CoreActivity into a SubFunction with its own
// ordering. At most one row exists per (sub-function, activity) pair.
type SubFunctionActivity struct {
	Base
	SubFunctionID  string `json:"sub_function_id"`
	CoreActivityID string `json:"core_activity_id"`
	OrderIndex     int    `json:"order_index"`
}

// Workflow is a top-level node of the process-flow hierarchy.
type Workflow struct {
	Base
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status"`
}

// Phase is an ordered stage within a Workflow.
type Phase struct {
	Base
	WorkflowID string `json:"workflow_id"`
	Name       string `json:"name"`
	OrderIndex int    `json:"order_index"`
}

// Step is an ordered unit of work within a Phase.
type Step struct {
	Base
	PhaseID     string  `json:"phase_id"`
	Name        string  `json:"name"`
	OrderIndex  int     `json:"order_index"`
	SOPVideoURL *string `json:"sop_video_url,omitempty"`
}

// StepActivity links a CoreActivity into a Step with its own ordering.
// At most one row exists per (step, activity) pair.
type StepActivity struct {
	Base
	StepID         string `json:"step_id"`
	CoreActivityID string `json:"core_activity_id"`
	OrderIndex     int    `json:"order_index"`
}

// Person is a member of the organization. ReportsTo is a nullable
// self-reference; RoleID is a soft reference to a Role.
type Person struct {
	Base
	Name      string  `json:"name"`
	Email     *string `json:"email,omitempty"`
	RoleID    *string `json:"role_id,omitempty"`
	ReportsTo *string `json:"reports_to,omitempty"`
}

// Role describes a job role people and activities can reference.
type Role struct {
	Base
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Software is a tool tracked in the operations map.
type Software struct {
	Base
	Name string  `json:"name"`
	URL  *string `json:"url,omitempty"`
}

// ChecklistItem is an ordered item attached to a CoreActivity.
type ChecklistItem struct {
	Base
	CoreActivityID string  `json:"core_activity_id"`
	Text           string  `json:"text"`
	OrderIndex     int     `json:"order_index"`
	Completed      bool    `json:"completed"`
	VideoURL       *string `json:"video_url,omitempty"`
}

// Workspace identifies one isolated tenant-scoped entity graph owned by a
// single user. The entity collections themselves live in the workspace's
// store, not on this record.
type Workspace struct {
	Base
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// Change describes a mutation applied to an entity during a transaction.
// Cascade deletes record one Change per removed entity so downstream
// consumers (the sync forwarder) can mirror the full effect.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the change stream.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated (including reorder).
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

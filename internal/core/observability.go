package core

import (
	"context"
	"time"

	"opschart/pkg/domain"
)

// Logger is the minimal structured logging surface used by the service.
// Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// AuditStatus describes the outcome recorded in an audit entry.
type AuditStatus string

const (
	// AuditStatusSuccess marks a committed operation.
	AuditStatusSuccess AuditStatus = "success"
	// AuditStatusError marks a failed operation.
	AuditStatusError AuditStatus = "error"
)

// AuditEntry captures one service operation for the audit trail.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for committed and failed operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation outcomes for aggregation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a started span.
type TraceSpan interface {
	End(err error)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

type serviceOptions struct {
	logger  Logger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		audit:   noopAudit{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
}

// ServiceOption configures optional service dependencies.
type ServiceOption func(*serviceOptions)

// WithLogger attaches a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithAuditRecorder attaches an audit sink.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder attaches a metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer attaches a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// operationMetadata ties operation names to the entity and action they audit
// as. Operations absent from this map produce no audit entries.
var operationMetadata = map[string]struct {
	Entity domain.EntityType
	Action domain.Action
}{
	"create_function":         {domain.EntityFunction, domain.ActionCreate},
	"update_function":         {domain.EntityFunction, domain.ActionUpdate},
	"delete_function":         {domain.EntityFunction, domain.ActionDelete},
	"reorder_functions":       {domain.EntityFunction, domain.ActionUpdate},
	"create_sub_function":     {domain.EntitySubFunction, domain.ActionCreate},
	"update_sub_function":     {domain.EntitySubFunction, domain.ActionUpdate},
	"delete_sub_function":     {domain.EntitySubFunction, domain.ActionDelete},
	"reorder_sub_functions":   {domain.EntitySubFunction, domain.ActionUpdate},
	"create_core_activity":    {domain.EntityCoreActivity, domain.ActionCreate},
	"update_core_activity":    {domain.EntityCoreActivity, domain.ActionUpdate},
	"delete_core_activity":    {domain.EntityCoreActivity, domain.ActionDelete},
	"create_workflow":         {domain.EntityWorkflow, domain.ActionCreate},
	"update_workflow":         {domain.EntityWorkflow, domain.ActionUpdate},
	"delete_workflow":         {domain.EntityWorkflow, domain.ActionDelete},
	"create_phase":            {domain.EntityPhase, domain.ActionCreate},
	"update_phase":            {domain.EntityPhase, domain.ActionUpdate},
	"delete_phase":            {domain.EntityPhase, domain.ActionDelete},
	"reorder_phases":          {domain.EntityPhase, domain.ActionUpdate},
	"create_step":             {domain.EntityStep, domain.ActionCreate},
	"update_step":             {domain.EntityStep, domain.ActionUpdate},
	"delete_step":             {domain.EntityStep, domain.ActionDelete},
	"reorder_steps":           {domain.EntityStep, domain.ActionUpdate},
	"create_person":           {domain.EntityPerson, domain.ActionCreate},
	"update_person":           {domain.EntityPerson, domain.ActionUpdate},
	"delete_person":           {domain.EntityPerson, domain.ActionDelete},
	"create_role":             {domain.EntityRole, domain.ActionCreate},
	"update_role":             {domain.EntityRole, domain.ActionUpdate},
	"delete_role":             {domain.EntityRole, domain.ActionDelete},
	"create_software":         {domain.EntitySoftware, domain.ActionCreate},
	"update_software":         {domain.EntitySoftware, domain.ActionUpdate},
	"delete_software":         {domain.EntitySoftware, domain.ActionDelete},
	"create_checklist_item":   {domain.EntityChecklistItem, domain.ActionCreate},
	"update_checklist_item":   {domain.EntityChecklistItem, domain.ActionUpdate},
	"delete_checklist_item":   {domain.EntityChecklistItem, domain.ActionDelete},
	"reorder_checklist_items": {domain.EntityChecklistItem, domain.ActionUpdate},
	"link_activity_to_sub_function":     {domain.EntitySubFunctionActivity, domain.ActionCreate},
	"unlink_activity_from_sub_function": {domain.EntitySubFunctionActivity, domain.ActionDelete},
	"link_activity_to_step":             {domain.EntityStepActivity, domain.ActionCreate},
	"unlink_activity_from_step":         {domain.EntityStepActivity, domain.ActionDelete},
	"import_workspace":                  {domain.EntityWorkspace, domain.ActionUpdate},
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	meta, ok := operationMetadata[operation]
	if !ok {
		return
	}
	s.opts.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.Entity,
		Action:    meta.Action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.opts.clock.Now(),
	})
}

func (s *Service) recordAuditFailure(ctx context.Context, operation, entityID string, opErr error, duration time.Duration) {
	meta, ok := operationMetadata[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.Entity,
		Action:    meta.Action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Duration:  duration,
		Timestamp: s.opts.clock.Now(),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	s.opts.audit.Record(ctx, entry)
}

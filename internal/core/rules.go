package core

import "opschart/pkg/domain"

// NewRulesEngine constructs an engine instance with no rules registered.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(LinkIntegrityRule())
	engine.Register(WorkflowContentRule())
	return engine
}

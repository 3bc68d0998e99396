// Package core exposes the workspace container, the service facade with its
// observability hooks, and the built-in rules engine configuration.
package core

import "opschart/pkg/domain"

// Aliases re-export the domain contracts callers interact with so that
// service consumers only have to import this package.
type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
	RulesEngine     = domain.RulesEngine
	Rule            = domain.Rule
	Result          = domain.Result
	Violation       = domain.Violation
	Change          = domain.Change
)

package core

import "mycoledger/pkg/domain"

// Rule names reported in violations.
const (
	RuleCarbonBalance       = "carbon_balance"
	RuleNetworkReference    = "network_reference"
	RuleDeadTreeConnections = "dead_tree_connections"
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *domain.RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewCarbonBalanceRule())
	engine.Register(NewNetworkReferenceRule())
	engine.Register(NewDeadTreeConnectionsRule())
	return engine
}

// createdChildren yields the network id referenced by each created child record.
func createdChildren(changes []domain.Change, visit func(entity domain.EntityType, id, networkID uint64)) {
	for _, change := range changes {
		if change.Action != domain.ActionCreate {
			continue
		}
		switch rec := change.After.(type) {
		case domain.Tree:
			visit(domain.EntityTree, rec.ID, rec.NetworkID)
		case domain.Inoculation:
			visit(domain.EntityInoculation, rec.ID, rec.NetworkID)
		case domain.CarbonMeasurement:
			visit(domain.EntityCarbonMeasurement, rec.ID, rec.NetworkID)
		}
	}
}

package core

import (
	"context"
	"fmt"

	"mycoledger/pkg/domain"
)

// NewNetworkReferenceRule returns the blocking rule requiring each created
// tree, inoculation and measurement to reference a committed-or-pending network.
func NewNetworkReferenceRule() domain.Rule {
	return networkReferenceRule{}
}

type networkReferenceRule struct{}

func (networkReferenceRule) Name() string { return RuleNetworkReference }

func (networkReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	createdChildren(changes, func(entity domain.EntityType, id, networkID uint64) {
		if _, ok := view.FindNetwork(networkID); ok {
			return
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleNetworkReference,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s %d references missing network %d", entity, id, networkID),
			Entity:   entity,
			EntityID: id,
		})
	})
	return res, nil
}

package core

import (
	"context"
	"fmt"

	"mycoledger/pkg/domain"
)

// NewDeadTreeConnectionsRule returns a warning rule flagging dead trees that
// still report live mycorrhizal connections.
func NewDeadTreeConnectionsRule() domain.Rule {
	return deadTreeConnectionsRule{}
}

type deadTreeConnectionsRule struct{}

func (deadTreeConnectionsRule) Name() string { return RuleDeadTreeConnections }

func (deadTreeConnectionsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		tree, ok := change.After.(domain.Tree)
		if !ok || tree.HealthStatus != domain.HealthDead || tree.MycorrhizalConnections == 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleDeadTreeConnections,
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("dead tree %d still reports %d connections", tree.ID, tree.MycorrhizalConnections),
			Entity:   domain.EntityTree,
			EntityID: tree.ID,
		})
	}
	return res, nil
}
